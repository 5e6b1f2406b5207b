package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/middleware"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/service"
)

// AssetService is satisfied by *service.AssetStore.
type AssetService interface {
	Ingest(ctx context.Context, in service.IngestInput) (model.AssetRef, bool, error)
	Retrieve(ctx context.Context, id string) (model.Asset, error)
	List(ctx context.Context, ownerID string, limit int) ([]model.AssetRef, error)
}

// immutableCache is safe because an asset's bytes never change under its id.
const immutableCache = "public, max-age=31536000, immutable"

type AssetHandler struct {
	Assets   AssetService
	MaxBytes int64
}

func NewAssetHandler(assets AssetService, maxBytes int64) *AssetHandler {
	return &AssetHandler{Assets: assets, MaxBytes: maxBytes}
}

type ingestResp struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Deduped bool   `json:"deduped"`
}

// Get streams the stored bytes.  It is public: asset ids are unguessable
// and the payload is immutable, so the response is cacheable forever.
func (h *AssetHandler) Get(c echo.Context) error {
	a, err := h.Assets.Retrieve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	etag := `W/"` + a.SHA256 + `"`
	hdr := c.Response().Header()
	hdr.Set(echo.HeaderCacheControl, immutableCache)
	hdr.Set("ETag", etag)
	if middleware.ETagMatch(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	hdr.Set(echo.HeaderContentLength, strconv.FormatInt(int64(len(a.Bytes)), 10))
	return c.Blob(http.StatusOK, a.MIME, a.Bytes)
}

// List returns the caller's assets, newest first, without payloads.
func (h *AssetHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.Validation("validation failed").WithDetails(map[string]string{"limit": "must be an integer"})
		}
		limit = n
	}
	items, err := h.Assets.List(c.Request().Context(), p.UserID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Upload ingests a multipart "file" part.  The optional "prompt" and
// "size" fields record provenance.  A deduplicated upload answers 200 with
// the existing id instead of 201.
func (h *AssetHandler) Upload(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("validation failed").WithDetails(map[string]string{"file": "is required"})
	}
	if h.MaxBytes > 0 && fh.Size > h.MaxBytes {
		return apperr.Validation("payload too large").
			WithDetails(map[string]any{"maxBytes": h.MaxBytes, "size": fh.Size})
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("invalid upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return apperr.Validation("invalid upload")
	}

	owner := p.UserID
	in := service.IngestInput{
		Bytes:   data,
		MIME:    fh.Header.Get(echo.HeaderContentType),
		OwnerID: &owner,
		Prompt:  formValue(c, "prompt"),
		Size:    formValue(c, "size"),
	}
	ref, deduped, err := h.Assets.Ingest(c.Request().Context(), in)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if deduped {
		status = http.StatusOK
	}
	return c.JSON(status, ingestResp{ID: ref.ID, URL: ref.URL, Deduped: deduped})
}

func formValue(c echo.Context, name string) *string {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return nil
	}
	return &v
}
