package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/imagegen"
	"github.com/iliyamo/aupoz/internal/service"
)

// ImageGenerator is satisfied by *imagegen.Client.
type ImageGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt, size string) (imagegen.Image, error)
}

type GenerateHandler struct {
	Images ImageGenerator
	Assets AssetService
	Log    zerolog.Logger
}

func NewGenerateHandler(images ImageGenerator, assets AssetService, log zerolog.Logger) *GenerateHandler {
	return &GenerateHandler{Images: images, Assets: assets, Log: log}
}

type generateReq struct {
	Prompt string `json:"prompt" validate:"required,max=4000"`
	Size   string `json:"size" validate:"omitempty,oneof=1024x1024 1024x1792 1792x1024 1536x1024 1024x1536"`
}

type generateResp struct {
	URL     string `json:"url"`
	ID      string `json:"id,omitempty"`
	Deduped bool   `json:"deduped"`
	Mock    bool   `json:"mock,omitempty"`
}

// Generate renders an image for the prompt and stores it with provenance.
// Without a usable provider the response is a placeholder data URL flagged
// as mock; nothing is stored in that case.
func (h *GenerateHandler) Generate(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Size = strings.TrimSpace(req.Size)
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !h.Images.Enabled() {
		return c.JSON(http.StatusOK, generateResp{URL: imagegen.MockDataURL(), Mock: true})
	}

	img, err := h.Images.Generate(c.Request().Context(), req.Prompt, req.Size)
	if err != nil {
		if errors.Is(err, imagegen.ErrUseMock) {
			h.Log.Warn().Err(err).Str("user_id", p.UserID).Msg("image provider unavailable, returning mock")
			return c.JSON(http.StatusOK, generateResp{URL: imagegen.MockDataURL(), Mock: true})
		}
		var pe *imagegen.ProviderError
		if errors.As(err, &pe) {
			return apperr.Wrap(apperr.CodeDependency, err, "image generation failed").
				WithDetails(map[string]any{"status": pe.Status})
		}
		return apperr.Wrap(apperr.CodeDependency, err, "image generation failed")
	}

	size := req.Size
	if size == "" {
		size = imagegen.DefaultSize
	}
	owner, prompt := p.UserID, req.Prompt
	ref, deduped, err := h.Assets.Ingest(c.Request().Context(), service.IngestInput{
		Bytes:   img.Bytes,
		MIME:    img.MIME,
		OwnerID: &owner,
		Prompt:  &prompt,
		Size:    &size,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, generateResp{URL: ref.URL, ID: ref.ID, Deduped: deduped})
}
