package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/metrics"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/queue"
	"github.com/iliyamo/aupoz/internal/repository"
)

// AssetRepository defines persistence operations needed by the asset store.
type AssetRepository interface {
	FindByHash(ctx context.Context, sha256Hex string) (model.Asset, error)
	InsertIfAbsent(ctx context.Context, a model.Asset, gen *model.Generation) (string, bool, error)
	GetByID(ctx context.Context, id string) (model.Asset, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Asset, error)
}

// GenerationRepository records provenance on dedup hits.
type GenerationRepository interface {
	Create(ctx context.Context, g *model.Generation) error
}

// AssetStoreConfig bounds payload size and listing length.
type AssetStoreConfig struct {
	MaxBytes int64
	PageSize int
}

// IngestInput is one payload to store.  Prompt and OwnerID together produce
// a generation record; Caption defaults to Prompt.
type IngestInput struct {
	Bytes   []byte
	MIME    string
	OwnerID *string
	Prompt  *string
	Caption *string
	Size    *string
}

// AssetStore orchestrates content-addressed ingestion and retrieval.
type AssetStore struct {
	cfg    AssetStoreConfig
	assets AssetRepository
	gens   GenerationRepository
	events eventSink
	log    zerolog.Logger
}

func NewAssetStore(cfg AssetStoreConfig, assets AssetRepository, gens GenerationRepository, pub EventPublisher, log zerolog.Logger) *AssetStore {
	if cfg.PageSize < 1 {
		cfg.PageSize = 60
	}
	log = log.With().Str("component", "asset-store").Logger()
	return &AssetStore{
		cfg:    cfg,
		assets: assets,
		gens:   gens,
		events: newEventSink(pub, log),
		log:    log,
	}
}

// Ingest stores in.Bytes unless identical bytes are already stored, and
// returns the reference of the stored row.  deduped reports that an
// existing row was reused.
func (s *AssetStore) Ingest(ctx context.Context, in IngestInput) (model.AssetRef, bool, error) {
	size := int64(len(in.Bytes))
	if size == 0 {
		metrics.RecordIngest(metrics.IngestRejected, 0)
		return model.AssetRef{}, false, apperr.Validation("payload is empty")
	}
	if s.cfg.MaxBytes > 0 && size > s.cfg.MaxBytes {
		metrics.RecordIngest(metrics.IngestRejected, 0)
		return model.AssetRef{}, false, apperr.Validation("payload too large").
			WithDetails(map[string]any{"maxBytes": s.cfg.MaxBytes, "size": size})
	}

	sum := sha256.Sum256(in.Bytes)
	hash := hex.EncodeToString(sum[:])
	gen := generationFor(in)

	existing, err := s.assets.FindByHash(ctx, hash)
	switch {
	case err == nil:
		if gen != nil {
			gen.AssetID = existing.ID
			if err := s.gens.Create(ctx, gen); err != nil {
				metrics.RecordIngest(metrics.IngestFailed, 0)
				return model.AssetRef{}, false, apperr.Storage(err, "record generation")
			}
		}
		return s.ingested(existing, true), true, nil
	case !errors.Is(err, repository.ErrNotFound):
		metrics.RecordIngest(metrics.IngestFailed, 0)
		return model.AssetRef{}, false, apperr.Storage(err, "lookup asset by hash")
	}

	a := model.Asset{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		MIME:      resolveMIME(in.MIME, in.Bytes),
		Size:      size,
		SHA256:    hash,
		Bytes:     in.Bytes,
		CreatedAt: time.Now().UTC(),
	}
	id, deduped, err := s.assets.InsertIfAbsent(ctx, a, gen)
	if err != nil {
		metrics.RecordIngest(metrics.IngestFailed, 0)
		return model.AssetRef{}, false, apperr.Storage(err, "store asset")
	}
	if deduped {
		// Lost a race with an identical ingest; report the winner's metadata.
		winner, err := s.assets.FindByHash(ctx, hash)
		if err != nil {
			metrics.RecordIngest(metrics.IngestFailed, 0)
			return model.AssetRef{}, false, apperr.Storage(err, "resolve deduplicated asset")
		}
		return s.ingested(winner, true), true, nil
	}
	a.ID = id
	return s.ingested(a, false), false, nil
}

func (s *AssetStore) ingested(a model.Asset, deduped bool) model.AssetRef {
	if deduped {
		metrics.RecordIngest(metrics.IngestDeduped, 0)
	} else {
		metrics.RecordIngest(metrics.IngestStored, a.Size)
	}
	s.log.Debug().Str("asset_id", a.ID).Bool("deduped", deduped).Int64("size", a.Size).Msg("asset ingested")

	var owner string
	if a.OwnerID != nil {
		owner = *a.OwnerID
	}
	s.events.emit(queue.NewEvent(queue.TypeAssetIngested, a.ID, owner, map[string]string{
		"mime":    a.MIME,
		"size":    strconv.FormatInt(a.Size, 10),
		"deduped": strconv.FormatBool(deduped),
	}))
	return refOf(a)
}

// Retrieve returns the stored asset including its bytes.
func (s *AssetStore) Retrieve(ctx context.Context, id string) (model.Asset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Asset{}, apperr.NotFound("asset not found")
	}
	a, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Asset{}, apperr.NotFound("asset not found")
		}
		return model.Asset{}, apperr.Storage(err, "load asset")
	}
	return a, nil
}

// List returns the owner's assets newest first.  limit is clamped to
// 1..PageSize; zero or negative means a full page.
func (s *AssetStore) List(ctx context.Context, ownerID string, limit int) ([]model.AssetRef, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "Unauthorized")
	}
	if limit < 1 || limit > s.cfg.PageSize {
		limit = s.cfg.PageSize
	}
	rows, err := s.assets.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, apperr.Storage(err, "list assets")
	}
	out := make([]model.AssetRef, 0, len(rows))
	for _, a := range rows {
		out = append(out, refOf(a))
	}
	return out, nil
}

func refOf(a model.Asset) model.AssetRef {
	ref := a.Ref()
	ref.URL = model.AssetURL(a.ID)
	return ref
}

func generationFor(in IngestInput) *model.Generation {
	if in.OwnerID == nil || *in.OwnerID == "" || in.Prompt == nil || strings.TrimSpace(*in.Prompt) == "" {
		return nil
	}
	prompt := strings.TrimSpace(*in.Prompt)
	caption := prompt
	if in.Caption != nil && strings.TrimSpace(*in.Caption) != "" {
		caption = strings.TrimSpace(*in.Caption)
	}
	return &model.Generation{
		UserID:      *in.OwnerID,
		Caption:     caption,
		ImagePrompt: prompt,
		Size:        in.Size,
	}
}

// resolveMIME keeps a specific declared type and sniffs otherwise.
func resolveMIME(declared string, data []byte) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if declared != "" && declared != "application/octet-stream" && strings.Contains(declared, "/") {
		return declared
	}
	return mimetype.Detect(data).String()
}
