package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/aupoz/internal/model"
)

// GenerationRepo records prompt provenance for assets.
type GenerationRepo struct{ DB *sql.DB }

func NewGenerationRepo(db *sql.DB) *GenerationRepo { return &GenerationRepo{DB: db} }

// Create inserts g, assigning ID and CreatedAt when they are unset.
func (r *GenerationRepo) Create(ctx context.Context, g *model.Generation) error {
	return insertGeneration(ctx, r.DB, g)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertGeneration(ctx context.Context, db execer, g *model.Generation) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO generations (id, user_id, asset_id, caption, image_prompt, size, created_at) VALUES (?,?,?,?,?,?,?)",
		g.ID, g.UserID, g.AssetID, g.Caption, g.ImagePrompt, nullString(g.Size), g.CreatedAt)
	return err
}
