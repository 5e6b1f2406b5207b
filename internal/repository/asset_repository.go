package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/aupoz/internal/model"
)

// AssetRepo stores content-addressed blobs.  The sha256 column is unique,
// so the database is the only arbiter of which row wins a concurrent
// ingest of identical bytes.
type AssetRepo struct{ DB *sql.DB }

func NewAssetRepo(db *sql.DB) *AssetRepo { return &AssetRepo{DB: db} }

const assetMetaColumns = "id, user_id, mime, size, sha256, created_at"

// FindByHash returns the metadata of the asset whose payload hashes to
// sha256Hex.  Bytes are not loaded.
func (r *AssetRepo) FindByHash(ctx context.Context, sha256Hex string) (model.Asset, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+assetMetaColumns+" FROM assets WHERE sha256=? LIMIT 1", sha256Hex)
	return scanAssetMeta(row)
}

// GetByID returns the asset including its payload.
func (r *AssetRepo) GetByID(ctx context.Context, id string) (model.Asset, error) {
	var (
		a     model.Asset
		owner sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+assetMetaColumns+", bytes FROM assets WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &owner, &a.MIME, &a.Size, &a.SHA256, &a.CreatedAt, &a.Bytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Asset{}, ErrNotFound
		}
		return model.Asset{}, err
	}
	a.OwnerID = stringPtr(owner)
	return a, nil
}

// InsertIfAbsent stores a unless a row with the same hash already exists,
// and returns the id of whichever row holds the hash afterwards.  deduped
// is true when that row is not a.  When gen is non-nil it is attached to
// the winning asset and written in the same transaction.
func (r *AssetRepo) InsertIfAbsent(ctx context.Context, a model.Asset, gen *model.Generation) (id string, deduped bool, err error) {
	err = withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assets (id, user_id, mime, size, sha256, bytes, created_at)
			 VALUES (?,?,?,?,?,?,?)
			 ON DUPLICATE KEY UPDATE id = id`,
			a.ID, nullString(a.OwnerID), a.MIME, a.Size, a.SHA256, a.Bytes, a.CreatedAt); err != nil {
			return err
		}
		// Locking read so a row committed by a racing ingest is visible.
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM assets WHERE sha256=? LOCK IN SHARE MODE", a.SHA256).Scan(&id); err != nil {
			return err
		}
		if gen != nil {
			gen.AssetID = id
			if err := insertGeneration(ctx, tx, gen); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return id, id != a.ID, nil
}

// ListByOwner returns the owner's assets newest first, without payloads.
func (r *AssetRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Asset, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+assetMetaColumns+" FROM assets WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?",
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Asset, 0, limit)
	for rows.Next() {
		a, err := scanAssetMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssetMeta(s rowScanner) (model.Asset, error) {
	var (
		a     model.Asset
		owner sql.NullString
	)
	if err := s.Scan(&a.ID, &owner, &a.MIME, &a.Size, &a.SHA256, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Asset{}, ErrNotFound
		}
		return model.Asset{}, err
	}
	a.OwnerID = stringPtr(owner)
	return a, nil
}
