package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/aupoz/internal/model"
)

// SessionRepo persists login sessions.  The session id is what the signed
// sid cookie carries; revoking the row invalidates every copy of the cookie.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create opens a session for userID that expires after ttl.
func (r *SessionRepo) Create(ctx context.Context, userID string, ttl time.Duration) (model.Session, error) {
	now := time.Now().UTC()
	s := model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?,?,?,?)",
		s.ID, s.UserID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// GetActive returns the session if it exists, is not revoked and has not
// expired.  Anything else is ErrNotFound.
func (r *SessionRepo) GetActive(ctx context.Context, id string) (model.Session, error) {
	var (
		s         model.Session
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, revoked_at, created_at FROM sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &revokedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	if !s.Active(time.Now().UTC()) {
		return model.Session{}, ErrNotFound
	}
	return s, nil
}

// Revoke marks a session as revoked.  Revoking twice is harmless.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP(3) WHERE id=? AND revoked_at IS NULL", id)
	return err
}

