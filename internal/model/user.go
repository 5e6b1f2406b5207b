package model

import "time"

// User represents an account as stored in the `users` table.  Users own
// assets, generation records and calendar events; deleting a user cascades
// to all of them.
type User struct {
	ID           string    // users.id (uuid)
	Email        string    // users.email, unique and lower-cased
	Name         *string   // users.name (nullable)
	PasswordHash string    // users.password_hash (bcrypt)
	CreatedAt    time.Time // users.created_at
}

// Session models a row in the `sessions` table.  The signed sid cookie
// carries the session ID; a session is usable while it is neither revoked
// nor past ExpiresAt.
type Session struct {
	ID        string     // sessions.id (uuid)
	UserID    string     // sessions.user_id
	ExpiresAt time.Time  // sessions.expires_at
	RevokedAt *time.Time // sessions.revoked_at (null while active)
	CreatedAt time.Time  // sessions.created_at
}

// Active reports whether the session can authenticate a request at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Principal is the authenticated identity handed to every core operation.
// It is resolved once by the session middleware.
type Principal struct {
	UserID    string
	SessionID string
}
