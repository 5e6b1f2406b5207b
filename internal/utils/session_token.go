package utils // package utils provides password hashing and session token signing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSessionToken is returned for tokens that fail signature, expiry
// or claim checks.
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionToken is the signed value placed in the sid cookie.  It carries the
// session id (jti) and the user id (sub); the session row stays the source
// of truth for revocation.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims are the claims extracted from a verified token.
type SessionClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// NewSessionToken signs an HS256 token for the given session.
func NewSessionToken(secret, userID, sessionID string, exp time.Time) (SessionToken, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        sessionID,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns its claims.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	return SessionClaims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
