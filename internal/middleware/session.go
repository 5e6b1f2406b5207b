package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/repository"
	"github.com/iliyamo/aupoz/internal/utils"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "sid"

// SessionLookup is satisfied by *repository.SessionRepo.
type SessionLookup interface {
	GetActive(ctx context.Context, id string) (model.Session, error)
}

// RequireSession authenticates the request from the sid cookie or, failing
// that, an "Authorization: Bearer" header carrying the same token.  The
// token must verify against secret and name a session that is still
// active for the same user.  Anything else is a 401, except a failing
// session lookup, which is a storage error.
func RequireSession(secret string, sessions SessionLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := SessionToken(c.Request())
			if raw == "" {
				return unauthorized()
			}
			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return unauthorized()
			}
			s, err := sessions.GetActive(c.Request().Context(), claims.SessionID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return unauthorized()
				}
				return apperr.Storage(err, "load session")
			}
			if s.UserID != claims.UserID {
				return unauthorized()
			}
			SetPrincipal(c, model.Principal{UserID: s.UserID, SessionID: s.ID})
			return next(c)
		}
	}
}

// SessionToken extracts the raw token from the cookie or bearer header.
func SessionToken(r *http.Request) string {
	if ck, err := r.Cookie(SessionCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func unauthorized() error {
	return apperr.New(apperr.CodeUnauthorized, "Unauthorized")
}
