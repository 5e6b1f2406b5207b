package middleware

// identity.go stores and reads the authenticated principal on the echo
// context.  Only the session middleware writes it.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/model"
)

const principalKey = "principal"

// SetPrincipal records p on the request context.
func SetPrincipal(c echo.Context, p model.Principal) { c.Set(principalKey, p) }

// PrincipalFrom returns the principal resolved by RequireSession.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.UserID != ""
}

// userID returns the authenticated user id or "anon".
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.UserID
	}
	return "anon"
}
