package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/aupoz/internal/database"
	"github.com/iliyamo/aupoz/internal/handler"
	"github.com/iliyamo/aupoz/internal/middleware"
)

// Guard holds what protected routes are mounted behind.  Limit is the rate
// limiter; it may be nil.
type Guard struct {
	Secret   string
	Sessions middleware.SessionLookup
	Limit    echo.MiddlewareFunc
}

// authed returns the chain for routes that need a session.  The limiter
// runs after RequireSession so its key can include the signed-in user.
func (g Guard) authed() []echo.MiddlewareFunc {
	mw := []echo.MiddlewareFunc{middleware.RequireSession(g.Secret, g.Sessions)}
	if g.Limit != nil {
		mw = append(mw, g.Limit)
	}
	return mw
}

// public returns the chain for anonymous routes; they are limited by ip.
func (g Guard) public() []echo.MiddlewareFunc {
	if g.Limit == nil {
		return nil
	}
	return []echo.MiddlewareFunc{g.Limit}
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and the prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db database.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers account routes.  Sign-up and sign-in issue the sid
// cookie; sign-out and /auth/me require an active session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard Guard) {
	g := e.Group("/auth")
	g.POST("/signup", a.Signup, guard.public()...)
	g.POST("/signin", a.Signin, guard.public()...)

	auth := g.Group("", guard.authed()...)
	auth.POST("/signout", a.Signout)
	auth.GET("/me", a.Me)
}
