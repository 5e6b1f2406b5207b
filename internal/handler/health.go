package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/database"
)

// Health is the liveness probe used by load balancers.  It returns a plain
// "ok" without touching any dependency.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready reports 200 only while the database answers a ping.
func Ready(db database.Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := database.Ready(c.Request().Context(), db); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
		}
		return c.String(http.StatusOK, "ready")
	}
}
