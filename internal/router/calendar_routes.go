package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/handler"
)

// RegisterCalendar registers the calendar endpoints.  Every route requires
// a session; events are always scoped to the signed-in user.
func RegisterCalendar(e *echo.Echo, h *handler.CalendarHandler, guard Guard) {
	g := e.Group("/calendar", guard.authed()...)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("", h.Delete) // DELETE /calendar?id=
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
