package router

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/aupoz/internal/handler"
)

// RegisterAssets registers the asset endpoints.  GET /assets/:id is public
// and sits behind the response cache, since asset bytes never change under
// an id.  Listing and uploading require a session.
func RegisterAssets(e *echo.Echo, h *handler.AssetHandler, guard Guard, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/assets/:id", h.Get, cache)
	} else {
		e.GET("/assets/:id", h.Get)
	}

	g := e.Group("/assets", guard.authed()...)
	g.GET("", h.List)
	// Multipart framing adds a little on top of the payload itself.
	g.POST("", h.Upload, echomw.BodyLimit(bodyLimit(h.MaxBytes+1<<20)))
}

// RegisterGenerate registers the image generation endpoint.
func RegisterGenerate(e *echo.Echo, h *handler.GenerateHandler, guard Guard) {
	e.POST("/generate-image", h.Generate, guard.authed()...)
}

// bodyLimit renders n bytes in the "<n>B" form echo's BodyLimit parses.
func bodyLimit(n int64) string {
	return strconv.FormatInt(n, 10) + "B"
}
