package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/metrics"
)

// RequestLogger logs one line per request and feeds the request metrics.
// It runs after echo's RequestID middleware so the id is available.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Render now so the logged status matches what the client gets.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			metrics.RecordRequest(req.Method, route, strconv.Itoa(res.Status), elapsed.Seconds())

			ev := log.Info()
			if res.Status >= 500 {
				ev = log.Error()
			} else if res.Status >= 400 {
				ev = log.Warn()
			}
			ev.Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("route", route).
				Int("status", res.Status).
				Int64("bytes", res.Size).
				Dur("latency", elapsed).
				Str("user_id", userID(c)).
				Msg("request")
			return nil
		}
	}
}
