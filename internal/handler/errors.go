// Package handler holds the echo handlers of the HTTP API.  Handlers bind
// and validate input, call a service, and return errors to echo; the single
// ErrorHandler below turns them into `{"error": ..., "details": ...}`.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/apperr"
)

// errorBody is the wire shape of every failed response.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler renders err as JSON.  apperr codes map to their status;
// echo's own HTTP errors (404 route, 405, body limit) keep theirs.  Storage
// failures are logged with their cause and reach the client as a bare 500.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}

func render(err error) (int, errorBody) {
	if appErr := apperr.As(err); appErr != nil {
		meta := apperr.MetadataFor(appErr.Code())
		body := errorBody{Error: meta.PublicMessage}
		switch appErr.Code() {
		case apperr.CodeValidation, apperr.CodeNotFound, apperr.CodeConflict,
			apperr.CodeUnauthorized, apperr.CodeDependency:
			if msg := appErr.Message(); msg != "" {
				body.Error = msg
			}
		}
		if meta.DetailsAllowed {
			body.Details = appErr.Details()
		}
		return meta.HTTPStatus, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, errorBody{Error: msg}
	}
	return http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)}
}
