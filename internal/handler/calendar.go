package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/middleware"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/service"
)

// CalendarService is satisfied by *service.Calendar.
type CalendarService interface {
	Create(ctx context.Context, p model.Principal, in service.CreateEventInput) (string, error)
	Query(ctx context.Context, p model.Principal, from, to string) ([]model.CalendarEvent, error)
	Get(ctx context.Context, p model.Principal, id string) (model.CalendarEvent, error)
	Update(ctx context.Context, p model.Principal, id string, patch service.EventPatch) error
	Delete(ctx context.Context, p model.Principal, id string) error
}

type CalendarHandler struct {
	Calendar CalendarService
	// Now is the clock used for default query bounds.
	Now func() time.Time
}

func NewCalendarHandler(cal CalendarService) *CalendarHandler {
	return &CalendarHandler{Calendar: cal, Now: time.Now}
}

// List answers GET /calendar.  Missing bounds default to today through
// the last day of the current month.
func (h *CalendarHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	if from == "" || to == "" {
		defFrom, defTo := defaultRange(h.Now())
		if from == "" {
			from = defFrom
		}
		if to == "" {
			to = defTo
		}
	}
	items, err := h.Calendar.Query(c.Request().Context(), p, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Create answers POST /calendar with the new event id.
func (h *CalendarHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in service.CreateEventInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	id, err := h.Calendar.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *CalendarHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ev, err := h.Calendar.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// Update applies a partial update.  A key that is absent from the body is
// left alone; `"assetIds": []` detaches everything.
func (h *CalendarHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var patch service.EventPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid request body")
	}
	id := c.Param("id")
	if err := h.Calendar.Update(c.Request().Context(), p, id, patch); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "id": id})
}

// Delete accepts the id either as a path segment or as ?id=.
func (h *CalendarHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if id == "" {
		id = strings.TrimSpace(c.QueryParam("id"))
	}
	if id == "" {
		return apperr.Validation("validation failed").WithDetails(map[string]string{"id": "is required"})
	}
	if err := h.Calendar.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func principal(c echo.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, apperr.New(apperr.CodeUnauthorized, "Unauthorized")
	}
	return p, nil
}

// defaultRange is today through the end of today's month, in UTC.
func defaultRange(now time.Time) (string, string) {
	today := model.NewDate(now)
	end := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return today.String(), end.Format(model.DateLayout)
}
