package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/metrics"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/optional"
	"github.com/iliyamo/aupoz/internal/queue"
	"github.com/iliyamo/aupoz/internal/repository"
)

const (
	maxTitleLen  = 500
	maxLinkLen   = 2048
	timeOfDayFmt = "15:04"
)

// CalendarRepository defines persistence operations needed by the calendar.
type CalendarRepository interface {
	Create(ctx context.Context, ev *model.CalendarEvent, assetIDs []string) error
	ListRange(ctx context.Context, userID string, from, to model.Date) ([]model.CalendarEvent, error)
	Get(ctx context.Context, userID, id string) (model.CalendarEvent, error)
	Update(ctx context.Context, userID, id string, u repository.EventUpdate) error
	Delete(ctx context.Context, userID, id string) error
}

// CreateEventInput carries a new event.  Date and Title are required.
type CreateEventInput struct {
	Date     string   `json:"date"`
	Time     *string  `json:"time"`
	Title    string   `json:"title"`
	Caption  *string  `json:"caption"`
	Notes    *string  `json:"notes"`
	Color    string   `json:"color"`
	Platform *string  `json:"platform"`
	Status   string   `json:"status"`
	LinkURL  *string  `json:"linkUrl"`
	Hashtags *string  `json:"hashtags"`
	Labels   []string `json:"labels" validate:"max=50,dive,max=64"`
	AssetIDs []string `json:"assetIds" validate:"max=100"`
}

// EventPatch is a partial update.  Omitted (or null) fields are left alone.
// For the nullable text fields an empty string clears the value.  AssetIDs
// replaces the attachment list when present, and an empty list detaches
// everything.
type EventPatch struct {
	Title    optional.Value[string]   `json:"title"`
	Caption  optional.Value[string]   `json:"caption"`
	Notes    optional.Value[string]   `json:"notes"`
	Color    optional.Value[string]   `json:"color"`
	Date     optional.Value[string]   `json:"date"`
	Time     optional.Value[string]   `json:"time"`
	Platform optional.Value[string]   `json:"platform"`
	Status   optional.Value[string]   `json:"status"`
	LinkURL  optional.Value[string]   `json:"linkUrl"`
	Hashtags optional.Value[string]   `json:"hashtags"`
	Labels   optional.Value[[]string] `json:"labels"`
	AssetIDs optional.Value[[]string] `json:"assetIds"`
}

// Calendar manages a user's publishing plan.  Every operation is scoped to
// the principal; other users' events read as missing.
type Calendar struct {
	repo   CalendarRepository
	events eventSink
	log    zerolog.Logger
}

func NewCalendar(repo CalendarRepository, pub EventPublisher, log zerolog.Logger) *Calendar {
	log = log.With().Str("component", "calendar").Logger()
	return &Calendar{repo: repo, events: newEventSink(pub, log), log: log}
}

// Create validates in and stores the event with its attachments.
func (c *Calendar) Create(ctx context.Context, p model.Principal, in CreateEventInput) (string, error) {
	if err := requirePrincipal(p); err != nil {
		return "", err
	}
	fields := map[string]string{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		fields["title"] = "is required"
	case len(title) > maxTitleLen:
		fields["title"] = "is too long"
	}

	var date model.Date
	if strings.TrimSpace(in.Date) == "" {
		fields["date"] = "is required"
	} else if d, err := model.ParseDate(strings.TrimSpace(in.Date)); err != nil {
		fields["date"] = "must be YYYY-MM-DD"
	} else {
		date = d
	}

	tod, msg := normalizeTime(in.Time)
	if msg != "" {
		fields["time"] = msg
	}
	platform, msg := normalizePlatform(in.Platform)
	if msg != "" {
		fields["platform"] = msg
	}
	status := model.StatusDraft
	if s := strings.TrimSpace(in.Status); s != "" {
		status = model.Status(s)
		if !status.Valid() {
			fields["status"] = "is not a known status"
		}
	}
	link := trimmedOrNil(in.LinkURL)
	if link != nil && len(*link) > maxLinkLen {
		fields["linkUrl"] = "is too long"
	}
	assetIDs, msg := normalizeAssetIDs(in.AssetIDs)
	if msg != "" {
		fields["assetIds"] = msg
	}
	if len(fields) > 0 {
		return "", validationFailed(fields)
	}

	now := time.Now().UTC()
	ev := &model.CalendarEvent{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		Date:      date,
		Time:      tod,
		Title:     title,
		Caption:   trimmedOrNil(in.Caption),
		Notes:     trimmedOrNil(in.Notes),
		Color:     model.NormalizeColor(strings.TrimSpace(in.Color)),
		Platform:  platform,
		Status:    status,
		LinkURL:   link,
		Hashtags:  trimmedOrNil(in.Hashtags),
		Labels:    normalizeLabels(in.Labels),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.repo.Create(ctx, ev, assetIDs); err != nil {
		return "", c.storageErr(err, "create event")
	}

	metrics.RecordCalendarMutation("create")
	c.events.emit(queue.NewEvent(queue.TypeCalendarEventCreated, ev.ID, p.UserID, map[string]string{
		"date":  ev.Date.String(),
		"title": ev.Title,
	}))
	return ev.ID, nil
}

// Query returns the principal's events dated within [from, to], both
// inclusive and both required.
func (c *Calendar) Query(ctx context.Context, p model.Principal, from, to string) ([]model.CalendarEvent, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	fromDate, err := parseBound(from)
	if err != nil {
		fields["from"] = err.Error()
	}
	toDate, err := parseBound(to)
	if err != nil {
		fields["to"] = err.Error()
	}
	if len(fields) == 0 && toDate.Before(fromDate.Time) {
		fields["to"] = "must not be before from"
	}
	if len(fields) > 0 {
		return nil, validationFailed(fields)
	}

	events, err := c.repo.ListRange(ctx, p.UserID, fromDate, toDate)
	if err != nil {
		return nil, c.storageErr(err, "query events")
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	return events, nil
}

// Get returns one event of the principal.
func (c *Calendar) Get(ctx context.Context, p model.Principal, id string) (model.CalendarEvent, error) {
	if err := requirePrincipal(p); err != nil {
		return model.CalendarEvent{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.CalendarEvent{}, apperr.NotFound("event not found")
	}
	ev, err := c.repo.Get(ctx, p.UserID, id)
	if err != nil {
		return model.CalendarEvent{}, c.storageErr(err, "load event")
	}
	return ev, nil
}

// Update writes only the fields present in patch.  An empty patch changes
// nothing but still fails with NotFound for an unknown event.
func (c *Calendar) Update(ctx context.Context, p model.Principal, id string, patch EventPatch) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("event not found")
	}
	u, err := patch.toUpdate()
	if err != nil {
		return err
	}
	if err := c.repo.Update(ctx, p.UserID, id, u); err != nil {
		return c.storageErr(err, "update event")
	}

	metrics.RecordCalendarMutation("update")
	data := map[string]string{}
	if u.AssetIDs.Set {
		data["attachments"] = "replaced"
	}
	c.events.emit(queue.NewEvent(queue.TypeCalendarEventUpdated, id, p.UserID, data))
	return nil
}

// Delete removes the event and its attachments.  Attached assets remain.
func (c *Calendar) Delete(ctx context.Context, p model.Principal, id string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("event not found")
	}
	if err := c.repo.Delete(ctx, p.UserID, id); err != nil {
		return c.storageErr(err, "delete event")
	}

	metrics.RecordCalendarMutation("delete")
	c.events.emit(queue.NewEvent(queue.TypeCalendarEventDeleted, id, p.UserID, nil))
	return nil
}

func (p EventPatch) toUpdate() (repository.EventUpdate, error) {
	var (
		u      repository.EventUpdate
		fields = map[string]string{}
	)
	if v, ok := p.Title.Get(); ok {
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			fields["title"] = "must not be empty"
		case len(v) > maxTitleLen:
			fields["title"] = "is too long"
		default:
			u.Title = optional.Of(v)
		}
	}
	if v, ok := p.Date.Get(); ok {
		d, err := model.ParseDate(strings.TrimSpace(v))
		if err != nil {
			fields["date"] = "must be YYYY-MM-DD"
		} else {
			u.Date = optional.Of(d)
		}
	}
	if v, ok := p.Time.Get(); ok {
		tod, msg := normalizeTime(&v)
		if msg != "" {
			fields["time"] = msg
		} else {
			u.Time = optional.Of(tod)
		}
	}
	if v, ok := p.Platform.Get(); ok {
		platform, msg := normalizePlatform(&v)
		if msg != "" {
			fields["platform"] = msg
		} else {
			u.Platform = optional.Of(platform)
		}
	}
	if v, ok := p.Status.Get(); ok {
		s := model.Status(strings.TrimSpace(v))
		if !s.Valid() {
			fields["status"] = "is not a known status"
		} else {
			u.Status = optional.Of(s)
		}
	}
	if v, ok := p.Color.Get(); ok {
		u.Color = optional.Of(model.NormalizeColor(strings.TrimSpace(v)))
	}
	if v, ok := p.Caption.Get(); ok {
		u.Caption = optional.Of(trimmedOrNil(&v))
	}
	if v, ok := p.Notes.Get(); ok {
		u.Notes = optional.Of(trimmedOrNil(&v))
	}
	if v, ok := p.LinkURL.Get(); ok {
		link := trimmedOrNil(&v)
		if link != nil && len(*link) > maxLinkLen {
			fields["linkUrl"] = "is too long"
		} else {
			u.LinkURL = optional.Of(link)
		}
	}
	if v, ok := p.Hashtags.Get(); ok {
		u.Hashtags = optional.Of(trimmedOrNil(&v))
	}
	if v, ok := p.Labels.Get(); ok {
		u.Labels = optional.Of(normalizeLabels(v))
	}
	if v, ok := p.AssetIDs.Get(); ok {
		ids, msg := normalizeAssetIDs(v)
		if msg != "" {
			fields["assetIds"] = msg
		} else {
			u.AssetIDs = optional.Of(ids)
		}
	}
	if len(fields) > 0 {
		return repository.EventUpdate{}, validationFailed(fields)
	}
	return u, nil
}

func (c *Calendar) storageErr(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("event not found")
	case errors.Is(err, repository.ErrUnknownAsset):
		return validationFailed(map[string]string{"assetIds": "references an unknown asset"})
	}
	return apperr.Storage(err, op)
}

func validationFailed(fields map[string]string) error {
	return apperr.Validation("validation failed").WithDetails(fields)
}

func parseBound(s string) (model.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Date{}, errors.New("is required")
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, errors.New("must be an ISO 8601 date")
	}
	return d, nil
}

// normalizeTime accepts HH:MM; blank clears the time.
func normalizeTime(s *string) (*string, string) {
	v := trimmedOrNil(s)
	if v == nil {
		return nil, ""
	}
	t, err := time.Parse(timeOfDayFmt, *v)
	if err != nil {
		return nil, "must be HH:MM"
	}
	out := t.Format(timeOfDayFmt)
	return &out, ""
}

func normalizePlatform(s *string) (*model.Platform, string) {
	v := trimmedOrNil(s)
	if v == nil {
		return nil, ""
	}
	p := model.Platform(strings.ToLower(*v))
	if !p.Valid() {
		return nil, "is not a known platform"
	}
	return &p, ""
}

// normalizeAssetIDs keeps the first occurrence of each id.
func normalizeAssetIDs(ids []string) ([]string, string) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, err := uuid.Parse(id); err != nil {
			return nil, "must contain asset ids"
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, ""
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
