package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/queue"
	"github.com/iliyamo/aupoz/internal/repository"
)

// memAssets enforces hash uniqueness the way the sha256 unique key does.
type memAssets struct {
	mu     sync.Mutex
	byID   map[string]model.Asset
	byHash map[string]string
	gens   []model.Generation
}

func newMemAssets() *memAssets {
	return &memAssets{byID: map[string]model.Asset{}, byHash: map[string]string{}}
}

func (m *memAssets) FindByHash(_ context.Context, h string) (model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[h]
	if !ok {
		return model.Asset{}, repository.ErrNotFound
	}
	a := m.byID[id]
	a.Bytes = nil
	return a, nil
}

func (m *memAssets) InsertIfAbsent(_ context.Context, a model.Asset, gen *model.Generation) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[a.SHA256]
	if !ok {
		a.Bytes = append([]byte(nil), a.Bytes...)
		m.byID[a.ID] = a
		m.byHash[a.SHA256] = a.ID
		id = a.ID
	}
	if gen != nil {
		gen.AssetID = id
		m.gens = append(m.gens, *gen)
	}
	return id, id != a.ID, nil
}

func (m *memAssets) GetByID(_ context.Context, id string) (model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Asset{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAssets) ListByOwner(_ context.Context, ownerID string, limit int) ([]model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Asset
	for _, a := range m.byID {
		if a.OwnerID != nil && *a.OwnerID == ownerID {
			a.Bytes = nil
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAssets) Create(_ context.Context, g *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens = append(m.gens, *g)
	return nil
}

func (m *memAssets) rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memAssets) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

// memCalendar keeps events and ordered attachments; attachments must name
// assets known to the backing asset store.
type memCalendar struct {
	mu      sync.Mutex
	assets  *memAssets
	events  map[string]model.CalendarEvent
	attach  map[string][]string
	updates int
}

func newMemCalendar(assets *memAssets) *memCalendar {
	return &memCalendar{assets: assets, events: map[string]model.CalendarEvent{}, attach: map[string][]string{}}
}

func (m *memCalendar) checkAssets(ids []string) error {
	for _, id := range ids {
		if !m.assets.has(id) {
			return repository.ErrUnknownAsset
		}
	}
	return nil
}

func (m *memCalendar) Create(_ context.Context, ev *model.CalendarEvent, assetIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAssets(assetIDs); err != nil {
		return err
	}
	m.events[ev.ID] = *ev
	m.attach[ev.ID] = append([]string(nil), assetIDs...)
	return nil
}

func (m *memCalendar) expand(ev model.CalendarEvent) model.CalendarEvent {
	ev.Assets = []model.AttachedAsset{}
	for _, id := range m.attach[ev.ID] {
		ev.Assets = append(ev.Assets, model.AttachedAsset{ID: id, URL: model.AssetURL(id)})
	}
	return ev
}

func (m *memCalendar) ListRange(_ context.Context, userID string, from, to model.Date) ([]model.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CalendarEvent
	for _, ev := range m.events {
		if ev.UserID != userID || ev.Date.Before(from.Time) || ev.Date.After(to.Time) {
			continue
		}
		out = append(out, m.expand(ev))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memCalendar) Get(_ context.Context, userID, id string) (model.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.UserID != userID {
		return model.CalendarEvent{}, repository.ErrNotFound
	}
	return m.expand(ev), nil
}

func (m *memCalendar) Update(_ context.Context, userID, id string, u repository.EventUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.UserID != userID {
		return repository.ErrNotFound
	}
	if ids, ok := u.AssetIDs.Get(); ok {
		if err := m.checkAssets(ids); err != nil {
			return err
		}
	}
	changed := false
	set := func(ok bool, apply func()) {
		if ok {
			apply()
			changed = true
		}
	}
	set(u.Date.Set, func() { ev.Date = u.Date.V })
	set(u.Time.Set, func() { ev.Time = u.Time.V })
	set(u.Title.Set, func() { ev.Title = u.Title.V })
	set(u.Caption.Set, func() { ev.Caption = u.Caption.V })
	set(u.Notes.Set, func() { ev.Notes = u.Notes.V })
	set(u.Color.Set, func() { ev.Color = u.Color.V })
	set(u.Platform.Set, func() { ev.Platform = u.Platform.V })
	set(u.Status.Set, func() { ev.Status = u.Status.V })
	set(u.LinkURL.Set, func() { ev.LinkURL = u.LinkURL.V })
	set(u.Hashtags.Set, func() { ev.Hashtags = u.Hashtags.V })
	set(u.Labels.Set, func() { ev.Labels = u.Labels.V })
	if changed {
		ev.UpdatedAt = time.Now().UTC()
		m.updates++
	}
	if ids, ok := u.AssetIDs.Get(); ok {
		m.attach[id] = append([]string(nil), ids...)
	}
	m.events[id] = ev
	return nil
}

func (m *memCalendar) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.events, id)
	delete(m.attach, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
