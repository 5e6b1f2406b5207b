package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/optional"
)

// CalendarRepo provides persistence for calendar events and their asset
// attachments.  Every query is scoped by the owning user; an event owned by
// someone else is indistinguishable from a missing one.
type CalendarRepo struct {
	db *sql.DB
}

func NewCalendarRepo(db *sql.DB) *CalendarRepo { return &CalendarRepo{db: db} }

const eventColumns = "id, user_id, date, time, title, caption, notes, color, platform, status, link_url, hashtags, labels, created_at, updated_at"

// EventUpdate lists the columns a partial update writes.  Unset fields are
// left untouched.  AssetIDs, when set, replaces the attachment list, and an
// empty list detaches everything.
type EventUpdate struct {
	Date     optional.Value[model.Date]
	Time     optional.Value[*string]
	Title    optional.Value[string]
	Caption  optional.Value[*string]
	Notes    optional.Value[*string]
	Color    optional.Value[model.Color]
	Platform optional.Value[*model.Platform]
	Status   optional.Value[model.Status]
	LinkURL  optional.Value[*string]
	Hashtags optional.Value[*string]
	Labels   optional.Value[[]string]
	AssetIDs optional.Value[[]string]
}

// Create inserts ev and its attachments in one transaction.  An asset id
// that does not exist yields ErrUnknownAsset and nothing is written.
func (r *CalendarRepo) Create(ctx context.Context, ev *model.CalendarEvent, assetIDs []string) error {
	labels, err := encodeLabels(ev.Labels)
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO calendar_events ("+eventColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
			ev.ID, ev.UserID, ev.Date.String(), nullString(ev.Time), ev.Title, nullString(ev.Caption),
			nullString(ev.Notes), string(ev.Color), nullPlatform(ev.Platform), string(ev.Status),
			nullString(ev.LinkURL), nullString(ev.Hashtags), labels, ev.CreatedAt, ev.UpdatedAt)
		if err != nil {
			return err
		}
		return insertAttachments(ctx, tx, ev.ID, assetIDs)
	})
}

// ListRange returns the user's events whose date lies in [from, to], ordered
// by date, then time of day, then creation.  Attachments are loaded with a
// second query and kept in their stored order.
func (r *CalendarRepo) ListRange(ctx context.Context, userID string, from, to model.Date) ([]model.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM calendar_events WHERE user_id=? AND date BETWEEN ? AND ? ORDER BY date ASC, time ASC, created_at ASC",
		userID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CalendarEvent
	index := make(map[string]int)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		index[ev.ID] = len(out)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	arows, err := r.db.QueryContext(ctx,
		`SELECT a.event_id, a.asset_id FROM calendar_event_assets a
		 JOIN calendar_events e ON e.id = a.event_id
		 WHERE e.user_id=? AND e.date BETWEEN ? AND ?
		 ORDER BY a.event_id, a.position`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var eventID, assetID string
		if err := arows.Scan(&eventID, &assetID); err != nil {
			return nil, err
		}
		if i, ok := index[eventID]; ok {
			out[i].Assets = append(out[i].Assets, model.AttachedAsset{ID: assetID, URL: model.AssetURL(assetID)})
		}
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one event with its attachments.
func (r *CalendarRepo) Get(ctx context.Context, userID, id string) (model.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM calendar_events WHERE id=? AND user_id=? LIMIT 1", id, userID)
	ev, err := scanEvent(row)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	assets, err := r.attachments(ctx, id)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	ev.Assets = assets
	return ev, nil
}

func (r *CalendarRepo) attachments(ctx context.Context, eventID string) ([]model.AttachedAsset, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT asset_id FROM calendar_event_assets WHERE event_id=? ORDER BY position", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AttachedAsset{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, model.AttachedAsset{ID: id, URL: model.AssetURL(id)})
	}
	return out, rows.Err()
}

// Update applies u to the event.  The ownership check, the column update
// and the attachment replacement run in one transaction, so readers see
// either the old attachment set or the new one.
func (r *CalendarRepo) Update(ctx context.Context, userID, id string, u EventUpdate) error {
	sets, args, err := u.assignments()
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM calendar_events WHERE id=? AND user_id=? FOR UPDATE", id, userID).Scan(&found)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if len(sets) > 0 {
			sets = append(sets, "updated_at=?")
			args = append(args, time.Now().UTC(), id)
			if _, err := tx.ExecContext(ctx,
				"UPDATE calendar_events SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
				return err
			}
		}
		if assetIDs, ok := u.AssetIDs.Get(); ok {
			if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_event_assets WHERE event_id=?", id); err != nil {
				return err
			}
			return insertAttachments(ctx, tx, id, assetIDs)
		}
		return nil
	})
}

// Delete removes the event and its attachment rows.  The assets themselves
// are not touched.
func (r *CalendarRepo) Delete(ctx context.Context, userID, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM calendar_events WHERE id=? AND user_id=? FOR UPDATE", id, userID).Scan(&found)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_event_assets WHERE event_id=?", id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM calendar_events WHERE id=?", id)
		return err
	})
}

// assignments renders the set fields as "column=?" fragments in a fixed
// column order.
func (u EventUpdate) assignments() ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if v, ok := u.Date.Get(); ok {
		add("date", v.String())
	}
	if v, ok := u.Time.Get(); ok {
		add("time", nullString(v))
	}
	if v, ok := u.Title.Get(); ok {
		add("title", v)
	}
	if v, ok := u.Caption.Get(); ok {
		add("caption", nullString(v))
	}
	if v, ok := u.Notes.Get(); ok {
		add("notes", nullString(v))
	}
	if v, ok := u.Color.Get(); ok {
		add("color", string(v))
	}
	if v, ok := u.Platform.Get(); ok {
		add("platform", nullPlatform(v))
	}
	if v, ok := u.Status.Get(); ok {
		add("status", string(v))
	}
	if v, ok := u.LinkURL.Get(); ok {
		add("link_url", nullString(v))
	}
	if v, ok := u.Hashtags.Get(); ok {
		add("hashtags", nullString(v))
	}
	if v, ok := u.Labels.Get(); ok {
		labels, err := encodeLabels(v)
		if err != nil {
			return nil, nil, err
		}
		add("labels", labels)
	}
	return sets, args, nil
}

func insertAttachments(ctx context.Context, tx *sql.Tx, eventID string, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}
	query := "INSERT INTO calendar_event_assets (event_id, asset_id, position) VALUES "
	args := make([]any, 0, len(assetIDs)*3)
	for i, assetID := range assetIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, eventID, assetID, i)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isForeignKey(err) {
			return ErrUnknownAsset
		}
		return err
	}
	return nil
}

func scanEvent(s rowScanner) (model.CalendarEvent, error) {
	var (
		ev                                         model.CalendarEvent
		date                                       time.Time
		tod, caption, notes, platform, link, hashs sql.NullString
		color, status                              string
		labels                                     []byte
	)
	err := s.Scan(&ev.ID, &ev.UserID, &date, &tod, &ev.Title, &caption, &notes, &color,
		&platform, &status, &link, &hashs, &labels, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CalendarEvent{}, ErrNotFound
		}
		return model.CalendarEvent{}, err
	}
	ev.Date = model.NewDate(date)
	ev.Time = stringPtr(tod)
	ev.Caption = stringPtr(caption)
	ev.Notes = stringPtr(notes)
	ev.Color = model.Color(color)
	if platform.Valid {
		p := model.Platform(platform.String)
		ev.Platform = &p
	}
	ev.Status = model.Status(status)
	ev.LinkURL = stringPtr(link)
	ev.Hashtags = stringPtr(hashs)
	ev.Labels = []string{}
	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &ev.Labels); err != nil {
			return model.CalendarEvent{}, err
		}
		if ev.Labels == nil {
			ev.Labels = []string{}
		}
	}
	ev.Assets = []model.AttachedAsset{}
	return ev, nil
}

func encodeLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	b, err := json.Marshal(labels)
	return string(b), err
}

func nullPlatform(p *model.Platform) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}
