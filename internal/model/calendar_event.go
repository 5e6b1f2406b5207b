package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day.  It marshals as YYYY-MM-DD.
type Date struct{ time.Time }

// NewDate truncates t to its UTC calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a bare date or an RFC 3339 timestamp and keeps only the
// UTC calendar day.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// Color is the event's palette tag.
type Color string

const (
	ColorSky     Color = "sky"
	ColorIndigo  Color = "indigo"
	ColorRose    Color = "rose"
	ColorEmerald Color = "emerald"
	ColorAmber   Color = "amber"
)

func (c Color) Valid() bool {
	switch c {
	case ColorSky, ColorIndigo, ColorRose, ColorEmerald, ColorAmber:
		return true
	}
	return false
}

// NormalizeColor maps anything outside the palette to sky.
func NormalizeColor(s string) Color {
	if c := Color(s); c.Valid() {
		return c
	}
	return ColorSky
}

// Platform is the network a post is planned for.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformTwitter, PlatformLinkedIn, PlatformFacebook,
		PlatformTikTok, PlatformYouTube, PlatformPinterest:
		return true
	}
	return false
}

// Status is the workflow state of an event.
type Status string

const (
	StatusIdea      Status = "idea"
	StatusDraft     Status = "draft"
	StatusReady     Status = "ready"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusIdea, StatusDraft, StatusReady, StatusScheduled, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// CalendarEvent is a dated publishing-plan entry owned by one user.
type CalendarEvent struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Date      Date            `json:"date"`
	Time      *string         `json:"time"`
	Title     string          `json:"title"`
	Caption   *string         `json:"caption"`
	Notes     *string         `json:"notes"`
	Color     Color           `json:"color"`
	Platform  *Platform       `json:"platform"`
	Status    Status          `json:"status"`
	LinkURL   *string         `json:"linkUrl"`
	Hashtags  *string         `json:"hashtags"`
	Labels    []string        `json:"labels"`
	Assets    []AttachedAsset `json:"assets"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AttachedAsset is an asset reference as rendered inside an event.
type AttachedAsset struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// EventAsset is a row of the calendar_event_assets join table.  Position
// keeps the order in which the ids were supplied.
type EventAsset struct {
	EventID  string
	AssetID  string
	Position int
}
