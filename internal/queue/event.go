// Package queue carries domain events over RabbitMQ: the envelope
// published by the API process and the consumer run by the worker.
package queue

import "time"

// Event types.
const (
	TypeAssetIngested        = "asset.ingested"
	TypeCalendarEventCreated = "calendar.event.created"
	TypeCalendarEventUpdated = "calendar.event.updated"
	TypeCalendarEventDeleted = "calendar.event.deleted"
)

// Event is the message envelope.  Data holds a small, type-specific set of
// attributes so consumers never need to query the primary database.
type Event struct {
	Type       string            `json:"type"`
	SubjectID  string            `json:"subject_id"`
	UserID     string            `json:"user_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(typ, subjectID, userID string, data map[string]string) Event {
	return Event{
		Type:       typ,
		SubjectID:  subjectID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
