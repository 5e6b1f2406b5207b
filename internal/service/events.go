// Package service implements the asset store and the calendar on top of the
// repositories.  Services validate input, translate repository failures into
// apperr values and emit domain events; they never see HTTP.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/queue"
)

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

const (
	publishTimeout = 5 * time.Second
	// maxInflightPublishes bounds background publishes per service.
	maxInflightPublishes = 32
)

// eventSink publishes in the background so a slow or absent broker never
// delays the request that produced the event.  When every slot is busy the
// event is dropped instead of piling up goroutines.
type eventSink struct {
	pub   EventPublisher
	log   zerolog.Logger
	slots chan struct{}
}

func newEventSink(pub EventPublisher, log zerolog.Logger) eventSink {
	return eventSink{pub: pub, log: log, slots: make(chan struct{}, maxInflightPublishes)}
}

func (s eventSink) emit(ev queue.Event) {
	if s.pub == nil {
		return
	}
	select {
	case s.slots <- struct{}{}:
	default:
		s.log.Warn().Str("type", ev.Type).Str("subject_id", ev.SubjectID).Msg("event dropped, publisher saturated")
		return
	}
	go func() {
		defer func() { <-s.slots }()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("type", ev.Type).Str("subject_id", ev.SubjectID).Msg("event dropped")
		}
	}()
}

func requirePrincipal(p model.Principal) error {
	if p.UserID == "" {
		return apperr.New(apperr.CodeUnauthorized, "Unauthorized")
	}
	return nil
}
