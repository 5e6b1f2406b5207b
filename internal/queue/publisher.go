package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/config"
)

// dialTimeout caps the TCP connect and AMQP handshake of a publish.
const dialTimeout = 5 * time.Second

// Publisher sends events to the configured durable queue.  Each call dials
// its own connection; publishing is best effort and failures are logged
// and returned so callers may ignore them.
type Publisher struct {
	cfg config.BrokerConfig
	log zerolog.Logger
}

func NewPublisher(cfg config.BrokerConfig, log zerolog.Logger) *Publisher {
	return &Publisher{cfg: cfg, log: log.With().Str("component", "publisher").Logger()}
}

// Publish marshals ev and sends it as a persistent message.  A disabled
// publisher drops the event silently.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if !p.cfg.Enabled {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("type", ev.Type).Msg("marshal event failed")
		return err
	}

	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(connectTimeout(ctx)),
	})
	if err != nil {
		p.log.Warn().Err(err).Str("type", ev.Type).Msg("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		p.log.Warn().Err(err).Str("queue", p.cfg.Queue).Msg("queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, pub); err != nil {
		p.log.Warn().Err(err).Str("type", ev.Type).Msg("publish failed")
		return err
	}
	p.log.Debug().Str("type", ev.Type).Str("subject_id", ev.SubjectID).Msg("event published")
	return nil
}

// connectTimeout is dialTimeout, shortened to whatever is left of ctx.
func connectTimeout(ctx context.Context) time.Duration {
	d := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}
