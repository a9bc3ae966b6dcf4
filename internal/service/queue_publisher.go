package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	q "github.com/iliyamo/ride-accounts/internal/queue"
)

// EventPublisher hands account events to the broker.  Implementations must
// not block the request path; a returned error is logged by the caller and
// never fails the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev q.AccountEvent) error
}

// NoopPublisher drops every event.  It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, q.AccountEvent) error { return nil }

// ErrPublisherBusy is returned when the outgoing buffer is full.
var ErrPublisherBusy = errors.New("event publisher buffer full")

// AMQPPublisher buffers events in memory and publishes them to the
// account.events queue from a single goroutine started with Run.  Messages
// are marked as persistent.
type AMQPPublisher struct {
	url    string
	logger *zerolog.Logger
	events chan q.AccountEvent
}

// NewAMQPPublisher returns a publisher for the broker at url holding up to
// buffer pending events.
func NewAMQPPublisher(url string, buffer int, logger *zerolog.Logger) *AMQPPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AMQPPublisher{url: url, logger: logger, events: make(chan q.AccountEvent, buffer)}
}

// Publish enqueues ev without waiting for the broker.
func (p *AMQPPublisher) Publish(_ context.Context, ev q.AccountEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrPublisherBusy
	}
}

// Run connects to the broker and drains the buffer until ctx is done,
// reconnecting with exponential backoff.  An event whose publish fails is
// retried once on the next connection and then dropped.
func (p *AMQPPublisher) Run(ctx context.Context) {
	backoff := time.Second
	var pending *q.AccountEvent
	for ctx.Err() == nil {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			p.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("event publisher: dial failed")
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		pending, err = p.drain(ctx, conn, pending)
		_ = conn.Close()
		if err != nil {
			p.logger.Warn().Err(err).Msg("event publisher: connection lost; reconnecting")
			sleepCtx(ctx, 2*time.Second)
		}
	}
}

func (p *AMQPPublisher) drain(ctx context.Context, conn *amqp.Connection, retry *q.AccountEvent) (*q.AccountEvent, error) {
	ch, err := conn.Channel()
	if err != nil {
		return retry, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.AccountEventsQueue, true, false, false, false, nil); err != nil {
		return retry, fmt.Errorf("queue declare: %w", err)
	}

	if retry != nil {
		if err := p.publish(ctx, ch, *retry); err != nil {
			p.logger.Error().Err(err).Str("type", retry.Type).Str("account_id", retry.AccountID).Msg("event publisher: dropping event")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case ev := <-p.events:
			if err := p.publish(ctx, ch, ev); err != nil {
				return &ev, err
			}
		}
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, ch *amqp.Channel, ev q.AccountEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(pctx,
		"",                   // default exchange
		q.AccountEventsQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // store on disk
			Type:         ev.Type,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// sleepCtx waits for d or until ctx is done.  It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
