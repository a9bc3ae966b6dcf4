package queue

// consumer.go contains the background consumer that listens to the
// account.events queue, appends one line per event to an audit log file
// and sends the welcome mail for new accounts.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// WelcomeSender delivers the welcome mail.
type WelcomeSender interface {
	SendWelcome(to, firstName, role string) error
}

// Consumer drains account.events.
type Consumer struct {
	url     string
	logPath string
	mail    WelcomeSender
	logger  *zerolog.Logger
	mu      sync.Mutex // serializes writes to logPath
}

// NewConsumer returns a consumer for the broker at url writing to logPath.
// mail may be nil.
func NewConsumer(url, logPath string, mail WelcomeSender, logger *zerolog.Logger) *Consumer {
	return &Consumer{url: url, logPath: logPath, mail: mail, logger: logger}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is done.  Dial failures and dropped connections are retried with
// exponential backoff, so the server keeps running without a broker.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("account-consumer: failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("account-consumer: consume loop ended; reconnecting")
		sleep(ctx, 2*time.Second)
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("account-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(AccountEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, AccountEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(d.Body); err != nil {
			c.logger.Error().Err(err).Msg("account-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage records the event and, for registrations, sends the welcome
// mail.  A mail failure is logged but does not reject the message.
func (c *Consumer) handleMessage(body []byte) error {
	var ev AccountEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.AccountID == "" {
		return errors.New("event without type or account id")
	}
	if err := c.appendLine(ev); err != nil {
		return err
	}
	if ev.Type == EventAccountRegistered && c.mail != nil && ev.Email != "" {
		if err := c.mail.SendWelcome(ev.Email, ev.FirstName, ev.Role); err != nil {
			c.logger.Warn().Err(err).Str("account_id", ev.AccountID).Str("to", ev.Email).Msg("account-consumer: welcome mail not sent")
		}
	}
	return nil
}

func (c *Consumer) appendLine(ev AccountEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Ensure logs directory exists
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | account_id=%s | role=%s | email=%q | name=\"%s %s\"\n",
		ev.OccurredAt, ev.Type, ev.AccountID, ev.Role, ev.Email, ev.FirstName, ev.LastName)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
