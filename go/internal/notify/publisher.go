package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Reminder is the message envelope handed to the push transport. The
// transport service owns device tokens and the actual delivery.
type Reminder struct {
	Recipient uuid.UUID         `json:"recipient"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	SentAt    time.Time         `json:"sent_at"`
}

// NATSNotifier publishes reminders to NATS, one message per recipient on
// <prefix>.<recipient id>.
type NATSNotifier struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSNotifier creates a notifier over an established NATS connection.
func NewNATSNotifier(conn *nats.Conn, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "push.reminder"
	}
	return &NATSNotifier{conn: conn, prefix: prefix}
}

// Send publishes one reminder. Failures are reported to the caller and never
// panic into the dispatch batch.
func (n *NATSNotifier) Send(ctx context.Context, recipient uuid.UUID, title, body string, data map[string]string) error {
	msg := Reminder{
		Recipient: recipient,
		Title:     title,
		Body:      body,
		Data:      data,
		SentAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("%s.%s", n.prefix, recipient)
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish reminder to %s: %w", subject, err)
	}
	return nil
}

// LogNotifier logs reminders instead of delivering them. Used when no NATS
// URL is configured, e.g. in local development.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, recipient uuid.UUID, title, body string, data map[string]string) error {
	log.Info().
		Str("recipient", recipient.String()).
		Str("title", title).
		Str("body", body).
		Msg("reminder (log only)")
	return nil
}
