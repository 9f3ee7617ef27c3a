package worker

import (
	"context"
	"log/slog"
)

// Mailer is the outbound notification port. Delivery is fire-and-forget
// from the booking flow's point of view; failures are retried by the
// dispatch sweep, never surfaced to customers.
type Mailer interface {
	Send(ctx context.Context, topic string, payload []byte) error
}

// LogMailer writes notifications to the structured log instead of an
// SMTP relay. Stands in wherever a real mail transport is not wired.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(_ context.Context, topic string, payload []byte) error {
	slog.Info("notification dispatched", "topic", topic, "payload", string(payload))
	return nil
}
