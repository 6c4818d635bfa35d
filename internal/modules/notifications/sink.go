package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Sink delivers a message to its final transport
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// LogSink writes messages to the log. It is the default when no transport is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log sink
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "notification_log_sink").Logger()}
}

// Name implements Sink
func (s *LogSink) Name() string { return "log" }

// Deliver implements Sink
func (s *LogSink) Deliver(_ context.Context, msg Message) error {
	s.log.Info().
		Str("notification_id", msg.ID).
		Str("user_id", msg.UserID).
		Str("kind", msg.Kind).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Notification")
	return nil
}

// MultiSink delivers to every sink and fails if any of them fails
type MultiSink []Sink

// Name implements Sink
func (m MultiSink) Name() string { return "multi" }

// Deliver implements Sink
func (m MultiSink) Deliver(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
