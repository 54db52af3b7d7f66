package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMessengerNotConfigured is returned when no outbound provider credentials are set
var ErrMessengerNotConfigured = errors.New("messenger not configured")

// Messenger delivers a text message to a canonical phone identifier
type Messenger interface {
	Send(ctx context.Context, to string, body string) error
}

// LogMessenger only logs outbound messages. Used when no provider is configured.
type LogMessenger struct{}

// Send logs the message instead of delivering it
func (LogMessenger) Send(ctx context.Context, to string, body string) error {
	slog.Info("📤 Message (not sent - messenger not configured)", "to", to, "length", len(body))
	slog.Debug("📤 Message body", "to", to, "body", body)
	return nil
}

// RetryMessenger retries failed sends with exponential backoff
type RetryMessenger struct {
	inner    Messenger
	attempts int
	backoff  time.Duration
}

// NewRetryMessenger wraps inner. attempts < 1 is treated as 1.
func NewRetryMessenger(inner Messenger, attempts int, backoff time.Duration) *RetryMessenger {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryMessenger{inner: inner, attempts: attempts, backoff: backoff}
}

// Send tries up to the configured number of attempts, waiting backoff, 2x backoff, ... between them
func (r *RetryMessenger) Send(ctx context.Context, to string, body string) error {
	var (
		err  error
		runs int
	)
	for attempt := 1; attempt <= r.attempts; attempt++ {
		runs = attempt
		err = r.inner.Send(ctx, to, body)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrMessengerNotConfigured) || attempt == r.attempts {
			break
		}

		wait := r.backoff * time.Duration(1<<(attempt-1))
		slog.Warn("Send failed, retrying", "to", to, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("send to %s cancelled after %d attempts: %w", to, attempt, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("send to %s failed after %d attempts: %w", to, runs, err)
}
