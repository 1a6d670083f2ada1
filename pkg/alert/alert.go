// Package alert delivers security-violation and threshold notifications.
// Channels are fire-and-acknowledge: delivery failures are logged
// locally and never propagated as the primary error.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Severity orders alerts.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is one notification.
type Alert struct {
	Severity    Severity          `json:"severity"`
	Source      string            `json:"source"`
	OperationID string            `json:"operation_id,omitempty"`
	Message     string            `json:"message"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	At          time.Time         `json:"at"`
}

// Channel delivers alerts.
type Channel interface {
	Notify(ctx context.Context, a Alert) error
}

// LogChannel writes alerts to a structured logger.
type LogChannel struct {
	log *slog.Logger
}

// NewLogChannel creates a channel on log (nil uses slog.Default).
func NewLogChannel(log *slog.Logger) *LogChannel {
	if log == nil {
		log = slog.Default()
	}
	return &LogChannel{log: log}
}

func (c *LogChannel) Notify(ctx context.Context, a Alert) error {
	c.log.Warn("alert",
		"severity", string(a.Severity),
		"source", a.Source,
		"operation_id", a.OperationID,
		"message", a.Message,
	)
	return nil
}

// WithTimeout bounds delivery time. Security alerts are delivered
// synchronously on the failure path and must not stall it.
func WithTimeout(next Channel, timeout time.Duration) Channel {
	return &timeoutChannel{next: next, timeout: timeout}
}

type timeoutChannel struct {
	next    Channel
	timeout time.Duration
}

func (c *timeoutChannel) Notify(ctx context.Context, a Alert) error {
	if c.timeout <= 0 {
		return c.next.Notify(ctx, a)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.next.Notify(ctx, a) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("alert: delivery timed out after %s", c.timeout)
	}
}

// Throttled drops alerts past the configured rate, so a repeated
// violation cannot flood the channel. Dropped alerts are counted, not
// errors.
type Throttled struct {
	next    Channel
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewThrottled wraps next with a token-bucket limit of perSecond
// alerts and the given burst.
func NewThrottled(next Channel, perSecond float64, burst int, log *slog.Logger) *Throttled {
	if log == nil {
		log = slog.Default()
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     log,
	}
}

func (t *Throttled) Notify(ctx context.Context, a Alert) error {
	if !t.limiter.Allow() {
		t.log.Warn("alert dropped by throttle", "source", a.Source, "operation_id", a.OperationID)
		return nil
	}
	return t.next.Notify(ctx, a)
}
