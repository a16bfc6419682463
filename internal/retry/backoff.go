package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"swarmsync/internal/constants"
	"swarmsync/internal/models"
)

// BackoffConfig contains configuration for exponential backoff.
// MaxAttempts <= 0 retries until the context ends.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       bool
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       true,
	}
}

// FeedBackoffConfig builds the reconnect policy for the delivery feed.
func FeedBackoffConfig(cfg models.FeedConfig) BackoffConfig {
	initial := time.Duration(cfg.BackoffInitialMs) * time.Millisecond
	if initial <= 0 {
		initial = constants.DefaultBackoffInitialMs * time.Millisecond
	}
	maxDelay := time.Duration(cfg.BackoffMaxSec) * time.Second
	if maxDelay <= 0 {
		maxDelay = constants.DefaultBackoffMaxSec * time.Second
	}
	return BackoffConfig{
		InitialDelay: initial,
		MaxDelay:     maxDelay,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Backoff implements exponential backoff with optional jitter
type Backoff struct {
	config BackoffConfig
}

func NewBackoff(config BackoffConfig) *Backoff {
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	return &Backoff{config: config}
}

// Retry runs operation until it succeeds, attempts run out or ctx ends.
func (b *Backoff) Retry(ctx context.Context, operation func() error) error {
	return b.RetryWithPredicate(ctx, operation, func(error) bool { return true })
}

// RetryWithPredicate stops at the first error isRetryable rejects.
func (b *Backoff) RetryWithPredicate(ctx context.Context, operation func() error, isRetryable func(error) bool) error {
	var lastErr error
	for attempt := 1; b.config.MaxAttempts <= 0 || attempt <= b.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
		if attempt == b.config.MaxAttempts {
			break
		}
		if err := Sleep(ctx, b.Delay(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// Delay is the wait after the given 1-based attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.config.InitialDelay)
	for i := 1; i < attempt && delay < float64(b.config.MaxDelay); i++ {
		delay *= b.config.Multiplier
	}
	if delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}

	// +-25%
	if b.config.Jitter {
		delay += (rand.Float64() - 0.5) * 0.5 * delay
		if delay < 0 {
			delay = float64(b.config.InitialDelay)
		}
		if delay > float64(b.config.MaxDelay) {
			delay = float64(b.config.MaxDelay)
		}
	}
	return time.Duration(delay)
}

// Sleep waits for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
