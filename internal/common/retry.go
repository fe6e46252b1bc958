package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/konteragroup/kontera/internal/service"
)

var (
	// ErrRateLimit marks a provider 429. Backoff jumps straight to the
	// maximum delay instead of walking the curve.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries wraps the final error once every attempt is spent.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// WithRetry runs operation with exponential backoff until it succeeds,
// the context ends, or opts.MaxAttempts is spent. Zero-valued options
// fall back to 3 attempts and a 100ms delay doubling up to 30s.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	var err error
	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err = operation(); err == nil {
			return nil
		}

		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		if attempt == opts.MaxAttempts {
			break
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * opts.Multiplier)
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, opts.MaxAttempts, err)
}
