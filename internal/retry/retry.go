// Package retry decorates a backend call with exponential backoff,
// stopping early on non-retryable failures. It generalizes the orchestrator's
// former translateWithRetry into a standalone, type-parameterized helper;
// the orchestrator wraps each backend call with it.
package retry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/valpere/ensembletran/internal/classify"
)

// Config controls backoff timing and attempt count.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt
	// (default 3, for 4 total attempts).
	MaxRetries int

	// BaseBackoff is the delay before the first retry; it doubles on each
	// subsequent retry up to MaxBackoff (default 1s).
	BaseBackoff time.Duration

	// MaxBackoff caps the exponential backoff delay (default 30s).
	MaxBackoff time.Duration

	// Label identifies the operation in log lines (e.g. a backend id).
	Label string
}

// WithDefaults fills in zero-valued fields with the package defaults.
func (c Config) WithDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Do runs op, retrying with exponential backoff on retryable failures
// (per classify.Retryable) until MaxRetries is exhausted, a non-retryable
// error is returned, or ctx is cancelled. The zero value of T is returned
// alongside the final error when every attempt fails.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.WithDefaults()
	delay := cfg.BaseBackoff

	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > cfg.MaxBackoff {
				delay = cfg.MaxBackoff
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !classify.Retryable(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			fmt.Fprintf(os.Stderr, "[%s] attempt %d/%d failed: %v, retrying...\n",
				cfg.Label, attempt+1, cfg.MaxRetries+1, err)
		}
	}

	return zero, lastErr
}
