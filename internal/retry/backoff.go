// File: internal/retry/backoff.go
package retry

import (
	"context"
	"math/rand"
	"time"

	"fliq-payments/internal/infra/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 10 * time.Second

	jitterMax = time.Second
)

// Options tune the backoff schedule. Zero values take the defaults.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Name labels the operation in metrics.
	Name string

	// ShouldRetry, when set, stops early on errors the caller considers
	// permanent (e.g. 4xx responses). Nil retries every error.
	ShouldRetry func(error) bool
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Name == "" {
		o.Name = "unnamed"
	}
	return o
}

// WithBackoff runs op, retrying on error with exponential backoff and
// jitter: delay(n) = min(base*2^n + random[0,1s), max). It makes exactly
// 1 + MaxRetries attempts and returns the last error once exhausted.
//
// The helper is deliberately error-type agnostic; callers pre-filter
// retryable vs non-retryable failures (see errclass.Retryable).
func WithBackoff[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	o := opts.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.IncRetryAttempt(o.Name)
			if err := sleep(ctx, Delay(attempt-1, o.BaseDelay, o.MaxDelay)); err != nil {
				return zero, err
			}
		}
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if o.ShouldRetry != nil && !o.ShouldRetry(err) {
			return zero, err
		}
	}
	metrics.IncRetryExhausted(o.Name)
	return zero, lastErr
}

// Delay computes the backoff for the given zero-based attempt.
func Delay(attempt int, base, max time.Duration) time.Duration {
	d := base << uint(attempt)
	if d <= 0 || d > max {
		// shift overflow or past the cap; jitter no longer matters
		return max
	}
	d += time.Duration(rand.Int63n(int64(jitterMax)))
	if d > max {
		return max
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
