package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetry marks an error as transient.
//
// Wrap it (`fmt.Errorf("%w: %w", ErrRetry, cause)`) to ask Blocking to try again.
var ErrRetry = errors.New("retry")

// ErrExhausted is returned by a Backoff which has no chance left.
var ErrExhausted = errors.New("retry: exhausted")

// Backoff is a (blocking) function deciding when to retry.
//
// # Args
//
// - context: context. If context is canceled, Backoff should return ctx.Err().
//
// # Returns
//
// - error: nil if retry, non-nil if not.
type Backoff func(context.Context) error

// StaticBackoff returns a Backoff function that waits for a fixed interval.
func StaticBackoff(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff returns a Backoff function that waits with exponential backoff.
//
// For N-th call, it waits for `initialInterval * r^N` or context to be done.
func ExponentialBackoff(initialInterval time.Duration, r float64) Backoff {
	interval := initialInterval
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(float64(interval) * r)
			return nil
		}
	}
}

// Limit allows b to be passed at most `times` times.
//
// After that, the Backoff returns ErrExhausted without waiting.
func Limit(times int, b Backoff) Backoff {
	left := times
	return func(ctx context.Context) error {
		if left <= 0 {
			return ErrExhausted
		}
		left -= 1
		return b(ctx)
	}
}

// Blocking calls f until it returns nil or non-retry error.
//
// f is called once immediately.
// When it returns an error wrapping ErrRetry, Blocking waits with b and calls f again.
//
// # Returns
//
// - T: last return value of f
//
// - error: nil when f succeeds.
// The last error of f when it is not retryable or b has no chance left.
// ctx.Err() when ctx is done while waiting.
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	for {
		last, err := f()
		if err == nil {
			return last, nil
		}
		if !errors.Is(err, ErrRetry) {
			return last, err
		}
		if berr := b(ctx); berr != nil {
			if errors.Is(berr, ErrExhausted) {
				return last, err
			}
			return last, berr
		}
	}
}
