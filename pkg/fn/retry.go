package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures retry behavior.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry retries once more after a short pause. Embedding calls sit on
// the request path, so waits stay well under a second.
var DefaultRetry = RetryOpts{
	MaxAttempts: 2,
	InitialWait: 100 * time.Millisecond,
	MaxWait:     500 * time.Millisecond,
	Jitter:      true,
}

// Retry calls f up to MaxAttempts times with exponential backoff. A
// MaxAttempts below 1 is treated as 1.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var result Result[T]
	wait := opts.InitialWait
	for attempt := 0; attempt < attempts; attempt++ {
		result = f(ctx)
		if result.IsOk() || attempt == attempts-1 {
			return result
		}

		sleepDur := wait
		if opts.Jitter {
			sleepDur = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if opts.MaxWait > 0 && sleepDur > opts.MaxWait {
			sleepDur = opts.MaxWait
		}

		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(sleepDur):
		}

		wait *= 2
	}
	return result
}
