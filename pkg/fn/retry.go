package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures Retry.
type RetryOpts struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialWait is the delay before the second attempt. Each further
	// attempt doubles it, capped at MaxWait.
	InitialWait time.Duration
	MaxWait     time.Duration
	// Jitter randomizes each delay within [0.5x, 1.5x].
	Jitter bool
}

// DefaultRetry is a reasonable policy for calls to external services.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// Retry runs f until it succeeds, attempts are exhausted, or ctx is
// cancelled. The last failure is returned when attempts run out.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	var last Result[T]
	for attempt := 1; ; attempt++ {
		last = f(ctx)
		if last.IsOk() || attempt >= opts.MaxAttempts {
			return last
		}
		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(opts.backoff(attempt)):
		}
	}
}

// backoff returns the delay to sleep after the given 1-based attempt.
func (o RetryOpts) backoff(attempt int) time.Duration {
	d := o.InitialWait
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.MaxWait {
			d = o.MaxWait
			break
		}
	}
	if o.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()))
	}
	if d > o.MaxWait {
		d = o.MaxWait
	}
	return d
}
