package resilience

import (
	"context"
	"sync"
	"time"
)

// LimiterOpts configures a Limiter.
type LimiterOpts struct {
	// Rate is how many tokens the bucket gains per second. Values at or
	// below 0 are raised to 1.
	Rate float64
	// Burst is the bucket capacity. Values below 1 are raised to 1.
	Burst int
}

// Limiter is a token bucket. The bucket starts full.
type Limiter struct {
	mu     sync.Mutex
	opts   LimiterOpts
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewLimiter builds a limiter with a full bucket.
func NewLimiter(opts LimiterOpts) *Limiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	return &Limiter{opts: opts, tokens: float64(opts.Burst), now: time.Now}
}

// take consumes a token if one is available, otherwise reports how long
// until the next token accrues.
func (l *Limiter) take() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.last.IsZero() {
		l.tokens += now.Sub(l.last).Seconds() * l.opts.Rate
		if l.tokens > float64(l.opts.Burst) {
			l.tokens = float64(l.opts.Burst)
		}
	}
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	wait := time.Duration((1 - l.tokens) / l.opts.Rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return false, wait
}

// Allow consumes a token without blocking.
func (l *Limiter) Allow() bool {
	ok, _ := l.take()
	return ok
}

// Wait blocks until a token is consumed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, wait := l.take()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
