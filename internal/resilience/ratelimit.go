package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between calls for the same ticker.
// Each ticker gets its own token bucket of size one; the clock is injected so
// schedules can be tested without sleeping.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	clock    Clock
}

// NewRateLimiter creates a limiter allowing one call per minInterval per
// ticker. A non-positive interval disables limiting.
func NewRateLimiter(minInterval time.Duration, clock Clock) *RateLimiter {
	if clock == nil {
		clock = SystemClock
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		clock:    clock,
	}
}

func (r *RateLimiter) limiter(ticker string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[ticker]
	if !ok {
		l = rate.NewLimiter(r.limit, 1)
		r.limiters[ticker] = l
	}
	return l
}

// Allow reports whether a call for ticker may proceed now, consuming the slot if so.
func (r *RateLimiter) Allow(ticker string) bool {
	return r.limiter(ticker).AllowN(r.clock.Now(), 1)
}

// Reserve claims the next slot for ticker and returns how long the caller
// must wait before using it.
func (r *RateLimiter) Reserve(ticker string) time.Duration {
	now := r.clock.Now()
	return r.limiter(ticker).ReserveN(now, 1).DelayFrom(now)
}

// Wait blocks until ticker's next slot or ctx is done. A cancelled wait
// returns its slot.
func (r *RateLimiter) Wait(ctx context.Context, ticker string) error {
	now := r.clock.Now()
	res := r.limiter(ticker).ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.CancelAt(r.clock.Now())
		return ctx.Err()
	}
}

// Tickers returns the number of tickers with a tracked schedule.
func (r *RateLimiter) Tickers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
