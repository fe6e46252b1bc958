package inference

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// rateLimiter is a token bucket sized in requests per minute. Tokens are
// replenished from elapsed time at acquisition, so the limiter needs no
// background goroutine and costs nothing while idle.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
}

// newRateLimiter creates a limiter allowing requestsPerMinute calls,
// with bursts up to that same number. Non-positive rates get the
// default of 60.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	return &rateLimiter{
		tokens:     float64(requestsPerMinute),
		capacity:   float64(requestsPerMinute),
		perSecond:  float64(requestsPerMinute) / 60,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// wait blocks until a token is available or the context is canceled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		sleep, ok := rl.acquire()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-time.After(sleep):
		}
	}
}

// acquire credits tokens accrued since the last call, then takes one if
// available; otherwise it reports how long until the next token accrues.
func (rl *rateLimiter) acquire() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.perSecond)
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}

	shortfall := (1 - rl.tokens) / rl.perSecond
	return time.Duration(shortfall * float64(time.Second)), false
}
