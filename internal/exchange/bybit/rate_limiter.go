package bybit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by the page requests of a feed
type RateLimiter struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mutex      sync.Mutex

	now func() time.Time
}

// NewRateLimiter creates a full bucket of capacity tokens refilled at
// refillRate tokens per second
func NewRateLimiter(capacity int, refillRate float64) *RateLimiter {
	return &RateLimiter{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow takes one token if available
func (rl *RateLimiter) Allow() bool {
	_, ok := rl.reserve()
	return ok
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := rl.reserve()
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

// reserve takes a token, or reports how long until one is available
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.lastRefill); elapsed > 0 {
		rl.tokens += elapsed.Seconds() * rl.refillRate
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastRefill = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}
	if rl.refillRate <= 0 {
		return time.Second, false
	}
	return time.Duration((1 - rl.tokens) / rl.refillRate * float64(time.Second)), false
}
