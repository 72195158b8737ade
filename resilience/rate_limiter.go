package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Allow-style callers that do not wait.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	rate  float64
	burst float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewRateLimiter creates a full token bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(int(cfg.Rate), 1)
	}
	rl := &RateLimiter{rate: cfg.Rate, burst: float64(cfg.Burst), now: time.Now}
	rl.tokens = rl.burst
	rl.last = rl.now()
	return rl
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	return rl.reserve() == 0
}

// Wait takes a token, sleeping until it is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wait := rl.reserve()
	if wait < 0 {
		wait = rl.take()
	}
	return sleep(ctx, wait)
}

// reserve takes a token if available and returns 0, otherwise returns -1
// without taking.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return -1
}

// take borrows a token and returns how long until the debt is repaid.
func (rl *RateLimiter) take() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.rate * float64(time.Second))
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens = min(rl.tokens+now.Sub(rl.last).Seconds()*rl.rate, rl.burst)
	rl.last = now
}

// Tokens returns the tokens currently in the bucket.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}
