package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/config"
)

// TokenBucketRateLimiter implements token bucket rate limiting.
type TokenBucketRateLimiter struct {
	capacity   int
	tokens     int
	refillRate time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucketRateLimiter creates a limiter holding capacity tokens and
// adding one back every refillRate.
func NewTokenBucketRateLimiter(capacity int, refillRate time.Duration) *TokenBucketRateLimiter {
	return newTokenBucket(capacity, refillRate, time.Now)
}

// NewRateLimiterFromConfig spreads MaxMessages over Window. It returns nil
// when rate limiting is disabled.
func NewRateLimiterFromConfig(cfg config.RateLimitConfig) *TokenBucketRateLimiter {
	if cfg.MaxMessages <= 0 || cfg.Window <= 0 {
		return nil
	}
	return NewTokenBucketRateLimiter(cfg.MaxMessages, cfg.Window/time.Duration(cfg.MaxMessages))
}

func newTokenBucket(capacity int, refillRate time.Duration, now func() time.Time) *TokenBucketRateLimiter {
	capacity = max(capacity, 0)
	return &TokenBucketRateLimiter{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Tokens returns the tokens currently available.
func (tb *TokenBucketRateLimiter) Tokens() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

// Reset refills the bucket.
func (tb *TokenBucketRateLimiter) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// refill must be called with mu held. Partial periods carry over.
func (tb *TokenBucketRateLimiter) refill() {
	if tb.refillRate <= 0 {
		return
	}
	now := tb.now()
	periods := int(now.Sub(tb.lastRefill) / tb.refillRate)
	if periods <= 0 {
		return
	}
	if tb.tokens+periods >= tb.capacity {
		tb.tokens = tb.capacity
		tb.lastRefill = now
		return
	}
	tb.tokens += periods
	tb.lastRefill = tb.lastRefill.Add(time.Duration(periods) * tb.refillRate)
}
