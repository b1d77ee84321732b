package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// PauseUntil blocks all requests until t, e.g. after the upstream
	// reported an exhausted quota
	PauseUntil(t time.Time)
	// Reset restores the full burst and clears any pause
	Reset()
}

// TokenBucket implements a token bucket rate limiter on top of x/time/rate
type TokenBucket struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	limit       rate.Limit
	burst       int
	pausedUntil time.Time
}

// NewTokenBucket creates a limiter allowing requestsPerMinute on average
// with bursts of up to burst requests.
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(limit, burst),
		limit:   limit,
		burst:   burst,
	}
}

// Allow checks if a request can proceed right now
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	paused := time.Now().Before(tb.pausedUntil)
	lim := tb.limiter
	tb.mu.Unlock()

	if paused {
		return false
	}
	return lim.Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	tb.mu.Lock()
	until := tb.pausedUntil
	lim := tb.limiter
	tb.mu.Unlock()

	if d := time.Until(until); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lim.Wait(ctx)
}

// PauseUntil holds back every request until t. Earlier deadlines than the
// current one are ignored.
func (tb *TokenBucket) PauseUntil(t time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if t.After(tb.pausedUntil) {
		tb.pausedUntil = t
	}
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
	tb.pausedUntil = time.Time{}
}

// Unlimited returns a Limiter that never blocks
func Unlimited() Limiter {
	return NewTokenBucket(0, 1)
}
