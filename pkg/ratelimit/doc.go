// Package ratelimit throttles requests sent to the X API.
//
// TokenBucket wraps golang.org/x/time/rate: requests_per_minute sets the
// refill rate and burst_size the bucket capacity. When the API answers 429
// the client calls PauseUntil with the advertised reset time so every
// in-flight traversal backs off together.
//
// Usage:
//
//	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
package ratelimit
