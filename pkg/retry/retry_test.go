package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
		delays[d] = true
	}
	assert.Greater(t, len(delays), 1, "jitter should vary delays")
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeServerError, 503, "unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	cause := errs.New(errs.ErrorTypeNetwork, 0, "connection refused")

	err := Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "max retry attempts (2) exceeded")
	assert.ErrorIs(t, err, cause)
}

func TestDoNonRetryableError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func(ctx context.Context) error {
		attempts++
		return errs.New(errs.ErrorTypeAuth, 401, "invalid token")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errs.IsAuth(err))
}

func TestDoContextCancellation(t *testing.T) {
	cfg := fastConfig(0)
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	attempts := 0
	start := time.Now()
	err := Do(ctx, cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("flaky")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDoOnRetryCallback(t *testing.T) {
	cfg := fastConfig(3)
	var seen []int
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}

	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("always")
	})

	// No retry follows the final attempt
	assert.Equal(t, []int{1, 2}, seen)
}

func TestBackoffForErrorType(t *testing.T) {
	cfg := fastConfig(3)
	cfg.ByType = &ErrorTypeBackoff{
		RateLimitBackoff: &ConstantBackoff{Delay: 7 * time.Millisecond},
	}

	rateLimited := errs.New(errs.ErrorTypeRateLimit, 429, "slow down")
	assert.Equal(t, 7*time.Millisecond, cfg.backoffFor(rateLimited).NextDelay(1))
	assert.Equal(t, time.Millisecond, cfg.backoffFor(errors.New("other")).NextDelay(1))

	etb := NewErrorTypeBackoff()
	assert.NotNil(t, etb.GetBackoffForError(errs.ErrorTypeNetwork))
	assert.NotNil(t, etb.GetBackoffForError(errs.ErrorTypeServerError))
	assert.Nil(t, etb.GetBackoffForError(errs.ErrorTypeParsing))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, errs.New(errs.ErrorTypeServerError, 500, "boom")
		}
		return []string{"a", "b"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, attempts)
}

func TestFromConfig(t *testing.T) {
	rc := config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Multiplier:  3,
	}
	cfg := FromConfig(rc, logger.NewNopLogger())
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Backoff.NextDelay(2))

	rc.Enabled = false
	assert.Equal(t, 1, FromConfig(rc, nil).MaxAttempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, 404, "gone")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, 429, "later")))
	assert.True(t, DefaultRetryIf(errors.New("eof")))
}
