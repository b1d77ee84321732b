package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(60, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")

	tb.Reset()
	assert.True(t, tb.Allow(), "reset should refill the bucket")
}

func TestTokenBucketWaitRefills(t *testing.T) {
	// 1200/min is one token every 50ms
	tb := NewTokenBucket(1200, 1)
	require.True(t, tb.Allow())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, tb.Wait(ctx))
}

func TestPauseUntil(t *testing.T) {
	tb := NewTokenBucket(6000, 10)
	tb.PauseUntil(time.Now().Add(80 * time.Millisecond))

	assert.False(t, tb.Allow(), "paused limiter must refuse requests")

	// An earlier deadline does not shorten the pause
	tb.PauseUntil(time.Now())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.True(t, tb.Allow())
}

func TestResetClearsPause(t *testing.T) {
	tb := NewTokenBucket(60, 1)
	tb.PauseUntil(time.Now().Add(time.Hour))
	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestUnlimited(t *testing.T) {
	l := Unlimited()
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow())
	}
	assert.NoError(t, l.Wait(context.Background()))
}
