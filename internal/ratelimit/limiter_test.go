package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rada-ai/rada-vms/internal/ratelimit"
)

func TestCheckRateLimit_Window(t *testing.T) {
	mr := miniredis.RunT(t)
	l := ratelimit.NewLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "salt")
	cfg := ratelimit.LimitConfig{Rate: 2, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.CheckRateLimit(ctx, "rl:test", cfg)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.CheckRateLimit(ctx, "rl:test", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Positive(t, d.RetryAfter)

	mr.FastForward(time.Minute + time.Second)
	d, err = l.CheckRateLimit(ctx, "rl:test", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckRateLimit_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	l := ratelimit.NewLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "salt")
	mr.Close()

	_, err := l.CheckRateLimit(context.Background(), "rl:test", ratelimit.LimitConfig{Rate: 1, Window: time.Second})
	assert.ErrorIs(t, err, ratelimit.ErrRedisUnavailable)
}

func TestHashIP_Stable(t *testing.T) {
	l := ratelimit.NewLimiter(nil, "s1")
	assert.Equal(t, l.HashIP("10.0.0.1"), l.HashIP("10.0.0.1"))
	assert.NotEqual(t, l.HashIP("10.0.0.1"), ratelimit.NewLimiter(nil, "s2").HashIP("10.0.0.1"))
}
