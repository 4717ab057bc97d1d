package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/infrastructure/ratelimit"
)

func TestLocalLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	l := ratelimit.NewLocalLimiter(ratelimit.Config{RequestsPerMinute: 60, Burst: 3}, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	other, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "buckets are per key")

	now = now.Add(time.Second)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLocalLimiter_Cleanup(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := ratelimit.NewLocalLimiter(ratelimit.Config{}, func() time.Time { return now })

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	assert.Equal(t, 2, l.Size())

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 2, l.Cleanup(5*time.Minute))
	assert.Equal(t, 0, l.Size())
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := ratelimit.NewRedisLimiter(client, ratelimit.Config{RequestsPerMinute: 1, Burst: 2}, "test", nil)
	ctx := context.Background()

	first, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 2, first.Limit)
	assert.Equal(t, 1, first.Remaining)

	second, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, second.Allowed)

	third, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Greater(t, third.RetryAfter, 50*time.Second)

	assert.True(t, mr.Exists("test:ratelimit:10.0.0.1"))
}

func TestRedisLimiter_FallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	l := ratelimit.NewRedisLimiter(client, ratelimit.Config{RequestsPerMinute: 60, Burst: 1}, "test", nil)

	d, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	assert.Equal(t, 1, l.Size(), "fallback buckets are tracked for the janitor")
}
