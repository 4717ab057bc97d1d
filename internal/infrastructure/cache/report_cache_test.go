package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/touristsafety/internal/infrastructure/cache"
	"github.com/turtacn/touristsafety/internal/infrastructure/persistence/redis"
	"github.com/turtacn/touristsafety/pkg/logger"
)

type report struct {
	Value float64 `json:"value"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingFetch(calls *int32, value float64, cacheable bool) cache.FetchFunc[report] {
	return func(ctx context.Context) (*report, bool) {
		atomic.AddInt32(calls, 1)
		return &report{Value: value}, cacheable
	}
}

func TestReportCache_HitWithinTTLIsIdentical(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := cache.NewReportCache[report]("crime", time.Hour, time.Hour, cache.WithClock[report](clock.Now))
	var calls int32

	first, tier := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 3, true))
	assert.Equal(t, cache.TierMiss, tier)

	clock.Advance(59 * time.Minute)
	second, tier := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 9, true))
	assert.Equal(t, cache.TierL1, tier)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestReportCache_RefetchAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := cache.NewReportCache[report]("weather", 30*time.Minute, time.Hour, cache.WithClock[report](clock.Now))
	var calls int32

	first, _ := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 3, true))
	clock.Advance(30 * time.Minute)
	second, tier := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 4, true))

	assert.Equal(t, cache.TierMiss, tier)
	assert.NotSame(t, first, second)
	assert.Equal(t, 4.0, second.Value)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestReportCache_DefaultsAreNotCached(t *testing.T) {
	c := cache.NewReportCache[report]("crime", time.Hour, time.Hour)
	var calls int32

	c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 5, false))
	c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 5, false))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, c.Len())
}

func TestReportCache_ConcurrentMissesFetchOnce(t *testing.T) {
	c := cache.NewReportCache[report]("crime", time.Hour, time.Hour)
	var calls int32
	release := make(chan struct{})
	slowFetch := func(ctx context.Context) (*report, bool) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &report{Value: 2}, true
	}

	var wg sync.WaitGroup
	results := make([]*report, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrFetch(context.Background(), "k", slowFetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestReportCache_L2SharedBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	l2 := redis.NewCacheManager(redis.NewRedisConnectionFromClient(client, logger.NewNoopLogger()), "ts", logger.NewNoopLogger())

	a := cache.NewReportCache[report]("crime", time.Hour, time.Hour, cache.WithL2[report](l2))
	b := cache.NewReportCache[report]("crime", time.Hour, time.Hour, cache.WithL2[report](l2))
	var calls int32

	_, tier := a.GetOrFetch(context.Background(), "k", countingFetch(&calls, 7, true))
	require.Equal(t, cache.TierMiss, tier)
	assert.True(t, mr.Exists("ts:crime:k"))

	got, tier := b.GetOrFetch(context.Background(), "k", countingFetch(&calls, 1, true))
	assert.Equal(t, cache.TierL2, tier)
	assert.Equal(t, 7.0, got.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	again, tier := b.GetOrFetch(context.Background(), "k", countingFetch(&calls, 1, true))
	assert.Equal(t, cache.TierL1, tier)
	assert.Same(t, got, again)

	n, err := a.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("ts:crime:k"))
}

func TestReportCache_SharedFillSurvivesCallerCancel(t *testing.T) {
	c := cache.NewReportCache[report]("crime", time.Hour, time.Hour)
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (*report, bool) {
		close(started)
		<-release
		if ctx.Err() != nil {
			return &report{Value: -1}, false
		}
		return &report{Value: 6}, true
	}

	ctx, cancel := context.WithCancel(context.Background())
	var first *report
	done := make(chan struct{})
	go func() {
		first, _ = c.GetOrFetch(ctx, "k", fetch)
		close(done)
	}()

	<-started
	cancel()
	close(release)
	<-done

	require.NotNil(t, first)
	assert.Equal(t, 6.0, first.Value)

	var calls int32
	second, tier := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, 1, true))
	assert.Equal(t, cache.TierL1, tier)
	assert.Same(t, first, second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
