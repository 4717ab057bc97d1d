// Package cache implements the two-tier TTL cache that sits in front of the risk
// providers. The in-process tier returns the stored pointer itself, so repeated
// lookups within the TTL observe the identical report.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/internal/infrastructure/persistence/redis"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Tier names where a lookup was answered.
const (
	TierL1   = "l1"
	TierL2   = "l2"
	TierMiss = "miss"
)

// FetchFunc loads a fresh value. cacheable=false keeps the value out of both tiers.
type FetchFunc[T any] func(ctx context.Context) (value *T, cacheable bool)

type entry[T any] struct {
	value    *T
	storedAt time.Time
}

// ReportCache memoizes provider reports by key for a fixed TTL.
type ReportCache[T any] struct {
	name    string
	ttl     time.Duration
	l1      *gocache.Cache
	l2      redis.CacheManager
	group   singleflight.Group
	now     func() time.Time
	metrics service.Metrics
	logger  logger.Logger
}

// Option customises a ReportCache.
type Option[T any] func(*ReportCache[T])

// WithL2 adds a Redis tier shared between replicas.
func WithL2[T any](l2 redis.CacheManager) Option[T] {
	return func(c *ReportCache[T]) { c.l2 = l2 }
}

// WithClock replaces time.Now for freshness checks.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *ReportCache[T]) { c.now = now }
}

// WithMetrics records hits and misses.
func WithMetrics[T any](m service.Metrics) Option[T] {
	return func(c *ReportCache[T]) { c.metrics = m }
}

// WithLogger sets the logger used for L2 failures.
func WithLogger[T any](log logger.Logger) Option[T] {
	return func(c *ReportCache[T]) { c.logger = log }
}

// NewReportCache creates a cache named name (used in keys and metrics).
func NewReportCache[T any](name string, ttl, cleanupInterval time.Duration, opts ...Option[T]) *ReportCache[T] {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	c := &ReportCache[T]{
		name:    name,
		ttl:     ttl,
		l1:      gocache.New(ttl, cleanupInterval),
		now:     time.Now,
		metrics: service.NoopMetrics{},
		logger:  logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the cached value for key when it is younger than the TTL,
// otherwise calls fetch once for all concurrent callers of the same key.
func (c *ReportCache[T]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[T]) (*T, string) {
	if v, ok := c.lookupL1(key); ok {
		c.metrics.RecordCacheAccess(c.name, TierL1)
		return v, TierL1
	}

	type result struct {
		value *T
		tier  string
	}
	res, _, _ := c.group.Do(key, func() (interface{}, error) {
		// The fill is shared by every waiter on key; one caller going away must not fail the rest.
		fillCtx := context.WithoutCancel(ctx)
		if v, ok := c.lookupL1(key); ok {
			return result{v, TierL1}, nil
		}
		if v, ok := c.lookupL2(fillCtx, key); ok {
			return result{v, TierL2}, nil
		}
		v, cacheable := fetch(fillCtx)
		if cacheable && v != nil {
			c.store(fillCtx, key, v)
		}
		return result{v, TierMiss}, nil
	})

	r := res.(result)
	c.metrics.RecordCacheAccess(c.name, r.tier)
	return r.value, r.tier
}

// Purge empties the in-process tier and removes this cache's keys from Redis.
func (c *ReportCache[T]) Purge(ctx context.Context) (int, error) {
	n := c.l1.ItemCount()
	c.l1.Flush()
	if c.l2 == nil {
		return n, nil
	}
	removed, err := c.l2.DeletePrefix(ctx, c.name+":")
	return n + removed, err
}

// Len returns the number of in-process entries, expired ones included until cleanup.
func (c *ReportCache[T]) Len() int {
	return c.l1.ItemCount()
}

func (c *ReportCache[T]) lookupL1(key string) (*T, bool) {
	raw, found := c.l1.Get(key)
	if !found {
		return nil, false
	}
	e := raw.(entry[T])
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.l1.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (c *ReportCache[T]) lookupL2(ctx context.Context, key string) (*T, bool) {
	if c.l2 == nil {
		return nil, false
	}
	data, remaining, err := c.l2.Get(ctx, c.name+":"+key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.logger.Warn(ctx, "report cache L2 read failed", logger.Fields{"cache": c.name, "error": err.Error()})
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn(ctx, "report cache L2 entry is corrupt", logger.Fields{"cache": c.name, "error": err.Error()})
		return nil, false
	}
	if remaining <= 0 || remaining > c.ttl {
		remaining = c.ttl
	}
	// Backdate so the L1 copy expires together with the Redis key.
	c.l1.Set(key, entry[T]{value: &v, storedAt: c.now().Add(remaining - c.ttl)}, remaining)
	return &v, true
}

func (c *ReportCache[T]) store(ctx context.Context, key string, v *T) {
	c.l1.Set(key, entry[T]{value: v, storedAt: c.now()}, c.ttl)
	if c.l2 == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn(ctx, "report cache encode failed", logger.Fields{"cache": c.name, "error": err.Error()})
		return
	}
	if err := c.l2.Set(ctx, c.name+":"+key, data, c.ttl); err != nil {
		c.logger.Warn(ctx, "report cache L2 write failed", logger.Fields{"cache": c.name, "error": err.Error()})
	}
}
