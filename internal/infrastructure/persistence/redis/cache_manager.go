package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// CacheManager is a byte-oriented Redis cache with a key prefix.
type CacheManager interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type cacheManagerImpl struct {
	client redis.UniversalClient
	prefix string
	log    logger.Logger
}

// NewCacheManager creates a new CacheManager. Every key is stored as prefix + ":" + key.
func NewCacheManager(conn *RedisConnection, prefix string, log logger.Logger) CacheManager {
	return &cacheManagerImpl{client: conn.Client(), prefix: prefix, log: log}
}

func (c *cacheManagerImpl) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get returns the value and its remaining TTL.
func (c *cacheManagerImpl) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	full := c.key(key)
	pipe := c.client.Pipeline()
	getCmd := pipe.Get(ctx, full)
	ttlCmd := pipe.PTTL(ctx, full)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	val, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrCacheMiss
		}
		return nil, 0, err
	}
	ttl, err := ttlCmd.Result()
	if err != nil {
		return nil, 0, err
	}
	return val, ttl, nil
}

func (c *cacheManagerImpl) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *cacheManagerImpl) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// DeletePrefix removes every key under prefix and returns how many were removed.
func (c *cacheManagerImpl) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := c.key(prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
