// Package redis provides the Redis connection and the key/value cache used as the
// second tier of the provider report cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection connects to Redis and verifies the connection with a ping.
func NewRedisConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*RedisConnection, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})
	rc := &RedisConnection{config: cfg, client: client, logger: log.WithComponent("redis")}

	if err := rc.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	rc.logger.Info(ctx, "Redis connection established successfully", logger.Fields{
		"addr":      cfg.Address,
		"pool_size": cfg.PoolSize,
	})
	return rc, nil
}

// NewRedisConnectionFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisConnectionFromClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{config: &config.RedisConfig{}, client: client, logger: log}
}

// Client returns the underlying client.
func (rc *RedisConnection) Client() redis.UniversalClient {
	return rc.client
}

// Ping checks connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return rc.client.Ping(pingCtx).Err()
}

// HealthCheck pings Redis and reports pool statistics.
func (rc *RedisConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	start := time.Now()
	if err := rc.Ping(ctx); err != nil {
		return nil, err
	}
	stats := rc.client.PoolStats()
	return map[string]interface{}{
		"status":      "healthy",
		"latency_ms":  time.Since(start).Milliseconds(),
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
	}, nil
}

// Close closes the client.
func (rc *RedisConnection) Close() error {
	return rc.client.Close()
}
