package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Lua script for atomic token bucket operations
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate / 1000)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
else
    wait_ms = math.ceil((1 - tokens) / rate * 1000)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('PEXPIRE', key, math.ceil(capacity / rate * 1000) + 60000)

return {allowed, math.floor(tokens), wait_ms}
`)

// RedisLimiter shares token buckets across replicas through Redis. When Redis
// fails it falls back to a local limiter instead of rejecting traffic.
type RedisLimiter struct {
	client    redis.UniversalClient
	cfg       Config
	keyPrefix string
	fallback  *LocalLimiter
	now       func() time.Time
	log       logger.Logger
}

// NewRedisLimiter creates a limiter using client.
func NewRedisLimiter(client redis.UniversalClient, cfg Config, keyPrefix string, log logger.Logger) *RedisLimiter {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	cfg = cfg.normalized()
	return &RedisLimiter{
		client:    client,
		cfg:       cfg,
		keyPrefix: keyPrefix,
		fallback:  NewLocalLimiter(cfg, nil),
		now:       time.Now,
		log:       log.WithComponent("rate_limiter"),
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:ratelimit:%s", rl.keyPrefix, key)
	res, err := tokenBucketScript.Run(ctx, rl.client, []string{redisKey},
		rl.cfg.Burst, rl.cfg.rate(), rl.now().UnixMilli()).Int64Slice()
	if err != nil || len(res) != 3 {
		if err == nil {
			err = fmt.Errorf("unexpected script result %v", res)
		}
		rl.log.Warn(ctx, "redis rate limit failed, using local buckets", logger.Fields{"error": err.Error()})
		return rl.fallback.Allow(ctx, key)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Limit:      rl.cfg.Burst,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Cleanup evicts idle buckets of the local fallback.
func (rl *RedisLimiter) Cleanup(maxIdle time.Duration) int {
	return rl.fallback.Cleanup(maxIdle)
}

// Size returns the number of keys tracked by the local fallback.
func (rl *RedisLimiter) Size() int {
	return rl.fallback.Size()
}
