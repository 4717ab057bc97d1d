package ratelimit

import (
	"context"
	"time"

	"github.com/turtacn/touristsafety/pkg/logger"
)

// Janitor defaults.
const (
	DefaultJanitorInterval = time.Minute
	DefaultMaxIdle         = 10 * time.Minute
)

// IdleSweeper is a limiter whose in-process buckets can be evicted.
type IdleSweeper interface {
	Cleanup(maxIdle time.Duration) int
	Size() int
}

// RunJanitor evicts buckets idle for longer than maxIdle every interval until ctx is done.
// 定期清理空闲的限流桶。
func RunJanitor(ctx context.Context, s IdleSweeper, interval, maxIdle time.Duration, log logger.Logger) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Cleanup(maxIdle); removed > 0 {
				log.Debug(ctx, "evicted idle rate limit buckets", logger.Fields{"removed": removed, "tracked": s.Size()})
			}
		}
	}
}
