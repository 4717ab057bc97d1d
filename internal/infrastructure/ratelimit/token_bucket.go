// Package ratelimit provides per-client request limiting for the HTTP API:
// an in-process token bucket pool and a Redis-backed limiter shared across replicas.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the client identified by key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// TokenBucket implements the token bucket algorithm.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	rate       float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, rate float64, now time.Time) *TokenBucket {
	return &TokenBucket{capacity: capacity, tokens: capacity, rate: rate, lastRefill: now}
}

// take consumes one token if available and reports the tokens left and the wait
// until the next token.
func (tb *TokenBucket) take(now time.Time) (bool, float64, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if elapsed := now.Sub(tb.lastRefill).Seconds(); elapsed > 0 {
		tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.rate)
		tb.lastRefill = now
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return true, tb.tokens, 0
	}
	wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	return false, tb.tokens, wait
}

// Config sizes the buckets: Burst tokens, refilled at RequestsPerMinute.
type Config struct {
	RequestsPerMinute int
	Burst             int
}

func (c Config) normalized() Config {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Burst <= 0 {
		c.Burst = c.RequestsPerMinute
	}
	return c
}

func (c Config) rate() float64 { return float64(c.RequestsPerMinute) / 60 }

type bucketEntry struct {
	bucket   *TokenBucket
	lastUsed time.Time
}

// LocalLimiter keeps one token bucket per key in memory.
type LocalLimiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucketEntry
}

// NewLocalLimiter creates an in-memory limiter. now may be nil.
func NewLocalLimiter(cfg Config, now func() time.Time) *LocalLimiter {
	if now == nil {
		now = time.Now
	}
	return &LocalLimiter{cfg: cfg.normalized(), now: now, buckets: make(map[string]*bucketEntry)}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	l.mu.Lock()
	entry, ok := l.buckets[key]
	if !ok {
		entry = &bucketEntry{bucket: NewTokenBucket(float64(l.cfg.Burst), l.cfg.rate(), now)}
		l.buckets[key] = entry
	}
	entry.lastUsed = now
	l.mu.Unlock()

	allowed, left, wait := entry.bucket.take(now)
	return Decision{Allowed: allowed, Limit: l.cfg.Burst, Remaining: int(left), RetryAfter: wait}, nil
}

// Cleanup drops buckets idle for longer than maxIdle and returns how many were removed.
func (l *LocalLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for key, entry := range l.buckets {
		if now.Sub(entry.lastUsed) > maxIdle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys.
func (l *LocalLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
