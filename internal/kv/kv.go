// Package kv is the KV Cache Adapter: shared ephemeral state (GPU
// telemetry, rate-limit counters) with TTL semantics, backed by Redis.
package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zimage/orchestrator/internal/config"
)

const GPUStatsKey = "ml_worker:gpu_stats"

// Adapter wraps a Redis client for the two ephemeral-state use cases this
// system needs: a single JSON document with TTL (GPU stats) and atomic
// counters with TTL (the distributed rate limiter, per the redesign note
// in §9 — counters live here instead of in per-process memory).
type Adapter struct {
	rdb *redis.Client
}

func NewAdapter(cfg config.KV) *Adapter {
	return &Adapter{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})}
}

func (a *Adapter) Close() error { return a.rdb.Close() }

func (a *Adapter) Ping(ctx context.Context) error {
	return a.rdb.Ping(ctx).Err()
}

// SetJSON writes raw JSON bytes under key with the given TTL.
func (a *Adapter) SetJSON(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	return a.rdb.Set(ctx, key, raw, ttl).Err()
}

// GetJSON reads back the raw JSON bytes for key, reporting whether the key
// was present (it may have expired or never been written).
func (a *Adapter) GetJSON(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := a.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Incr atomically increments the per-window counter for key, setting its
// TTL to window only on first creation so the window doesn't reset on
// every request within it. Returns the post-increment count.
func (a *Adapter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := a.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// TTL reports the remaining time-to-live on key, used to compute the
// rate-limit reset timestamp.
func (a *Adapter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return a.rdb.TTL(ctx, key).Result()
}
