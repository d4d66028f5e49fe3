// Package cache is a small key/value cache with a Redis driver and an
// in-process LRU driver. Values are stored as JSON so both drivers behave the
// same way for callers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/orderly/config"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/metrics"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is implemented by every driver.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent or expired and reports
	// whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Driver() string
}

// Connect builds the driver selected by CACHE_DRIVER. A Redis driver that
// cannot be reached falls back to memory so the API stays available.
func Connect(ctx context.Context) (Store, error) {
	if config.CacheDriver() == "redis" {
		rs, err := NewRedis(ctx, config.RedisAddr(), config.RedisPassword())
		if err == nil {
			return rs, nil
		}
		logger.Warn("cache: redis unavailable, using memory", "error", err)
	}
	return NewMemory(config.CacheSize())
}

// Remember returns the cached value at key, or calls load, caches the result
// for ttl and returns it. Cache failures never fail the call.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if s == nil {
		return load(ctx)
	}

	if raw, err := s.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheHits.WithLabelValues(s.Driver()).Inc()
			return v, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(s.Driver()).Inc()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := s.Set(ctx, key, raw, ttl); err != nil {
		logger.WithCtx(ctx).Warn("cache: set failed", "key", key, "error", err)
	}
	return v, nil
}

// Forget removes the given keys and every key under the given prefixes.
func Forget(ctx context.Context, s Store, keys []string, prefixes ...string) {
	if s == nil {
		return
	}
	if len(keys) > 0 {
		if err := s.Delete(ctx, keys...); err != nil {
			logger.WithCtx(ctx).Warn("cache: delete failed", "keys", keys, "error", err)
		}
	}
	for _, p := range prefixes {
		if err := s.DeletePrefix(ctx, p); err != nil {
			logger.WithCtx(ctx).Warn("cache: delete prefix failed", "prefix", p, "error", err)
		}
	}
}

// Key joins parts with ':'.
func Key(parts ...any) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ":"
		}
		out += fmt.Sprint(p)
	}
	return out
}
