// Package storage provides the Redis segmentation cache and object storage for chunk output.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

// RedisClient defines the interface for Redis operations.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig holds configuration for the segment cache.
type CacheConfig struct {
	Prefix string
	TTL    time.Duration
}

// DefaultCacheConfig returns a default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Prefix: "chunker",
		TTL:    7 * 24 * time.Hour,
	}
}

// CacheMetrics tracks cache hit/miss statistics.
type CacheMetrics struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// SegmentCache stores oracle segmentations in Redis. Every failure is logged and treated as a
// miss; the pipeline never depends on the cache being reachable.
type SegmentCache struct {
	client  RedisClient
	config  CacheConfig
	logger  *slog.Logger
	metrics CacheMetrics
	healthy atomic.Bool
}

// NewSegmentCache creates a segment cache. A nil or unreachable client yields a disabled cache.
func NewSegmentCache(ctx context.Context, client RedisClient, logger *slog.Logger, config CacheConfig) *SegmentCache {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Prefix == "" {
		config.Prefix = DefaultCacheConfig().Prefix
	}

	sc := &SegmentCache{
		client: client,
		config: config,
		logger: logger.With("component", "segment_cache"),
	}

	if client != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			sc.logger.Warn("Redis connection failed, cache will be disabled", "error", err)
		} else {
			sc.healthy.Store(true)
		}
	}

	return sc
}

// IsHealthy returns whether the cache is operational.
func (sc *SegmentCache) IsHealthy() bool {
	return sc.client != nil && sc.healthy.Load()
}

// Health reports the Redis connection state.
func (sc *SegmentCache) Health(ctx context.Context) error {
	if sc.client == nil {
		return fmt.Errorf("segment cache not configured")
	}
	return sc.client.Ping(ctx)
}

// Metrics returns current cache metrics.
func (sc *SegmentCache) Metrics() CacheMetrics {
	return CacheMetrics{
		Hits:   atomic.LoadUint64(&sc.metrics.Hits),
		Misses: atomic.LoadUint64(&sc.metrics.Misses),
		Errors: atomic.LoadUint64(&sc.metrics.Errors),
	}
}

// GetSegments returns the cached segmentation for key.
func (sc *SegmentCache) GetSegments(ctx context.Context, key string) ([]chunker.RawSegment, bool) {
	if !sc.IsHealthy() {
		return nil, false
	}

	start := time.Now()
	data, err := sc.client.Get(ctx, sc.key(key))
	if err != nil {
		atomic.AddUint64(&sc.metrics.Misses, 1)
		sc.logger.Debug("segment cache miss",
			"key", key,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, false
	}

	var segs []chunker.RawSegment
	if err := json.Unmarshal([]byte(data), &segs); err != nil {
		atomic.AddUint64(&sc.metrics.Errors, 1)
		sc.logger.Error("failed to decode cached segments", "key", key, "error", err)
		return nil, false
	}

	atomic.AddUint64(&sc.metrics.Hits, 1)
	sc.logger.Debug("segment cache hit",
		"key", key,
		"segments", len(segs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return segs, true
}

// SetSegments caches a segmentation under key.
func (sc *SegmentCache) SetSegments(ctx context.Context, key string, segs []chunker.RawSegment) {
	if !sc.IsHealthy() {
		return
	}

	data, err := json.Marshal(segs)
	if err != nil {
		sc.logger.Error("failed to encode segments for cache", "error", err)
		return
	}

	if err := sc.client.Set(ctx, sc.key(key), data, sc.config.TTL); err != nil {
		atomic.AddUint64(&sc.metrics.Errors, 1)
		sc.logger.Error("failed to cache segments", "key", key, "error", err)
		return
	}

	sc.logger.Debug("segments cached",
		"key", key,
		"segments", len(segs),
		"ttl", sc.config.TTL,
	)
}

// InvalidateAll removes every cached segmentation and returns the number of keys removed.
func (sc *SegmentCache) InvalidateAll(ctx context.Context) (int, error) {
	if !sc.IsHealthy() {
		return 0, nil
	}

	keys, err := sc.client.Keys(ctx, sc.config.Prefix+":*")
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := sc.client.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("failed to delete cache keys: %w", err)
	}

	sc.logger.Info("segment cache invalidated", "keys", len(keys))
	return len(keys), nil
}

// Close closes the underlying client.
func (sc *SegmentCache) Close() error {
	if sc.client == nil {
		return nil
	}
	return sc.client.Close()
}

func (sc *SegmentCache) key(key string) string {
	return sc.config.Prefix + ":" + key
}
