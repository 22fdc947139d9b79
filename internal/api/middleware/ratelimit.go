package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Limit types used by the router.
const (
	LimitChunk   = "chunk"
	LimitOutputs = "outputs"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	ChunkRequests Limit
	Outputs       Limit
	Default       Limit
	// GracefulDegradation lets requests through when the store is unavailable.
	GracefulDegradation bool
}

// Limit defines a fixed-window rate limit.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultRateLimitConfig returns default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		ChunkRequests:       Limit{Requests: 30, Window: time.Minute},
		Outputs:             Limit{Requests: 120, Window: time.Minute},
		Default:             Limit{Requests: 100, Window: time.Minute},
		GracefulDegradation: true,
	}
}

// RateLimitStore defines the interface for rate limit storage.
type RateLimitStore interface {
	// Increment increments the counter for key, starting a new window when none is open.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// IsHealthy returns whether the store is operational.
	IsHealthy() bool
}

// MemoryRateLimitStore implements RateLimitStore in process memory for single-instance
// deployments.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type rateLimitEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryRateLimitStore creates a store and starts its cleanup loop. Call Close to stop it.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	store := &MemoryRateLimitStore{
		entries: make(map[string]*rateLimitEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go store.cleanup(5 * time.Minute)
	return store
}

// Increment increments the counter for a key.
func (s *MemoryRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, exists := s.entries[key]
	if !exists || now.After(entry.expiresAt) {
		s.entries[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}

	entry.count++
	return entry.count, nil
}

// IsHealthy returns whether the store is operational.
func (s *MemoryRateLimitStore) IsHealthy() bool {
	return true
}

// Close stops the cleanup loop.
func (s *MemoryRateLimitStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryRateLimitStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// RedisClient defines the Redis operations needed by rate limiting.
type RedisClient interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Ping(ctx context.Context) error
}

// RedisRateLimitStore implements RateLimitStore on Redis for multi-instance deployments.
type RedisRateLimitStore struct {
	client  RedisClient
	prefix  string
	healthy atomic.Bool
	logger  *slog.Logger
}

// NewRedisRateLimitStore creates a Redis-backed store. A failed ping marks it unhealthy.
func NewRedisRateLimitStore(ctx context.Context, client RedisClient, prefix string, logger *slog.Logger) *RedisRateLimitStore {
	if logger == nil {
		logger = slog.Default()
	}
	store := &RedisRateLimitStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "rate_limit_store"),
	}

	if client == nil {
		return store
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		store.logger.Warn("Redis connection failed for rate limiting", "error", err)
		return store
	}
	store.healthy.Store(true)
	return store
}

// Increment increments the counter for a key.
func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if !s.IsHealthy() {
		return 0, errors.New("redis not available")
	}

	fullKey := s.prefix + ":" + key
	count, err := s.client.Incr(ctx, fullKey)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, fullKey, window); err != nil {
			s.logger.Warn("failed to set rate limit expiration", "key", fullKey, "error", err)
		}
	}

	return count, nil
}

// IsHealthy returns whether the store is operational.
func (s *RedisRateLimitStore) IsHealthy() bool {
	return s.client != nil && s.healthy.Load()
}

// RateLimiter provides rate limiting middleware.
type RateLimiter struct {
	store  RateLimitStore
	config RateLimitConfig
	logger *slog.Logger

	mu       sync.Mutex
	allowed  map[string]uint64
	rejected map[string]uint64
}

// NewRateLimiter creates a new RateLimiter instance.
func NewRateLimiter(store RateLimitStore, config RateLimitConfig, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		store:    store,
		config:   config,
		logger:   logger.With("component", "rate_limiter"),
		allowed:  make(map[string]uint64),
		rejected: make(map[string]uint64),
	}
}

// Middleware returns a rate limiting middleware for a specific limit type.
func (rl *RateLimiter) Middleware(limitType string) func(next http.Handler) http.Handler {
	limit := rl.getLimit(limitType)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIP(r)
			key := limitType + ":" + clientID

			if !rl.store.IsHealthy() {
				rl.degrade(w, r, next)
				return
			}

			count, err := rl.store.Increment(r.Context(), key, limit.Window)
			if err != nil {
				rl.logger.Error("rate limit check failed", "error", err, "key", key)
				rl.degrade(w, r, next)
				return
			}

			remaining := max(limit.Requests-int(count), 0)
			reset := strconv.Itoa(int(limit.Window.Seconds()))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", reset)

			if count > int64(limit.Requests) {
				rl.record(limitType, false)
				rl.logger.Warn("rate limit exceeded",
					"client_id", clientID,
					"limit_type", limitType,
					"count", count,
					"limit", limit.Requests,
				)

				w.Header().Set("Retry-After", reset)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			rl.record(limitType, true)
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics returns allowed and rejected counts keyed by "<type>_allowed" and "<type>_rejected".
func (rl *RateLimiter) Metrics() map[string]uint64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	metrics := make(map[string]uint64, len(rl.allowed)+len(rl.rejected))
	for k, v := range rl.allowed {
		metrics[k+"_allowed"] = v
	}
	for k, v := range rl.rejected {
		metrics[k+"_rejected"] = v
	}
	return metrics
}

func (rl *RateLimiter) degrade(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if rl.config.GracefulDegradation {
		next.ServeHTTP(w, r)
		return
	}
	http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
}

func (rl *RateLimiter) getLimit(limitType string) Limit {
	switch limitType {
	case LimitChunk:
		return rl.config.ChunkRequests
	case LimitOutputs:
		return rl.config.Outputs
	default:
		return rl.config.Default
	}
}

func (rl *RateLimiter) record(limitType string, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if allowed {
		rl.allowed[limitType]++
	} else {
		rl.rejected[limitType]++
	}
}

// clientIP extracts a client identifier. chi's RealIP middleware has usually already rewritten
// RemoteAddr from the proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
