// Package cache memoises query results in Redis. Keys include the index
// generation, so results computed against an older index are never served
// after a reload even before they expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/resilience"
)

const keyPrefix = "minisearch:"

// Key identifies one cacheable query.
type Key struct {
	Mode       string
	Scheme     string
	Query      string
	Limit      int
	Explain    bool
	Generation uint64
}

// String renders the key in its canonical form before hashing. Runs of
// whitespace in the query are collapsed; case is kept because the analyzer
// may be case-sensitive.
func (k Key) String() string {
	query := strings.Join(strings.Fields(k.Query), " ")
	return fmt.Sprintf("%s|%s|%s|limit=%d|explain=%t|gen=%d",
		k.Mode, k.Scheme, query, k.Limit, k.Explain, k.Generation)
}

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil. Store calls go through a circuit
// breaker; while it is open every lookup is a miss and results are
// computed without touching Redis.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) get(ctx context.Context, redisKey string, dst any) bool {
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		v, err := c.store.Get(ctx, redisKey)
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", redisKey, "error", err)
		}
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		c.logger.Error("cache unmarshal failed", "key", redisKey, "error", err)
		return false
	}
	return true
}

func (c *QueryCache) set(ctx context.Context, redisKey string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", redisKey, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, redisKey, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", redisKey, "error", err)
	}
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result. Concurrent misses on the same key share one compute call,
// which runs detached from any single caller's cancellation; each caller
// still stops waiting when its own ctx is done. Errors are never cached.
// The boolean reports a cache hit.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, key Key, compute func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	redisKey := buildKey(key)
	var cached T
	if c.get(ctx, redisKey, &cached) {
		c.recordHit()
		c.logger.Debug("cache hit", "key", redisKey)
		return cached, true, nil
	}
	c.recordMiss()
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(redisKey, func() (interface{}, error) {
		var again T
		if c.get(shared, redisKey, &again) {
			return again, nil
		}
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.set(shared, redisKey, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Invalidate removes every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports whether Redis is currently being bypassed.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func buildKey(key Key) string {
	hash := sha256.Sum256([]byte(key.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
