package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type payload struct {
	IDs []int `json:"ids"`
}

func TestKeyCanonicalForm(t *testing.T) {
	a := Key{Mode: "vsm", Scheme: "raw", Query: "  cat   dog ", Limit: 10, Generation: 3}
	b := Key{Mode: "vsm", Scheme: "raw", Query: "cat dog", Limit: 10, Generation: 3}
	assert.Equal(t, buildKey(a), buildKey(b))

	for _, other := range []Key{
		{Mode: "boolean", Scheme: "raw", Query: "cat dog", Limit: 10, Generation: 3},
		{Mode: "vsm", Scheme: "sublinear", Query: "cat dog", Limit: 10, Generation: 3},
		{Mode: "vsm", Scheme: "raw", Query: "cat dog", Limit: 5, Generation: 3},
		{Mode: "vsm", Scheme: "raw", Query: "cat dog", Limit: 10, Generation: 4},
		{Mode: "vsm", Scheme: "raw", Query: "Cat dog", Limit: 10, Generation: 3},
	} {
		assert.NotEqual(t, buildKey(b), buildKey(other), other.String())
	}
	assert.True(t, strings.HasPrefix(buildKey(a), keyPrefix))
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(newMemStore(), time.Minute, m)
	ctx := context.Background()
	key := Key{Mode: "boolean", Query: "cat", Generation: 1}

	calls := 0
	compute := func(context.Context) (payload, error) {
		calls++
		return payload{IDs: []int{1, 2}}, nil
	}

	got, hit, err := GetOrCompute(ctx, c, key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1, 2}, got.IDs)

	got, hit, err = GetOrCompute(ctx, c, key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2}, got.IDs)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	ctx := context.Background()
	key := Key{Mode: "boolean", Query: "cat dog"}
	boom := errors.New("bad query")

	_, _, err := GetOrCompute(ctx, c, key, func(context.Context) (payload, error) { return payload{}, boom })
	assert.ErrorIs(t, err, boom)

	got, hit, err := GetOrCompute(ctx, c, key, func(context.Context) (payload, error) { return payload{IDs: []int{7}}, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{7}, got.IDs)
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	key := Key{Mode: "vsm", Query: "slow"}
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := GetOrCompute(context.Background(), c, key, func(context.Context) (payload, error) {
				calls.Add(1)
				<-release
				return payload{IDs: []int{1}}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestGetOrComputeSurvivesFirstCallerCancel(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	key := Key{Mode: "vsm", Query: "shared"}
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (payload, error) {
		close(started)
		select {
		case <-release:
			return payload{IDs: []int{3}}, nil
		case <-ctx.Done():
			return payload{}, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := GetOrCompute(firstCtx, c, key, compute)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		got payload
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		got, _, err := GetOrCompute(context.Background(), c, key, compute)
		second <- outcome{got, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, []int{3}, res.got.IDs)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	key := Key{Mode: "boolean", Query: "cat"}
	_, _, err := GetOrCompute(ctx, c, key, func(context.Context) (payload, error) { return payload{IDs: []int{1}}, nil })
	require.NoError(t, err)
	store.data["unrelated"] = "x"

	require.NoError(t, c.Invalidate(ctx))
	assert.Len(t, store.data, 1)

	_, hit, err := GetOrCompute(ctx, c, key, func(context.Context) (payload, error) { return payload{IDs: []int{1}}, nil })
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestWithRedis(t *testing.T) {
	addr := os.Getenv("SP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SP_TEST_REDIS_ADDR not set, skipping redis test")
	}
	client, err := pkgredis.NewClient(context.Background(), config.RedisConfig{Addr: addr, PoolSize: 2})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer client.Close()

	c := New(client, time.Minute, nil)
	ctx := context.Background()
	require.NoError(t, c.Invalidate(ctx))
	key := Key{Mode: "boolean", Query: "redis-test", Generation: 99}
	_, hit, err := GetOrCompute(ctx, c, key, func(context.Context) (payload, error) { return payload{IDs: []int{4}}, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	got, hit, err := GetOrCompute(ctx, c, key, func(context.Context) (payload, error) { return payload{}, nil })
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{4}, got.IDs)
	require.NoError(t, c.Invalidate(ctx))
}

type downStore struct {
	calls atomic.Int32
}

func (d *downStore) Get(context.Context, string) (string, error) {
	d.calls.Add(1)
	return "", errors.New("connection refused")
}

func (d *downStore) Set(context.Context, string, interface{}, time.Duration) error {
	d.calls.Add(1)
	return errors.New("connection refused")
}

func (d *downStore) FlushByPattern(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestGetOrComputeBypassesUnavailableStore(t *testing.T) {
	store := &downStore{}
	c := New(store, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		got, hit, err := GetOrCompute(ctx, c, Key{Mode: "vsm", Query: "cat"}, func(context.Context) (payload, error) {
			return payload{IDs: []int{3}}, nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, []int{3}, got.IDs)
	}
	assert.Equal(t, "open", c.BreakerState().String())
	assert.Equal(t, int32(5), store.calls.Load())
}
