package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func search(query string, hits int, latency int64) SearchEvent {
	return SearchEvent{Type: EventSearch, Mode: "vsm", Query: query, TotalHits: hits, LatencyMs: latency}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(search("cat", 3, 10))
	agg.Track(search("cat", 3, 20))
	agg.Track(SearchEvent{Type: EventSearch, Mode: "boolean", Query: "unicorn", UnknownTerms: []string{"unicorn"}, LatencyMs: 30, CacheHit: true})
	agg.Track(SearchEvent{Type: EventQueryError, Mode: "boolean", Query: "cat AND", LatencyMs: 1})
	agg.Track(ReloadEvent{Type: EventReload, Generation: 2})
	agg.Track("not an event")

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(2), stats.SearchesByMode["vsm"])
	assert.Equal(t, int64(2), stats.SearchesByMode["boolean"])
	assert.Equal(t, int64(1), stats.Reloads)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.QueryErrors)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.InDelta(t, 15.25, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(20), stats.P50LatencyMs)
	assert.Equal(t, int64(30), stats.P99LatencyMs)

	require.NotEmpty(t, stats.TopQueries)
	assert.Equal(t, QueryCount{Query: "cat", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "unicorn", Count: 1}}, stats.ZeroResultQueries)
	assert.Equal(t, []QueryCount{{Query: "unicorn", Count: 1}}, stats.TopUnknownTerms)
}

func TestAggregatorEmpty(t *testing.T) {
	stats := NewAggregator().Stats()
	assert.Zero(t, stats.TotalSearches)
	assert.Zero(t, stats.P95LatencyMs)
	assert.Empty(t, stats.TopQueries)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+50; i++ {
		agg.Track(search("q", 1, int64(i)))
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	assert.Len(t, agg.latencies, maxLatencySamples)
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	ctx := context.Background()

	value, err := json.Marshal(search("dog", 2, 5))
	require.NoError(t, err)
	require.NoError(t, handle(ctx, []byte("vsm"), value))

	value, err = json.Marshal(ReloadEvent{Type: EventReload, Generation: 3, Documents: 10})
	require.NoError(t, err)
	require.NoError(t, handle(ctx, nil, value))

	assert.NoError(t, handle(ctx, nil, []byte("{not json")))

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.Reloads)
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 3, time.Hour)
	for i := 0; i < 3; i++ {
		c.Track(search("cat", 1, 1))
	}
	assert.Eventually(t, func() bool { return pub.published() == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.BufferLen())

	pub.mu.Lock()
	assert.Equal(t, "vsm", pub.batches[0][0].Key)
	pub.mu.Unlock()
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(search("cat", 1, 1))
	c.Track(ReloadEvent{Type: EventReload, Generation: 1})
	assert.Equal(t, 2, c.BufferLen())

	cancel()
	c.Close()
	assert.Equal(t, 2, pub.published())
	assert.Equal(t, string(EventReload), pub.batches[0][1].Key)
}

func TestCollectorKeepsEventsWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{fail: true}
	c := NewCollector(pub, 2, time.Hour)
	c.flush(context.Background())
	c.Track(search("a", 1, 1))
	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{Key: "vsm", Value: search("b", 1, 1)})
	c.mu.Unlock()

	c.flush(context.Background())
	assert.Equal(t, 2, c.BufferLen())
	assert.Equal(t, 0, pub.published())
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(search("cat", 1, 4))
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.TotalSearches)
	assert.Equal(t, "0", rec.Header().Get("X-Index-Generation"))
}

func TestHandlerStatsTop(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"cat", "cat", "dog", "bird"} {
		agg.Track(search(q, 1, 2))
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.TopQueries, 1)
	assert.Equal(t, "cat", got.TopQueries[0].Query)

	for _, bad := range []string{"0", "101", "many"} {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

var (
	_ Tracker = (*Collector)(nil)
	_ Tracker = (*Aggregator)(nil)
)
