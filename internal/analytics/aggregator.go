package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByMode    map[string]int64 `json:"searches_by_mode"`
	Reloads           int64            `json:"reloads"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	QueryErrors       int64            `json:"query_errors"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	TopUnknownTerms   []QueryCount     `json:"top_unknown_terms"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
	IndexGeneration   uint64           `json:"index_generation"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencySamples bounds memory; older samples are overwritten.
const maxLatencySamples = 10000

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	reloads           atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	queryErrors       atomic.Int64
	generation        atomic.Uint64
	latencies         []int64
	nextLatency       int
	byMode            map[string]int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	unknownTerms      map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		byMode:            make(map[string]int64),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		unknownTerms:      make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Track records an event directly, without going through Kafka.
func (a *Aggregator) Track(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case ReloadEvent:
		a.reloads.Add(1)
		a.observeGeneration(e.Generation)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", fmt.Sprintf("%T", event))
	}
}

// HandleEvent returns a Kafka MessageHandler feeding agg. Undecodable
// messages are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventReload:
			var ev ReloadEvent
			if err := json.Unmarshal(value, &ev); err != nil {
				agg.logger.Error("failed to decode reload event", "error", err)
				return nil
			}
			agg.Track(ev)
		default:
			var ev SearchEvent
			if err := json.Unmarshal(value, &ev); err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.Track(ev)
		}
		return nil
	}
}

// observeGeneration keeps the highest index generation seen. Events from
// several searchers may arrive out of order.
func (a *Aggregator) observeGeneration(gen uint64) {
	for {
		cur := a.generation.Load()
		if gen <= cur || a.generation.CompareAndSwap(cur, gen) {
			return
		}
	}
}

// Generation is the newest index generation any event has reported.
func (a *Aggregator) Generation() uint64 {
	return a.generation.Load()
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.totalSearches.Add(1)
	a.observeGeneration(event.Generation)
	if event.Type == EventQueryError {
		a.queryErrors.Add(1)
	} else if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.Type != EventQueryError && event.TotalHits == 0
	if zero {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
	a.byMode[event.Mode]++
	a.queryCounts[event.Query]++
	if zero {
		a.zeroResultQueries[event.Query]++
	}
	for _, term := range event.UnknownTerms {
		a.unknownTerms[term]++
	}
}

// DefaultTopN is how many entries each ranked list in Stats carries.
const DefaultTopN = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTopN)
}

// StatsTop is Stats with top-query, zero-result and unknown-term lists cut
// at n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		SearchesByMode:  make(map[string]int64, len(a.byMode)),
		Reloads:         a.reloads.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		QueryErrors:     a.queryErrors.Load(),
		IndexGeneration: a.generation.Load(),
	}
	for mode, n := range a.byMode {
		stats.SearchesByMode[mode] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	stats.TopUnknownTerms = topN(a.unknownTerms, n)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
