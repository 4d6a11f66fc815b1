package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/evaluation"
)

type target struct {
	mode  string
	query string
}

type modeStats struct {
	requests  atomic.Int64
	failures  atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newModeStats() *modeStats {
	return &modeStats{latencies: make([]time.Duration, 0, 10000), codes: make(map[int]int64)}
}

func (s *modeStats) record(d time.Duration, code int, err error) {
	s.requests.Add(1)
	if err != nil || code < 200 || code >= 300 {
		s.failures.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

var fallbackQueries = []target{
	{mode: evaluation.ModeVSM, query: "inverted index"},
	{mode: evaluation.ModeVSM, query: "cosine similarity"},
	{mode: evaluation.ModeVSM, query: "term frequency weighting"},
	{mode: evaluation.ModeBoolean, query: "retrieval AND index"},
	{mode: evaluation.ModeBoolean, query: "precision OR recall"},
	{mode: evaluation.ModeBoolean, query: "document AND NOT vector"},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	judgments := flag.String("judgments", "", "judgment file to draw queries from (optional)")
	flag.Parse()

	targets := fallbackQueries
	if *judgments != "" {
		set, err := evaluation.LoadJudgments(*judgments)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading judgments: %v\n", err)
			os.Exit(1)
		}
		targets = make([]target, 0, len(set.Queries))
		for _, j := range set.Queries {
			targets = append(targets, target{mode: j.Mode, query: j.Query})
		}
	}

	fmt.Println("=== minisearch load test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d\n\n", len(targets))

	stats := run(*baseURL, *concurrency, *duration, targets)
	if !report(stats, *duration) {
		fmt.Println("\nWARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

func run(baseURL string, concurrency int, duration time.Duration, targets []target) map[string]*modeStats {
	stats := map[string]*modeStats{
		evaluation.ModeBoolean: newModeStats(),
		evaluation.ModeVSM:     newModeStats(),
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		w := w
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				t := targets[i%len(targets)]
				endpoint := fmt.Sprintf("%s/api/v1/search/%s?q=%s", baseURL, t.mode, url.QueryEscape(t.query))
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					stats[t.mode].record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats[t.mode].record(elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
	}
	return stats
}

func report(stats map[string]*modeStats, duration time.Duration) bool {
	var total int64
	for _, mode := range []string{evaluation.ModeBoolean, evaluation.ModeVSM} {
		s := stats[mode]
		n := s.requests.Load()
		total += n
		fmt.Printf("=== %s ===\n", mode)
		fmt.Printf("Requests:   %d (%.2f/s)\n", n, float64(n)/duration.Seconds())
		fmt.Printf("Failures:   %d\n", s.failures.Load())

		s.mu.Lock()
		lat := append([]time.Duration(nil), s.latencies...)
		codes := make([]int, 0, len(s.codes))
		for c := range s.codes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Printf("  HTTP %d: %d\n", c, s.codes[c])
		}
		s.mu.Unlock()

		if len(lat) > 0 {
			sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
			fmt.Printf("Latency:    min %s  p50 %s  p95 %s  p99 %s  max %s\n",
				lat[0], percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
		}
		fmt.Println()
	}
	return total > 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
