// Package handler exposes the searcher over HTTP: boolean and ranked
// search, evaluation against judgments, index stats, reload and cache
// administration.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/middleware"
)

const maxBodyBytes = 1 << 20

// Searcher is the query surface the handler serves. executor.Searcher
// implements it.
type Searcher interface {
	evaluation.Retriever
	Boolean(ctx context.Context, query string, explain bool) (*executor.BooleanResult, error)
	VSM(ctx context.Context, query string, opts executor.VSMOptions) (*executor.VSMResult, error)
	Stats() (*executor.StatsResult, error)
	Generation() uint64
}

// ReloadFunc rebuilds the serving index.
type ReloadFunc func(ctx context.Context) (*executor.Snapshot, error)

// Options carries the optional collaborators. Nil fields disable the
// corresponding feature.
type Options struct {
	Cache   *cache.QueryCache
	Tracker analytics.Tracker
	Reload  ReloadFunc
	Metrics *metrics.Metrics
}

type Handler struct {
	searcher Searcher
	cache    *cache.QueryCache
	tracker  analytics.Tracker
	reload   ReloadFunc
	runner   *evaluation.Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(s Searcher, opts Options) *Handler {
	return &Handler{
		searcher: s,
		cache:    opts.Cache,
		tracker:  opts.Tracker,
		reload:   opts.Reload,
		runner:   evaluation.NewRunner(s),
		metrics:  opts.Metrics,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search/boolean", h.Boolean)
	mux.HandleFunc("GET /api/v1/search/vsm", h.VSM)
	mux.HandleFunc("POST /api/v1/evaluate", h.Evaluate)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/admin/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	explain := false
	if v := r.URL.Query().Get("explain"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "explain must be a boolean")
			return
		}
		explain = parsed
	}

	compute := func(ctx context.Context) (*executor.BooleanResult, error) {
		return h.searcher.Boolean(ctx, query, explain)
	}
	var (
		result   *executor.BooleanResult
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		key := cache.Key{Mode: "boolean", Query: query, Explain: explain, Generation: h.searcher.Generation()}
		result, cacheHit, err = cache.GetOrCompute(ctx, h.cache, key, compute)
	} else {
		result, err = compute(ctx)
	}

	event := analytics.SearchEvent{Mode: "boolean", Query: query}
	if err != nil {
		h.observe(ctx, event, start, cacheHit, err)
		h.writeAppError(w, err)
		return
	}
	event.TotalHits = result.TotalHits
	event.Returned = len(result.Results)
	event.UnknownTerms = result.UnknownTerms
	event.Generation = result.Generation
	h.observe(ctx, event, start, cacheHit, nil)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) VSM(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	opts := executor.VSMOptions{Scheme: r.URL.Query().Get("scheme")}
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = parsed
	}

	compute := func(ctx context.Context) (*executor.VSMResult, error) {
		return h.searcher.VSM(ctx, query, opts)
	}
	var (
		result   *executor.VSMResult
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		key := cache.Key{Mode: "vsm", Scheme: opts.Scheme, Query: query, Limit: opts.Limit, Generation: h.searcher.Generation()}
		result, cacheHit, err = cache.GetOrCompute(ctx, h.cache, key, compute)
	} else {
		result, err = compute(ctx)
	}

	event := analytics.SearchEvent{Mode: "vsm", Scheme: opts.Scheme, Query: query}
	if err != nil {
		h.observe(ctx, event, start, cacheHit, err)
		h.writeAppError(w, err)
		return
	}
	event.Scheme = result.Scheme
	event.TotalHits = result.Returned
	event.Returned = result.Returned
	event.UnknownTerms = result.UnknownTerms
	event.Generation = result.Generation
	h.observe(ctx, event, start, cacheHit, nil)
	h.writeJSON(w, http.StatusOK, result)
}

// evaluateRequest either scores a single ranked run (Ranked, Relevant, K)
// or runs a judgment set against the live index under one or more schemes.
type evaluateRequest struct {
	Ranked    []int                   `json:"ranked"`
	Relevant  []int                   `json:"relevant"`
	K         int                     `json:"k"`
	Scheme    string                  `json:"scheme"`
	Schemes   []string                `json:"schemes"`
	Judgments *evaluation.JudgmentSet `json:"judgments"`
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.countEvaluation("error")
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.Judgments == nil {
		m, err := evaluation.EvaluateRun(req.Ranked, evaluation.NewDocSet(req.Relevant...), req.K)
		if err != nil {
			h.countEvaluation("error")
			h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
				"error":   err.Error(),
				"metrics": m,
			})
			return
		}
		h.countEvaluation("success")
		h.writeJSON(w, http.StatusOK, m)
		return
	}

	set := req.Judgments
	if req.K > 0 {
		set.K = req.K
	}
	if err := set.Normalize(); err != nil {
		h.countEvaluation("error")
		h.writeAppError(w, err)
		return
	}
	if len(req.Schemes) > 0 {
		reports, err := h.runner.Compare(ctx, set, req.Schemes)
		if err != nil {
			h.countEvaluation("error")
			h.writeAppError(w, err)
			return
		}
		h.countEvaluation("success")
		h.writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
		return
	}
	report, err := h.runner.Run(ctx, set, req.Scheme)
	if err != nil {
		h.countEvaluation("error")
		h.writeAppError(w, err)
		return
	}
	h.countEvaluation("success")
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.searcher.Stats()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		h.writeError(w, http.StatusServiceUnavailable, "reload is not configured")
		return
	}
	ctx := r.Context()
	snap, err := h.ReloadIndex(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("reload failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	stats := snap.Index.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation": snap.Generation,
		"documents":  stats.Documents,
		"terms":      stats.Terms,
	})
}

// ReloadIndex rebuilds the index, drops cached results and records a reload
// event. Both the admin endpoint and the Kafka reload consumer go through it.
func (h *Handler) ReloadIndex(ctx context.Context) (*executor.Snapshot, error) {
	if h.reload == nil {
		return nil, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "reload is not configured")
	}
	start := time.Now()
	snap, err := h.reload(ctx)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	if h.tracker != nil {
		stats := snap.Index.Stats()
		h.tracker.Track(analytics.ReloadEvent{
			Type:       analytics.EventReload,
			Generation: snap.Generation,
			Documents:  stats.Documents,
			Terms:      stats.Terms,
			LatencyMs:  time.Since(start).Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
	return snap, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// observe records metrics, logs the query and forwards an analytics event.
func (h *Handler) observe(ctx context.Context, event analytics.SearchEvent, start time.Time, cacheHit bool, err error) {
	latency := time.Since(start)
	event.LatencyMs = latency.Milliseconds()
	event.CacheHit = cacheHit
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)

	resultType := "hits"
	switch {
	case err != nil:
		event.Type = analytics.EventQueryError
		resultType = "error"
	case event.TotalHits == 0:
		event.Type = analytics.EventZeroResult
		resultType = "zero"
	default:
		event.Type = analytics.EventSearch
	}

	if h.metrics != nil {
		cacheStatus := "disabled"
		if h.cache != nil {
			cacheStatus = "miss"
			if cacheHit {
				cacheStatus = "hit"
			}
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(event.Mode, resultType).Inc()
		h.metrics.SearchLatency.WithLabelValues(event.Mode, cacheStatus).Observe(latency.Seconds())
		if err == nil {
			h.metrics.SearchResultsCount.WithLabelValues(event.Mode).Observe(float64(event.Returned))
		}
	}

	log := logger.FromContext(ctx)
	if err != nil {
		log.Info("search rejected", "mode", event.Mode, "query", event.Query, "error", err)
	} else {
		log.Info("search completed",
			"mode", event.Mode,
			"query", event.Query,
			"total_hits", event.TotalHits,
			"returned", event.Returned,
			"cache_hit", cacheHit,
			"latency_ms", event.LatencyMs,
		)
	}
	if h.tracker != nil {
		h.tracker.Track(event)
	}
}

func (h *Handler) countEvaluation(status string) {
	if h.metrics != nil {
		h.metrics.EvaluationsTotal.WithLabelValues(status).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to its HTTP status. Query errors also report the
// byte offset of the offending token.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if apperrors.IsClientError(err) {
		h.logger.Debug("request rejected", "status", status, "error", err)
	}
	var qerr *parser.QueryError
	if errors.As(err, &qerr) {
		h.writeJSON(w, status, map[string]any{
			"error":    qerr.Error(),
			"reason":   qerr.Reason,
			"position": qerr.Pos,
		})
		return
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		message = "internal error"
	}
	h.writeError(w, status, message)
}
