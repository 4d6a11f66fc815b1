// Package executor serves boolean and ranked queries against the current
// index snapshot. A reload builds a complete new snapshot and swaps it in
// atomically; in-flight queries keep the snapshot they started with.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/tracing"
)

// ErrIndexNotBuilt is returned by every query made before the first Swap.
var ErrIndexNotBuilt = apperrors.ErrIndexNotBuilt

// Snapshot is one immutable generation of the serving state.
type Snapshot struct {
	Index      *index.Index
	Models     map[ranker.Scheme]*ranker.Model
	Generation uint64
	BuiltAt    time.Time
	texts      map[int]string
}

// Snippet returns the leading text of a document, or "" when raw text was
// not kept for this snapshot.
func (s *Snapshot) Snippet(docID int) string {
	text, ok := s.texts[docID]
	if !ok {
		return ""
	}
	return corpus.Document{Text: text}.Snippet()
}

type DocHit struct {
	DocID   int    `json:"doc_id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet,omitempty"`
}

type ScoredHit struct {
	DocHit
	Score float64 `json:"score"`
}

type BooleanResult struct {
	Query        string               `json:"query"`
	TotalHits    int                  `json:"total_hits"`
	Results      []DocHit             `json:"results"`
	UnknownTerms []string             `json:"unknown_terms,omitempty"`
	Explain      *boolean.Explanation `json:"explain,omitempty"`
	Generation   uint64               `json:"generation"`
}

type VSMResult struct {
	Query        string      `json:"query"`
	Scheme       string      `json:"scheme"`
	Limit        int         `json:"limit"`
	Returned     int         `json:"returned"`
	Results      []ScoredHit `json:"results"`
	UnknownTerms []string    `json:"unknown_terms,omitempty"`
	Generation   uint64      `json:"generation"`
}

type VSMOptions struct {
	Limit  int
	Scheme string
}

type StatsResult struct {
	index.Stats
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at"`
	Schemes    []string  `json:"schemes"`
}

type Searcher struct {
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	reloadMu   sync.Mutex
	cfg        config.SearchConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Searcher with no index. m may be nil.
func New(cfg config.SearchConfig, m *metrics.Metrics) *Searcher {
	return &Searcher{
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Swap makes idx the serving index. docs, when given, provide raw text for
// result snippets. The ranking models for every scheme are computed before
// the swap so readers never see a half-prepared snapshot.
func (s *Searcher) Swap(idx *index.Index, docs []corpus.Document) *Snapshot {
	models := make(map[ranker.Scheme]*ranker.Model, len(ranker.Schemes))
	for _, scheme := range ranker.Schemes {
		models[scheme] = ranker.NewModel(idx, scheme)
	}
	var texts map[int]string
	if len(docs) > 0 {
		texts = make(map[int]string, len(docs))
		for _, d := range docs {
			texts[d.ID] = d.Text
		}
	}
	snap := &Snapshot{
		Index:      idx,
		Models:     models,
		Generation: s.generation.Add(1),
		BuiltAt:    time.Now().UTC(),
		texts:      texts,
	}
	s.current.Store(snap)

	stats := idx.Stats()
	if s.metrics != nil {
		s.metrics.IndexDocuments.Set(float64(stats.Documents))
		s.metrics.IndexTerms.Set(float64(stats.Terms))
		s.metrics.IndexGeneration.Set(float64(snap.Generation))
	}
	s.logger.Info("index swapped",
		"generation", snap.Generation,
		"documents", stats.Documents,
		"terms", stats.Terms,
	)
	return snap
}

// BuildFunc produces a fresh index. docs may be nil.
type BuildFunc func(ctx context.Context) (idx *index.Index, docs []corpus.Document, err error)

// Reload runs build and swaps the result in. Concurrent reloads run one at a
// time; on failure the serving snapshot is left untouched.
func (s *Searcher) Reload(ctx context.Context, build BuildFunc) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	start := time.Now()
	idx, docs, err := build(ctx)
	if err != nil {
		s.logger.Error("reload failed, keeping current index",
			"generation", s.Generation(),
			"error", err,
		)
		return nil, fmt.Errorf("reloading index: %w", err)
	}
	snap := s.Swap(idx, docs)
	s.logger.Info("reload complete", "generation", snap.Generation, "duration", time.Since(start))
	return snap, nil
}

// Current returns the serving snapshot.
func (s *Searcher) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrIndexNotBuilt
	}
	return snap, nil
}

// Generation returns the generation of the serving snapshot, 0 before the
// first swap.
func (s *Searcher) Generation() uint64 {
	if snap := s.current.Load(); snap != nil {
		return snap.Generation
	}
	return 0
}

// Boolean evaluates a boolean query. With explain set, the result carries
// the per-node match counts of the normalised query tree.
func (s *Searcher) Boolean(ctx context.Context, query string, explain bool) (*BooleanResult, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	var result *BooleanResult
	err = s.withTimeout(ctx, "boolean query", func(ctx context.Context) error {
		_, span := tracing.StartSpan(ctx, "boolean.evaluate")
		var (
			res *boolean.Result
			exp *boolean.Explanation
			err error
		)
		if explain {
			res, exp, err = boolean.EvaluateExplain(query, snap.Index)
		} else {
			res, err = boolean.Evaluate(query, snap.Index)
		}
		if err != nil {
			span.End()
			return err
		}
		span.SetAttr("hits", len(res.DocIDs))
		span.End()
		hits := make([]DocHit, 0, len(res.DocIDs))
		for _, id := range res.DocIDs {
			hit := DocHit{DocID: id, Snippet: snap.Snippet(id)}
			if info, ok := snap.Index.Doc(id); ok {
				hit.Name = info.Name
			}
			hits = append(hits, hit)
		}
		result = &BooleanResult{
			Query:        query,
			TotalHits:    len(hits),
			Results:      hits,
			UnknownTerms: res.UnknownTerms,
			Generation:   snap.Generation,
			Explain:      exp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.UnknownTerms) > 0 {
		logger.FromContext(ctx).Debug("query has unknown terms",
			"query", query,
			"unknown_terms", result.UnknownTerms,
		)
	}
	return result, nil
}

// VSM ranks documents against query by cosine similarity. The limit is
// clamped to the configured maximum and defaults to the configured default.
func (s *Searcher) VSM(ctx context.Context, query string, opts VSMOptions) (*VSMResult, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	scheme, err := s.scheme(opts.Scheme)
	if err != nil {
		return nil, err
	}
	limit := s.clampLimit(opts.Limit)
	var result *VSMResult
	err = s.withTimeout(ctx, "vsm query", func(ctx context.Context) error {
		model := snap.Models[scheme]
		_, span := tracing.StartSpan(ctx, "vsm.query_vector")
		qv, unknown := model.QueryVector(query)
		span.End()
		_, span = tracing.StartSpan(ctx, "vsm.rank")
		ranked := model.RankVector(qv, ranker.RankOptions{
			Limit:       limit,
			IncludeZero: s.cfg.IncludeZeroScores,
		})
		span.SetAttr("returned", len(ranked))
		span.End()
		hits := make([]ScoredHit, len(ranked))
		for i, d := range ranked {
			hits[i] = ScoredHit{
				DocHit: DocHit{DocID: d.DocID, Name: d.Name, Snippet: snap.Snippet(d.DocID)},
				Score:  d.Score,
			}
		}
		result = &VSMResult{
			Query:        query,
			Scheme:       string(scheme),
			Limit:        limit,
			Returned:     len(hits),
			Results:      hits,
			UnknownTerms: unknown,
			Generation:   snap.Generation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stats describes the serving index.
func (s *Searcher) Stats() (*StatsResult, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	schemes := make([]string, len(ranker.Schemes))
	for i, sc := range ranker.Schemes {
		schemes[i] = string(sc)
	}
	return &StatsResult{
		Stats:      snap.Index.Stats(),
		Generation: snap.Generation,
		BuiltAt:    snap.BuiltAt,
		Schemes:    schemes,
	}, nil
}

// BooleanIDs returns the matching document ids of a boolean query.
func (s *Searcher) BooleanIDs(ctx context.Context, query string) ([]int, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	res, err := boolean.Evaluate(query, snap.Index)
	if err != nil {
		return nil, err
	}
	return res.DocIDs, nil
}

// RankedIDs returns every positively scored document id for query, best
// first, ignoring the configured result limits.
func (s *Searcher) RankedIDs(ctx context.Context, query string, schemeName string) ([]int, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	scheme, err := s.scheme(schemeName)
	if err != nil {
		return nil, err
	}
	ranked := snap.Models[scheme].Rank(query, ranker.RankOptions{})
	ids := make([]int, len(ranked))
	for i, d := range ranked {
		ids[i] = d.DocID
	}
	return ids, nil
}

// ResolveNames maps document names to ids. Names not in the index are
// returned separately.
func (s *Searcher) ResolveNames(names []string) ([]int, []string, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int, 0, len(names))
	var missing []string
	for _, name := range names {
		if id, ok := snap.Index.DocByName(name); ok {
			ids = append(ids, id)
		} else {
			missing = append(missing, name)
		}
	}
	return ids, missing, nil
}

func (s *Searcher) scheme(name string) (ranker.Scheme, error) {
	if name == "" {
		name = s.cfg.Scheme
	}
	return ranker.ParseScheme(name)
}

func (s *Searcher) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxResults > 0 && limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	return limit
}

func (s *Searcher) withTimeout(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	err := resilience.WithTimeout(ctx, s.cfg.QueryTimeout, name, fn)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	return err
}
