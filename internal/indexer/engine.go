// Package indexer turns a corpus into a serving index: it loads documents
// from a corpus.Source, builds the inverted index, and persists it as an
// .spdx segment that later processes can reload without re-reading the
// corpus.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
)

type Engine struct {
	cfg      config.IndexerConfig
	source   corpus.Source
	analyzer *tokenizer.Analyzer
	writer   *segment.Writer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(cfg config.IndexerConfig, source corpus.Source, analyzer *tokenizer.Analyzer, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:      cfg,
		source:   source,
		analyzer: analyzer,
		writer:   segment.NewWriter(cfg.DataDir),
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
	}
}

// Built is the outcome of Build or LoadOrBuild. Docs is nil when the index
// came from a segment, which does not keep raw text.
type Built struct {
	Index   *index.Index
	Docs    []corpus.Document
	Segment string
}

// Build loads the corpus, indexes it and, when persistence is enabled,
// writes a new segment.
func (e *Engine) Build(ctx context.Context) (*Built, error) {
	start := time.Now()
	docs, err := e.source.Load(ctx)
	if err != nil {
		e.observe("corpus", "error", start)
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := index.Build(docs, e.analyzer)
	if err != nil {
		e.observe("corpus", "error", start)
		return nil, fmt.Errorf("building index: %w", err)
	}
	built := &Built{Index: idx, Docs: docs}
	if e.cfg.Persist {
		segmentName, err := e.writer.Write(idx)
		if err != nil {
			e.observe("corpus", "error", start)
			return nil, fmt.Errorf("writing segment: %w", err)
		}
		built.Segment = segmentName
		e.logger.Info("segment written", "segment", segmentName)
	}
	e.observe("corpus", "success", start)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(idx.NumDocs()))
	}
	stats := idx.Stats()
	e.logger.Info("index built",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"duration", time.Since(start),
	)
	return built, nil
}

// LoadLatest reopens the newest persisted segment. It returns (nil, nil)
// when the data directory holds no segment.
func (e *Engine) LoadLatest() (*index.Index, error) {
	start := time.Now()
	path, err := segment.Latest(e.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	reader, err := segment.OpenReader(path)
	if err != nil {
		e.observe("segment", "error", start)
		return nil, fmt.Errorf("opening segment %s: %w", filepath.Base(path), err)
	}
	defer reader.Close()
	idx, err := reader.Load(e.analyzer)
	if err != nil {
		e.observe("segment", "error", start)
		return nil, fmt.Errorf("loading segment %s: %w", filepath.Base(path), err)
	}
	e.observe("segment", "success", start)
	e.logger.Info("loaded existing segment",
		"segment", filepath.Base(path),
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
	)
	return idx, nil
}

// LoadOrBuild prefers a persisted segment when LoadOnStart is set and one
// exists, and builds from the corpus otherwise.
func (e *Engine) LoadOrBuild(ctx context.Context) (*Built, error) {
	if e.cfg.LoadOnStart {
		idx, err := e.LoadLatest()
		if err != nil {
			e.logger.Warn("could not load persisted segment, rebuilding", "error", err)
		} else if idx != nil {
			return &Built{Index: idx}, nil
		}
	}
	return e.Build(ctx)
}

func (e *Engine) observe(source, status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexBuildsTotal.WithLabelValues(source, status).Inc()
	e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
}
