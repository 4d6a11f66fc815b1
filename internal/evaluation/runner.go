package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// Retriever is what the runner needs from the search engine.
// executor.Searcher implements it.
type Retriever interface {
	BooleanIDs(ctx context.Context, query string) ([]int, error)
	RankedIDs(ctx context.Context, query string, scheme string) ([]int, error)
	ResolveNames(names []string) (ids []int, missing []string, err error)
}

// QueryReport is the outcome of one judged query. Exactly one of Ranked and
// Set is filled for an evaluated query; Error is set for a skipped one.
type QueryReport struct {
	ID           string      `json:"id"`
	Query        string      `json:"query"`
	Mode         string      `json:"mode"`
	Retrieved    []int       `json:"retrieved"`
	Relevant     []int       `json:"relevant"`
	Unresolved   []string    `json:"unresolved,omitempty"`
	Ranked       *Metrics    `json:"ranked,omitempty"`
	Set          *SetMetrics `json:"set,omitempty"`
	Error        string      `json:"error,omitempty"`
	LatencyMicro int64       `json:"latency_us"`
}

// Report aggregates a judgment set run under one weighting scheme. Ranked
// means cover vsm queries and Boolean means cover boolean queries; skipped
// queries count towards neither.
type Report struct {
	Scheme  string        `json:"scheme"`
	K       int           `json:"k"`
	Queries []QueryReport `json:"queries"`

	MAP           float64 `json:"map"`
	MeanPrecision float64 `json:"mean_precision"`
	MeanRecall    float64 `json:"mean_recall"`
	MeanF1        float64 `json:"mean_f1"`
	MeanNDCG      float64 `json:"mean_ndcg"`

	BooleanPrecision float64 `json:"boolean_precision"`
	BooleanRecall    float64 `json:"boolean_recall"`
	BooleanF1        float64 `json:"boolean_f1"`

	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
}

type Runner struct {
	retriever Retriever
	logger    *slog.Logger
}

func NewRunner(retriever Retriever) *Runner {
	return &Runner{
		retriever: retriever,
		logger:    slog.Default().With("component", "evaluation"),
	}
}

// Run evaluates every judgment in set. Malformed queries and judgments that
// resolve to no known document are reported per query and skipped; any
// other retrieval error aborts the run.
func (r *Runner) Run(ctx context.Context, set *JudgmentSet, scheme string) (*Report, error) {
	report := &Report{Scheme: scheme, K: set.K, Queries: make([]QueryReport, 0, len(set.Queries))}
	var (
		aps, precisions, recalls, f1s, ndcgs []float64
		boolP, boolR, boolF1                 []float64
	)
	for _, j := range set.Queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		qr, err := r.runOne(ctx, j, scheme, set.K)
		if err != nil {
			return nil, err
		}
		report.Queries = append(report.Queries, qr)
		switch {
		case qr.Error != "":
			report.Skipped++
		case qr.Ranked != nil:
			report.Evaluated++
			aps = append(aps, qr.Ranked.AveragePrecision)
			precisions = append(precisions, qr.Ranked.Precision)
			recalls = append(recalls, qr.Ranked.Recall)
			f1s = append(f1s, qr.Ranked.F1)
			ndcgs = append(ndcgs, qr.Ranked.NDCG)
		case qr.Set != nil:
			report.Evaluated++
			boolP = append(boolP, qr.Set.Precision)
			boolR = append(boolR, qr.Set.Recall)
			boolF1 = append(boolF1, qr.Set.F1)
		}
	}
	report.MAP = MeanAveragePrecision(aps)
	report.MeanPrecision = mean(precisions)
	report.MeanRecall = mean(recalls)
	report.MeanF1 = mean(f1s)
	report.MeanNDCG = mean(ndcgs)
	report.BooleanPrecision = mean(boolP)
	report.BooleanRecall = mean(boolR)
	report.BooleanF1 = mean(boolF1)

	r.logger.Info("evaluation finished",
		"scheme", scheme,
		"evaluated", report.Evaluated,
		"skipped", report.Skipped,
		"map", report.MAP,
	)
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, j Judgment, scheme string, k int) (QueryReport, error) {
	qr := QueryReport{ID: j.ID, Query: j.Query, Mode: j.Mode}
	relevantIDs, missing, err := r.retriever.ResolveNames(j.Relevant)
	if err != nil {
		return qr, fmt.Errorf("resolving judgments for %s: %w", j.ID, err)
	}
	qr.Relevant = NewDocSet(relevantIDs...).Sorted()
	qr.Unresolved = missing
	if len(missing) > 0 {
		r.logger.Warn("judged documents not in index", "query_id", j.ID, "missing", missing)
	}

	start := time.Now()
	var retrieved []int
	if j.Mode == ModeBoolean {
		retrieved, err = r.retriever.BooleanIDs(ctx, j.Query)
	} else {
		retrieved, err = r.retriever.RankedIDs(ctx, j.Query, scheme)
	}
	qr.LatencyMicro = time.Since(start).Microseconds()
	if err != nil {
		if errors.Is(err, apperrors.ErrQuery) {
			qr.Error = err.Error()
			return qr, nil
		}
		return qr, fmt.Errorf("running %s: %w", j.ID, err)
	}
	qr.Retrieved = retrieved

	relevant := NewDocSet(relevantIDs...)
	if j.Mode == ModeBoolean {
		m, err := EvaluateSet(retrieved, relevant)
		if err != nil {
			qr.Error = err.Error()
			return qr, nil
		}
		qr.Set = &m
	} else {
		m, err := EvaluateRun(retrieved, relevant, k)
		if err != nil {
			qr.Error = err.Error()
			return qr, nil
		}
		qr.Ranked = &m
	}
	r.logger.Debug("query evaluated", "query_id", j.ID, "mode", j.Mode, "retrieved", len(retrieved))
	return qr, nil
}

// Compare runs set once per scheme concurrently. Reports come back in the
// order of schemes.
func (r *Runner) Compare(ctx context.Context, set *JudgmentSet, schemes []string) ([]*Report, error) {
	reports := make([]*Report, len(schemes))
	g, gctx := errgroup.WithContext(ctx)
	for i, scheme := range schemes {
		i, scheme := i, scheme
		g.Go(func() error {
			rep, err := r.Run(gctx, set, scheme)
			if err != nil {
				return fmt.Errorf("scheme %s: %w", scheme, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
