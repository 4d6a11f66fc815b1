package evaluation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
)

func newRetriever(t *testing.T) *executor.Searcher {
	t.Helper()
	docs := corpus.FromTexts("cat dog cat", "dog bird", "fish")
	idx, err := index.Build(docs, tokenizer.Default())
	require.NoError(t, err)
	s := executor.New(config.SearchConfig{MaxResults: 10, DefaultLimit: 10, Scheme: "sublinear", QueryTimeout: time.Second}, nil)
	s.Swap(idx, docs)
	return s
}

func judgments() *JudgmentSet {
	set := &JudgmentSet{
		K: 3,
		Queries: []Judgment{
			{ID: "both", Query: "cat AND dog", Mode: ModeBoolean, Relevant: []string{"d1"}},
			{ID: "dog", Query: "dog", Relevant: []string{"d1", "d2"}},
			{ID: "broken", Query: "cat AND", Mode: ModeBoolean, Relevant: []string{"d1"}},
			{ID: "unjudged", Query: "fish", Relevant: []string{"nope"}},
		},
	}
	if err := set.Normalize(); err != nil {
		panic(err)
	}
	return set
}

func TestRunnerRun(t *testing.T) {
	runner := NewRunner(newRetriever(t))
	report, err := runner.Run(context.Background(), judgments(), "sublinear")
	require.NoError(t, err)

	assert.Equal(t, "sublinear", report.Scheme)
	assert.Equal(t, 2, report.Evaluated)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Queries, 4)

	both := report.Queries[0]
	require.NotNil(t, both.Set)
	assert.Nil(t, both.Ranked)
	assert.Equal(t, []int{1}, both.Retrieved)
	assert.InDelta(t, 1.0, both.Set.F1, 1e-12)

	dog := report.Queries[1]
	require.NotNil(t, dog.Ranked)
	assert.Equal(t, []int{2, 1}, dog.Retrieved)
	assert.InDelta(t, 2.0/3, dog.Ranked.Precision, 1e-12)
	assert.InDelta(t, 1.0, dog.Ranked.Recall, 1e-12)

	assert.NotEmpty(t, report.Queries[2].Error)
	assert.Equal(t, []string{"nope"}, report.Queries[3].Unresolved)
	assert.Contains(t, report.Queries[3].Error, "empty relevance set")

	assert.InDelta(t, 1.0, report.MAP, 1e-12)
	assert.InDelta(t, 1.0, report.BooleanPrecision, 1e-12)
}

func TestRunnerCompare(t *testing.T) {
	runner := NewRunner(newRetriever(t))
	reports, err := runner.Compare(context.Background(), judgments(), []string{"sublinear", "raw"})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "sublinear", reports[0].Scheme)
	assert.Equal(t, "raw", reports[1].Scheme)
	for _, rep := range reports {
		assert.InDelta(t, 1.0, rep.MAP, 1e-12)
	}

	_, err = runner.Compare(context.Background(), judgments(), []string{"sublinear", "bm25"})
	assert.Error(t, err)
}

func TestRunnerMAPCountsUnretrievedRelevant(t *testing.T) {
	set := &JudgmentSet{
		K: 3,
		Queries: []Judgment{
			{ID: "dog", Query: "dog", Relevant: []string{"d1", "d2", "d3"}},
		},
	}
	require.NoError(t, set.Normalize())
	report, err := NewRunner(newRetriever(t)).Run(context.Background(), set, "sublinear")
	require.NoError(t, err)
	require.Len(t, report.Queries, 1)
	// d3 holds only "fish" and is never retrieved: AP = (1/1 + 2/2) / 3.
	assert.InDelta(t, 2.0/3, report.MAP, 1e-12)
}

type brokenRetriever struct{}

func (brokenRetriever) BooleanIDs(context.Context, string) ([]int, error) {
	return nil, executor.ErrIndexNotBuilt
}

func (brokenRetriever) RankedIDs(context.Context, string, string) ([]int, error) {
	return nil, executor.ErrIndexNotBuilt
}

func (brokenRetriever) ResolveNames(names []string) ([]int, []string, error) {
	return []int{1}, nil, nil
}

func TestRunnerAbortsOnEngineError(t *testing.T) {
	_, err := NewRunner(brokenRetriever{}).Run(context.Background(), judgments(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, executor.ErrIndexNotBuilt))
}

func TestRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(newRetriever(t)).Run(ctx, judgments(), "sublinear")
	assert.ErrorIs(t, err, context.Canceled)
}
