package ranker

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

func buildIndex(t testing.TB, texts ...string) *index.Index {
	t.Helper()
	idx, err := index.Build(corpus.FromTexts(texts...), tokenizer.Default())
	require.NoError(t, err)
	return idx
}

func sampleModel(t *testing.T, scheme Scheme) *Model {
	return NewModel(buildIndex(t, "cat dog cat", "dog bird", "fish"), scheme)
}

func ids(docs []ScoredDoc) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in   string
		want Scheme
	}{
		{"", Sublinear},
		{"sublinear", Sublinear},
		{"RAW", Raw},
		{"standard", Raw},
	}
	for _, tt := range tests {
		got, err := ParseScheme(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseScheme("bm25")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestWeights(t *testing.T) {
	assert.Equal(t, 0.0, Sublinear.TFWeight(0))
	assert.Equal(t, 1.0, Sublinear.TFWeight(1))
	assert.InDelta(t, 2.0, Sublinear.TFWeight(10), 1e-12)
	assert.Equal(t, 3.0, Raw.TFWeight(3))
	assert.Equal(t, 0.0, Raw.TFWeight(-1))

	assert.InDelta(t, math.Log10(3), IDF(3, 1), 1e-12)
	assert.Equal(t, 0.0, IDF(3, 3))
	assert.Equal(t, 0.0, IDF(3, 0))
	assert.Equal(t, 0.0, IDF(0, 0))
}

func TestRankSingleMatchingDocument(t *testing.T) {
	m := sampleModel(t, Sublinear)
	got := m.Rank("cat", RankOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].DocID)
	assert.Equal(t, "d1", got[0].Name)

	wCat := (1 + math.Log10(2)) * math.Log10(3)
	wDog := math.Log10(1.5)
	assert.InDelta(t, wCat/math.Sqrt(wCat*wCat+wDog*wDog), got[0].Score, 1e-9)
}

func TestRankRawScheme(t *testing.T) {
	m := sampleModel(t, Raw)
	got := m.Rank("cat", RankOptions{})
	require.Len(t, got, 1)
	wCat := 2 * math.Log10(3)
	wDog := math.Log10(1.5)
	assert.InDelta(t, wCat/math.Sqrt(wCat*wCat+wDog*wDog), got[0].Score, 1e-9)
}

func TestRankOrdering(t *testing.T) {
	m := sampleModel(t, Sublinear)
	got := m.Rank("dog", RankOptions{})
	assert.Equal(t, []int{2, 1}, ids(got))
	assert.Greater(t, got[0].Score, got[1].Score)

	assert.Equal(t, []int{2}, ids(m.Rank("dog", RankOptions{Limit: 1})))
}

func TestRankTiesByDocID(t *testing.T) {
	m := NewModel(buildIndex(t, "pear", "apple", "apple", "apple pear"), Sublinear)
	got := m.Rank("apple", RankOptions{})
	require.Len(t, got, 3)
	assert.Equal(t, []int{2, 3, 4}, ids(got))
	assert.Equal(t, got[0].Score, got[1].Score)
	assert.Greater(t, got[1].Score, got[2].Score)
}

func TestRankIncludeZero(t *testing.T) {
	m := sampleModel(t, Sublinear)
	got := m.Rank("cat", RankOptions{IncludeZero: true})
	assert.Equal(t, []int{1, 2, 3}, ids(got))
	assert.Equal(t, 0.0, got[1].Score)
	assert.Equal(t, 0.0, got[2].Score)

	got = m.Rank("cat", RankOptions{IncludeZero: true, Limit: 2})
	assert.Equal(t, []int{1, 2}, ids(got))
}

func TestRankNoWeightedTerms(t *testing.T) {
	m := sampleModel(t, Sublinear)
	assert.Empty(t, m.Rank("", RankOptions{}))
	assert.Empty(t, m.Rank("the of and", RankOptions{}))
	assert.Empty(t, m.Rank("unicorn", RankOptions{}))

	_, unknown := m.QueryVector("unicorn cat unicorn")
	assert.Equal(t, []string{"unicorn"}, unknown)

	everywhere := NewModel(buildIndex(t, "common apple", "common pear"), Sublinear)
	assert.Empty(t, everywhere.Rank("common", RankOptions{}))
}

func TestQueryVectorUsesCorpusStatistics(t *testing.T) {
	m := sampleModel(t, Sublinear)
	qv, _ := m.QueryVector("cat cat dog")
	assert.InDelta(t, (1+math.Log10(2))*math.Log10(3), qv["cat"], 1e-12)
	assert.InDelta(t, math.Log10(1.5), qv["dog"], 1e-12)
	assert.Equal(t, 1, m.Index().DocFreq("cat"))
}

func TestRankAgreesWithCosine(t *testing.T) {
	m := sampleModel(t, Sublinear)
	qv, _ := m.QueryVector("dog bird")
	for _, d := range m.Rank("dog bird", RankOptions{}) {
		assert.InDelta(t, Cosine(qv, m.DocVector(d.DocID)), d.Score, 1e-9)
	}
}

func TestCosine(t *testing.T) {
	a := Vector{"x": 1, "y": 2}
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-12)
	assert.Equal(t, 0.0, Cosine(a, Vector{}))
	assert.Equal(t, 0.0, Cosine(Vector{}, Vector{}))
	assert.Equal(t, 0.0, Cosine(a, Vector{"z": 3}))
	assert.InDelta(t, 1/math.Sqrt(5), Cosine(a, Vector{"x": 4}), 1e-12)
	assert.Equal(t, 1.0, clamp(1+1e-15))
	assert.Equal(t, 0.0, clamp(math.NaN()))
}

func TestScoreBoundsAndOrderProperty(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	r := rand.New(rand.NewSource(7))
	texts := make([]string, 40)
	for i := range texts {
		text := ""
		for j := 0; j < 1+r.Intn(12); j++ {
			text += words[r.Intn(len(words))] + " "
		}
		texts[i] = text
	}
	idx := buildIndex(t, texts...)
	for _, scheme := range Schemes {
		m := NewModel(idx, scheme)
		for q := 0; q < 50; q++ {
			query := words[r.Intn(len(words))] + " " + words[r.Intn(len(words))]
			got := m.Rank(query, RankOptions{})
			for i, d := range got {
				assert.GreaterOrEqual(t, d.Score, 0.0)
				assert.LessOrEqual(t, d.Score, 1.0)
				if i > 0 {
					prev := got[i-1]
					assert.True(t, prev.Score > d.Score || (prev.Score == d.Score && prev.DocID < d.DocID))
				}
			}
			limited := m.Rank(query, RankOptions{Limit: 5})
			if len(got) > 5 {
				got = got[:5]
			}
			assert.Equal(t, got, limited)
		}
	}
}

func BenchmarkRank(b *testing.B) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel", "india", "juliet"}
	r := rand.New(rand.NewSource(1))
	texts := make([]string, 2000)
	for i := range texts {
		text := ""
		for j := 0; j < 50; j++ {
			text += words[r.Intn(len(words))] + " "
		}
		texts[i] = text
	}
	m := NewModel(buildIndex(b, texts...), Sublinear)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Rank("alpha delta golf", RankOptions{Limit: 10})
	}
}
