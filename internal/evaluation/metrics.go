// Package evaluation scores retrieval output against relevance judgments:
// precision and recall at a cutoff, F1, average precision, MAP and binary
// nDCG for ranked runs, and precision/recall/F1 for unranked boolean sets.
package evaluation

import (
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// ErrEmptyRelevanceSet is returned alongside the metrics when a run is
// scored against no relevant documents. Recall is reported as 0 in that
// case; callers that treat it as undefined should check for this error.
var ErrEmptyRelevanceSet = apperrors.ErrEmptyRelevanceSet

// DocSet is a set of document ids.
type DocSet map[int]struct{}

func NewDocSet(ids ...int) DocSet {
	s := make(DocSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s DocSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s DocSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// hitsAt counts relevant documents in ranked[:k]. Repeated ids count once.
func hitsAt(ranked []int, relevant DocSet, k int) int {
	if k > len(ranked) {
		k = len(ranked)
	}
	seen := make(map[int]struct{}, k)
	hits := 0
	for _, id := range ranked[:k] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if relevant.Contains(id) {
			hits++
		}
	}
	return hits
}

// PrecisionAt is |ranked[:k] ∩ relevant| / k. The denominator is k even
// when fewer than k documents were returned.
func PrecisionAt(ranked []int, relevant DocSet, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hitsAt(ranked, relevant, k)) / float64(k)
}

// RecallAt is |ranked[:k] ∩ relevant| / |relevant|, and 0 when relevant is
// empty.
func RecallAt(ranked []int, relevant DocSet, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	return float64(hitsAt(ranked, relevant, k)) / float64(len(relevant))
}

// F1 is the harmonic mean of p and r, 0 when both are 0.
func F1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// AveragePrecision sums precision@i over every rank i in the full list that
// holds a relevant document and divides by the size of the relevance set,
// so relevant documents never retrieved count as zero. An empty relevance
// set scores 0.
func AveragePrecision(ranked []int, relevant DocSet) float64 {
	if len(relevant) == 0 {
		return 0
	}
	seen := make(map[int]struct{}, len(ranked))
	var sum float64
	found := 0
	for i, id := range ranked {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if relevant.Contains(id) {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}

// MeanAveragePrecision is the arithmetic mean of per-query AP values, 0 for
// no queries.
func MeanAveragePrecision(aps []float64) float64 {
	return mean(aps)
}

// NDCGAt is binary-relevance nDCG: gain 1/log2(i+2) for a relevant document
// at zero-based rank i, normalized by the ideal ordering.
func NDCGAt(ranked []int, relevant DocSet, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}
	limit := k
	if limit > len(ranked) {
		limit = len(ranked)
	}
	seen := make(map[int]struct{}, limit)
	var dcg float64
	for i, id := range ranked[:limit] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if relevant.Contains(id) {
			dcg += 1 / math.Log2(float64(i+2))
		}
	}
	ideal := k
	if ideal > len(relevant) {
		ideal = len(relevant)
	}
	var idcg float64
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}
	return dcg / idcg
}

// Metrics holds the scores of one ranked run.
type Metrics struct {
	K                 int     `json:"k"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1                float64 `json:"f1"`
	AveragePrecision  float64 `json:"average_precision"`
	NDCG              float64 `json:"ndcg"`
	Retrieved         int     `json:"retrieved"`
	Relevant          int     `json:"relevant"`
	RelevantRetrieved int     `json:"relevant_retrieved"`
}

// EvaluateRun scores a ranked list at cutoff k; k <= 0 means the full list.
// With an empty relevance set the metrics are still returned (all recall
// based values are 0) together with ErrEmptyRelevanceSet.
func EvaluateRun(ranked []int, relevant DocSet, k int) (Metrics, error) {
	if k <= 0 {
		k = len(ranked)
	}
	p := PrecisionAt(ranked, relevant, k)
	r := RecallAt(ranked, relevant, k)
	m := Metrics{
		K:                 k,
		Precision:         p,
		Recall:            r,
		F1:                F1(p, r),
		AveragePrecision:  AveragePrecision(ranked, relevant),
		NDCG:              NDCGAt(ranked, relevant, k),
		Retrieved:         len(ranked),
		Relevant:          len(relevant),
		RelevantRetrieved: hitsAt(ranked, relevant, k),
	}
	if len(relevant) == 0 {
		return m, ErrEmptyRelevanceSet
	}
	return m, nil
}

// SetMetrics holds the scores of an unranked (boolean) result.
type SetMetrics struct {
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1                float64 `json:"f1"`
	Retrieved         int     `json:"retrieved"`
	Relevant          int     `json:"relevant"`
	RelevantRetrieved int     `json:"relevant_retrieved"`
}

// EvaluateSet scores an unordered result set. Precision is 0 for an empty
// result; the empty relevance set is signalled as in EvaluateRun.
func EvaluateSet(retrieved []int, relevant DocSet) (SetMetrics, error) {
	got := NewDocSet(retrieved...)
	hits := 0
	for id := range got {
		if relevant.Contains(id) {
			hits++
		}
	}
	m := SetMetrics{
		Retrieved:         len(got),
		Relevant:          len(relevant),
		RelevantRetrieved: hits,
	}
	if len(got) > 0 {
		m.Precision = float64(hits) / float64(len(got))
	}
	if len(relevant) > 0 {
		m.Recall = float64(hits) / float64(len(relevant))
	}
	m.F1 = F1(m.Precision, m.Recall)
	if len(relevant) == 0 {
		return m, ErrEmptyRelevanceSet
	}
	return m, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
