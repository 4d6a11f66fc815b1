// Package ranker implements the vector space model: TF-IDF weighting of
// documents and queries and ranking by cosine similarity.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type RankOptions struct {
	// Limit caps the number of results; 0 returns every match.
	Limit int
	// IncludeZero appends documents with no similarity, by ascending id,
	// after the positive matches.
	IncludeZero bool
}

// Model holds the per-term idf and per-document vector norms of one index
// under one scheme. It is immutable and safe for concurrent use.
type Model struct {
	idx     *index.Index
	scheme  Scheme
	idf     []float64
	docNorm map[int]float64
}

// NewModel precomputes idf for every term and the norm of every document
// vector. Cost is linear in the number of postings.
func NewModel(idx *index.Index, scheme Scheme) *Model {
	n := idx.NumDocs()
	m := &Model{
		idx:     idx,
		scheme:  scheme,
		idf:     make([]float64, idx.NumTerms()),
		docNorm: make(map[int]float64, n),
	}
	sumSq := make(map[int]float64, n)
	for termID := range m.idf {
		postings := idx.PostingsByID(termID)
		idf := IDF(n, len(postings))
		m.idf[termID] = idf
		if idf == 0 {
			continue
		}
		for _, p := range postings {
			w := scheme.TFWeight(p.Frequency) * idf
			sumSq[p.DocID] += w * w
		}
	}
	for docID, s := range sumSq {
		m.docNorm[docID] = math.Sqrt(s)
	}
	return m
}

func (m *Model) Scheme() Scheme {
	return m.scheme
}

func (m *Model) Index() *index.Index {
	return m.idx
}

// IDF returns the idf of an already normalised term, 0 if unknown.
func (m *Model) IDF(term string) float64 {
	id, ok := m.idx.TermID(term)
	if !ok {
		return 0
	}
	return m.idf[id]
}

// QueryVector normalises query with the index analyzer and weights it with
// the corpus statistics. Terms absent from the vocabulary carry no weight
// and are returned separately.
func (m *Model) QueryVector(query string) (Vector, []string) {
	counts := make(map[string]int)
	var order []string
	for _, term := range m.idx.Analyzer().Normalize(query) {
		if counts[term] == 0 {
			order = append(order, term)
		}
		counts[term]++
	}
	vec := make(Vector, len(counts))
	var unknown []string
	for _, term := range order {
		id, ok := m.idx.TermID(term)
		if !ok {
			unknown = append(unknown, term)
			continue
		}
		if w := m.scheme.TFWeight(counts[term]) * m.idf[id]; w > 0 {
			vec[term] = w
		}
	}
	return vec, unknown
}

// DocVector rebuilds the weight vector of one document. It walks the whole
// vocabulary and is meant for inspection, not for ranking.
func (m *Model) DocVector(docID int) Vector {
	vec := make(Vector)
	for _, entry := range m.idx.Entries() {
		for _, p := range entry.Postings {
			if p.DocID != docID {
				continue
			}
			if w := m.scheme.TFWeight(p.Frequency) * m.IDF(entry.Term); w > 0 {
				vec[entry.Term] = w
			}
			break
		}
	}
	return vec
}

// Rank scores every document sharing at least one weighted term with the
// query and returns them by descending score, ties by ascending id.
func (m *Model) Rank(query string, opts RankOptions) []ScoredDoc {
	qv, _ := m.QueryVector(query)
	return m.RankVector(qv, opts)
}

// RankVector ranks against an already weighted query vector. The dot
// product is accumulated only over the postings of the query terms.
func (m *Model) RankVector(qv Vector, opts RankOptions) []ScoredDoc {
	qNorm := qv.Norm()
	dots := make(map[int]float64)
	if qNorm > 0 {
		for term, qw := range qv {
			id, ok := m.idx.TermID(term)
			if !ok {
				continue
			}
			idf := m.idf[id]
			for _, p := range m.idx.PostingsByID(id) {
				dots[p.DocID] += qw * m.scheme.TFWeight(p.Frequency) * idf
			}
		}
	}

	scored := make([]ScoredDoc, 0, len(dots))
	for docID, dot := range dots {
		dNorm := m.docNorm[docID]
		if dNorm == 0 {
			continue
		}
		score := clamp(dot / (qNorm * dNorm))
		if score <= 0 {
			continue
		}
		scored = append(scored, m.scoredDoc(docID, score))
	}
	result := topK(scored, opts.Limit)
	if !opts.IncludeZero || (opts.Limit > 0 && len(result) >= opts.Limit) {
		return result
	}

	matched := make(map[int]struct{}, len(scored))
	for _, d := range scored {
		matched[d.DocID] = struct{}{}
	}
	for _, docID := range m.idx.DocIDs() {
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
		if _, ok := matched[docID]; ok {
			continue
		}
		result = append(result, m.scoredDoc(docID, 0))
	}
	return result
}

func (m *Model) scoredDoc(docID int, score float64) ScoredDoc {
	d := ScoredDoc{DocID: docID, Score: score}
	if info, ok := m.idx.Doc(docID); ok {
		d.Name = info.Name
	}
	return d
}
