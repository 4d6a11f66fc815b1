package ranker

import (
	"container/heap"
	"sort"
)

// less reports whether a ranks ahead of b: higher score first, then lower
// document id.
func less(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// sortScored orders docs by rank in place.
func sortScored(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		return less(docs[i], docs[j])
	})
}

// topK returns the best limit documents in rank order. A non-positive limit
// keeps everything.
func topK(docs []ScoredDoc, limit int) []ScoredDoc {
	if limit <= 0 || len(docs) <= limit {
		sortScored(docs)
		return docs
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, doc := range docs {
		heap.Push(h, doc)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap on rank: the root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return less(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
