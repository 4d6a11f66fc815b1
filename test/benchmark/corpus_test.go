// Package benchmark measures the engine end to end over a synthetic corpus:
// analysis, index construction, boolean evaluation and ranked retrieval.
package benchmark

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
)

var vocabulary = []string{
	"retrieval", "index", "posting", "vector", "cosine", "query", "document",
	"term", "frequency", "ranking", "boolean", "precision", "recall", "stemming",
	"token", "corpus", "weight", "similarity", "evaluation", "judgment",
	"inverse", "logarithm", "normalization", "stopword", "vocabulary", "merge",
	"intersection", "union", "complement", "score", "relevance", "average",
}

// syntheticCorpus builds n documents of roughly wordsPerDoc words with a
// skewed term distribution, deterministically.
func syntheticCorpus(n, wordsPerDoc int) []corpus.Document {
	rng := rand.New(rand.NewSource(42))
	docs := make([]corpus.Document, n)
	for i := range docs {
		var sb strings.Builder
		for w := 0; w < wordsPerDoc; w++ {
			// squaring skews towards the head of the vocabulary
			f := rng.Float64()
			sb.WriteString(vocabulary[int(f*f*float64(len(vocabulary)))])
			sb.WriteByte(' ')
		}
		docs[i] = corpus.Document{ID: i + 1, Name: fmt.Sprintf("doc-%05d.txt", i+1), Text: sb.String()}
	}
	return docs
}
