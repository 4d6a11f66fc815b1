package index

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// Builder accumulates documents into posting lists. It is single-use and not
// safe for concurrent use; call Finish once every document has been added.
type Builder struct {
	analyzer *tokenizer.Analyzer
	vocab    *Vocabulary
	postings []PostingList
	docs     []DocInfo
	seen     map[int]struct{}
	finished bool
}

func NewBuilder(analyzer *tokenizer.Analyzer) *Builder {
	return &Builder{
		analyzer: analyzer,
		vocab:    NewVocabulary(),
		seen:     make(map[int]struct{}),
	}
}

// Add tokenises doc and appends one posting per distinct term.
func (b *Builder) Add(doc corpus.Document) error {
	if b.finished {
		return fmt.Errorf("builder already finished")
	}
	if _, dup := b.seen[doc.ID]; dup {
		return fmt.Errorf("%w: %d (%s)", apperrors.ErrDuplicateDocument, doc.ID, doc.Name)
	}
	b.seen[doc.ID] = struct{}{}

	terms := b.analyzer.Normalize(doc.Text)
	counts := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))
	for _, term := range terms {
		if counts[term] == 0 {
			order = append(order, term)
		}
		counts[term]++
	}
	for _, term := range order {
		id := b.vocab.Add(term)
		if id == len(b.postings) {
			b.postings = append(b.postings, nil)
		}
		b.postings[id] = append(b.postings[id], Posting{
			DocID:     doc.ID,
			Frequency: counts[term],
		})
	}
	b.docs = append(b.docs, DocInfo{
		ID:     doc.ID,
		Name:   doc.Name,
		Length: len(terms),
	})
	return nil
}

// Finish sorts every posting list by document id and returns the index.
func (b *Builder) Finish() *Index {
	b.finished = true
	for _, pl := range b.postings {
		sort.Slice(pl, func(i, j int) bool {
			return pl[i].DocID < pl[j].DocID
		})
	}
	return newIndex(b.analyzer, b.vocab, b.postings, b.docs)
}

// Build indexes docs with analyzer.
func Build(docs []corpus.Document, analyzer *tokenizer.Analyzer) (*Index, error) {
	b := NewBuilder(analyzer)
	for _, doc := range docs {
		if err := b.Add(doc); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}
