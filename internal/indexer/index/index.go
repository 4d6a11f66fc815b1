// Package index holds the inverted index: a vocabulary mapping terms to ids,
// one posting list per term sorted by document id, and the document table
// that defines the id universe. An Index is immutable once built and may be
// shared by any number of concurrent readers.
package index

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

type Index struct {
	analyzer *tokenizer.Analyzer
	vocab    *Vocabulary
	postings []PostingList
	docs     []DocInfo
	docPos   map[int]int
	byName   map[string]int
	docIDs   []int
	stats    Stats
}

func newIndex(analyzer *tokenizer.Analyzer, vocab *Vocabulary, postings []PostingList, docs []DocInfo) *Index {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	idx := &Index{
		analyzer: analyzer,
		vocab:    vocab,
		postings: postings,
		docs:     docs,
		docPos:   make(map[int]int, len(docs)),
		byName:   make(map[string]int, len(docs)),
		docIDs:   make([]int, len(docs)),
	}
	tokens := 0
	for i, d := range docs {
		idx.docPos[d.ID] = i
		idx.docIDs[i] = d.ID
		if d.Name != "" {
			idx.byName[d.Name] = d.ID
		}
		tokens += d.Length
	}
	total := 0
	for _, pl := range postings {
		total += len(pl)
	}
	idx.stats = Stats{
		Documents: len(docs),
		Terms:     vocab.Len(),
		Postings:  total,
		Tokens:    tokens,
	}
	if len(docs) > 0 {
		idx.stats.AvgDocLength = float64(tokens) / float64(len(docs))
	}
	return idx
}

// FromEntries rebuilds an index from serialised term entries. Posting lists
// must already be sorted by document id and may only reference documents in
// docs.
func FromEntries(analyzer *tokenizer.Analyzer, docs []DocInfo, entries []TermEntry) (*Index, error) {
	known := make(map[int]struct{}, len(docs))
	for _, d := range docs {
		if _, dup := known[d.ID]; dup {
			return nil, fmt.Errorf("%w: %d", apperrors.ErrDuplicateDocument, d.ID)
		}
		known[d.ID] = struct{}{}
	}
	vocab := NewVocabulary()
	postings := make([]PostingList, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Postings) == 0 {
			return nil, fmt.Errorf("%w: term %q has an empty posting list", apperrors.ErrCorruptIndex, entry.Term)
		}
		if _, exists := vocab.ID(entry.Term); exists {
			return nil, fmt.Errorf("%w: term %q appears twice", apperrors.ErrCorruptIndex, entry.Term)
		}
		if !entry.Postings.sorted() {
			return nil, fmt.Errorf("%w: postings of %q are not sorted by document id", apperrors.ErrCorruptIndex, entry.Term)
		}
		for _, p := range entry.Postings {
			if _, ok := known[p.DocID]; !ok {
				return nil, fmt.Errorf("%w: term %q references unknown document %d", apperrors.ErrCorruptIndex, entry.Term, p.DocID)
			}
			if p.Frequency <= 0 {
				return nil, fmt.Errorf("%w: term %q has non-positive frequency in document %d", apperrors.ErrCorruptIndex, entry.Term, p.DocID)
			}
		}
		vocab.Add(entry.Term)
		pl := make(PostingList, len(entry.Postings))
		copy(pl, entry.Postings)
		postings = append(postings, pl)
	}
	docsCopy := make([]DocInfo, len(docs))
	copy(docsCopy, docs)
	return newIndex(analyzer, vocab, postings, docsCopy), nil
}

// Analyzer returns the analyzer the index was built with. Queries must be
// normalised with it.
func (idx *Index) Analyzer() *tokenizer.Analyzer {
	return idx.analyzer
}

// Postings returns the posting list of an already normalised term, or nil
// when the term is not in the vocabulary. The returned slice must not be
// modified.
func (idx *Index) Postings(term string) PostingList {
	pl, _ := idx.Lookup(term)
	return pl
}

// Lookup is Postings with an explicit found flag.
func (idx *Index) Lookup(term string) (PostingList, bool) {
	id, ok := idx.vocab.ID(term)
	if !ok {
		return nil, false
	}
	return idx.postings[id], true
}

// TermID returns the internal id of term.
func (idx *Index) TermID(term string) (int, bool) {
	return idx.vocab.ID(term)
}

// PostingsByID returns the posting list of the term with the given id.
func (idx *Index) PostingsByID(termID int) PostingList {
	return idx.postings[termID]
}

// DocFreq returns the number of documents containing term.
func (idx *Index) DocFreq(term string) int {
	return len(idx.Postings(term))
}

// NumTerms returns the vocabulary size.
func (idx *Index) NumTerms() int {
	return idx.vocab.Len()
}

// NumDocs returns the corpus size.
func (idx *Index) NumDocs() int {
	return len(idx.docs)
}

// DocIDs returns every document id in ascending order. The returned slice
// must not be modified.
func (idx *Index) DocIDs() []int {
	return idx.docIDs
}

// Doc returns the stored information for a document id.
func (idx *Index) Doc(id int) (DocInfo, bool) {
	pos, ok := idx.docPos[id]
	if !ok {
		return DocInfo{}, false
	}
	return idx.docs[pos], true
}

// DocByName resolves a document name to its id.
func (idx *Index) DocByName(name string) (int, bool) {
	id, ok := idx.byName[name]
	return id, ok
}

// Docs returns a copy of the document table ordered by id.
func (idx *Index) Docs() []DocInfo {
	docs := make([]DocInfo, len(idx.docs))
	copy(docs, idx.docs)
	return docs
}

// Entries returns every term with its postings, ordered by term.
func (idx *Index) Entries() []TermEntry {
	entries := make([]TermEntry, 0, idx.vocab.Len())
	for id, pl := range idx.postings {
		entries = append(entries, TermEntry{
			Term:     idx.vocab.Term(id),
			Postings: pl,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (idx *Index) Stats() Stats {
	return idx.stats
}

// Equal reports whether two indexes hold the same documents, terms, posting
// lists and document frequencies. Internal term ids are ignored.
func (idx *Index) Equal(other *Index) bool {
	if idx.NumDocs() != other.NumDocs() || idx.NumTerms() != other.NumTerms() {
		return false
	}
	for i, d := range idx.docs {
		if other.docs[i] != d {
			return false
		}
	}
	for id, pl := range idx.postings {
		otherPL, ok := other.Lookup(idx.vocab.Term(id))
		if !ok || len(otherPL) != len(pl) {
			return false
		}
		for i := range pl {
			if pl[i] != otherPL[i] {
				return false
			}
		}
	}
	return true
}
