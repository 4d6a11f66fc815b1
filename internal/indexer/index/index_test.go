package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

func sampleDocs() []corpus.Document {
	return []corpus.Document{
		{ID: 1, Name: "d1", Text: "cat dog cat"},
		{ID: 2, Name: "d2", Text: "dog bird"},
		{ID: 3, Name: "d3", Text: "fish"},
	}
}

func TestBuild(t *testing.T) {
	idx, err := Build(sampleDocs(), tokenizer.Default())
	require.NoError(t, err)

	assert.Equal(t, 3, idx.NumDocs())
	assert.Equal(t, 4, idx.NumTerms())
	assert.Equal(t, []int{1, 2, 3}, idx.DocIDs())

	assert.Equal(t, PostingList{{DocID: 1, Frequency: 2}}, idx.Postings("cat"))
	assert.Equal(t, PostingList{{DocID: 1, Frequency: 1}, {DocID: 2, Frequency: 1}}, idx.Postings("dog"))
	assert.Equal(t, 2, idx.DocFreq("dog"))
	assert.Equal(t, 0, idx.DocFreq("unicorn"))
	assert.Nil(t, idx.Postings("unicorn"))

	d1, ok := idx.Doc(1)
	require.True(t, ok)
	assert.Equal(t, DocInfo{ID: 1, Name: "d1", Length: 3}, d1)

	id, ok := idx.DocByName("d3")
	require.True(t, ok)
	assert.Equal(t, 3, id)

	stats := idx.Stats()
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 4, stats.Terms)
	assert.Equal(t, 5, stats.Postings)
	assert.Equal(t, 6, stats.Tokens)
	assert.InDelta(t, 2.0, stats.AvgDocLength, 1e-9)
}

func TestBuildSortsPostingsForUnorderedInput(t *testing.T) {
	docs := []corpus.Document{
		{ID: 9, Name: "late", Text: "shared"},
		{ID: 2, Name: "early", Text: "shared"},
		{ID: 5, Name: "middle", Text: "shared"},
	}
	idx, err := Build(docs, tokenizer.Default())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, idx.Postings("shar").DocIDs())
	assert.Equal(t, []int{2, 5, 9}, idx.DocIDs())
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	docs := []corpus.Document{{ID: 1, Text: "a"}, {ID: 1, Text: "b"}}
	_, err := Build(docs, tokenizer.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateDocument))
}

func TestBuildEmptyDocuments(t *testing.T) {
	docs := []corpus.Document{{ID: 1, Name: "empty", Text: ""}, {ID: 2, Name: "stops", Text: "the and of"}}
	idx, err := Build(docs, tokenizer.Default())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.NumDocs())
	assert.Equal(t, 0, idx.NumTerms())
	assert.Empty(t, idx.Entries())
}

func TestBuildIdempotent(t *testing.T) {
	first, err := Build(sampleDocs(), tokenizer.Default())
	require.NoError(t, err)

	reversed := sampleDocs()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	second, err := Build(reversed, tokenizer.Default())
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Entries(), second.Entries())
	for _, e := range first.Entries() {
		assert.Equal(t, first.DocFreq(e.Term), second.DocFreq(e.Term))
	}
}

func TestEqualDetectsDifferences(t *testing.T) {
	a, err := Build(sampleDocs(), tokenizer.Default())
	require.NoError(t, err)
	docs := sampleDocs()
	docs[2].Text = "fish fish"
	b, err := Build(docs, tokenizer.Default())
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
}

func TestEveryPostingReferencesKnownDocument(t *testing.T) {
	idx, err := Build(sampleDocs(), tokenizer.Default())
	require.NoError(t, err)
	for _, e := range idx.Entries() {
		require.NotEmpty(t, e.Postings, e.Term)
		for _, p := range e.Postings {
			_, ok := idx.Doc(p.DocID)
			assert.True(t, ok, "term %q references unknown doc %d", e.Term, p.DocID)
		}
	}
}

func TestFromEntriesRoundTrip(t *testing.T) {
	idx, err := Build(sampleDocs(), tokenizer.Default())
	require.NoError(t, err)

	rebuilt, err := FromEntries(idx.Analyzer(), idx.Docs(), idx.Entries())
	require.NoError(t, err)
	assert.True(t, idx.Equal(rebuilt))
}

func TestFromEntriesValidation(t *testing.T) {
	docs := []DocInfo{{ID: 1, Name: "d1", Length: 1}, {ID: 2, Name: "d2", Length: 1}}
	tests := []struct {
		name    string
		entries []TermEntry
	}{
		{"empty postings", []TermEntry{{Term: "x"}}},
		{"unsorted", []TermEntry{{Term: "x", Postings: PostingList{{DocID: 2, Frequency: 1}, {DocID: 1, Frequency: 1}}}}},
		{"unknown doc", []TermEntry{{Term: "x", Postings: PostingList{{DocID: 7, Frequency: 1}}}}},
		{"duplicate term", []TermEntry{
			{Term: "x", Postings: PostingList{{DocID: 1, Frequency: 1}}},
			{Term: "x", Postings: PostingList{{DocID: 2, Frequency: 1}}},
		}},
		{"zero frequency", []TermEntry{{Term: "x", Postings: PostingList{{DocID: 1, Frequency: 0}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEntries(tokenizer.Default(), docs, tt.entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))
		})
	}
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary()
	assert.Equal(t, 0, v.Add("cat"))
	assert.Equal(t, 1, v.Add("dog"))
	assert.Equal(t, 0, v.Add("cat"))
	id, ok := v.ID("dog")
	require.True(t, ok)
	assert.Equal(t, "dog", v.Term(id))
	assert.Equal(t, 2, v.Len())
	_, ok = v.ID("bird")
	assert.False(t, ok)
}
