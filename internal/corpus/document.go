// Package corpus defines the raw document type consumed by the index builder
// and the sources that produce it. Sources only decode text; normalisation is
// the analyzer's job.
package corpus

import (
	"context"
	"strconv"
	"strings"
)

const snippetLength = 120

// Document is one unit of retrieval. Text is owned by the document and must
// not be modified after ingestion.
type Document struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Text string `json:"-"`
}

// Source loads the full document set.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
}

// Snippet returns the first characters of the document text on a single line.
func (d Document) Snippet() string {
	text := strings.Join(strings.Fields(d.Text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}

// Static is a Source over an in-memory document slice.
type Static []Document

func (s Static) Load(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := make([]Document, len(s))
	copy(docs, s)
	return docs, nil
}

// FromTexts assigns ids 1..N to texts in order, naming each document "dN".
func FromTexts(texts ...string) Static {
	docs := make(Static, len(texts))
	for i, text := range texts {
		docs[i] = Document{
			ID:   i + 1,
			Name: "d" + strconv.Itoa(i+1),
			Text: text,
		}
	}
	return docs
}
