// Package boolean evaluates AND/OR/NOT queries against an inverted index
// using set algebra over sorted posting lists.
package boolean

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
)

// Result is the outcome of a boolean query. DocIDs is ascending.
// UnknownTerms lists normalised query terms that occur in no document; they
// are not an error, they simply match nothing.
type Result struct {
	DocIDs       []int    `json:"doc_ids"`
	UnknownTerms []string `json:"unknown_terms,omitempty"`
}

// Compile parses query and normalises every operand with analyzer. An
// operand that normalises to several terms becomes the AND of those terms.
// An operand that normalises to nothing, such as a stop-word, is a
// QueryError.
func Compile(query string, analyzer *tokenizer.Analyzer) (parser.Node, error) {
	tree, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	return normalize(query, tree, analyzer)
}

func normalize(query string, n parser.Node, analyzer *tokenizer.Analyzer) (parser.Node, error) {
	switch v := n.(type) {
	case parser.Term:
		terms := analyzer.Normalize(v.Word)
		if len(terms) == 0 {
			return nil, &parser.QueryError{
				Query:  query,
				Pos:    v.Pos,
				Reason: fmt.Sprintf("operand %q contains no searchable terms", v.Word),
			}
		}
		var out parser.Node = parser.Term{Word: terms[0], Pos: v.Pos}
		for _, t := range terms[1:] {
			out = parser.And{Left: out, Right: parser.Term{Word: t, Pos: v.Pos}}
		}
		return out, nil
	case parser.Not:
		operand, err := normalize(query, v.Operand, analyzer)
		if err != nil {
			return nil, err
		}
		return parser.Not{Operand: operand}, nil
	case parser.And:
		left, right, err := normalizePair(query, v.Left, v.Right, analyzer)
		if err != nil {
			return nil, err
		}
		return parser.And{Left: left, Right: right}, nil
	case parser.Or:
		left, right, err := normalizePair(query, v.Left, v.Right, analyzer)
		if err != nil {
			return nil, err
		}
		return parser.Or{Left: left, Right: right}, nil
	}
	return nil, fmt.Errorf("unknown query node %T", n)
}

func normalizePair(query string, l, r parser.Node, analyzer *tokenizer.Analyzer) (parser.Node, parser.Node, error) {
	left, err := normalize(query, l, analyzer)
	if err != nil {
		return nil, nil, err
	}
	right, err := normalize(query, r, analyzer)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// Evaluate runs query against idx.
func Evaluate(query string, idx *index.Index) (*Result, error) {
	tree, err := Compile(query, idx.Analyzer())
	if err != nil {
		return nil, err
	}
	return Run(tree, idx), nil
}

// Run evaluates an already compiled tree.
func Run(tree parser.Node, idx *index.Index) *Result {
	return &Result{DocIDs: eval(tree, idx), UnknownTerms: unknownTerms(tree, idx)}
}

func unknownTerms(tree parser.Node, idx *index.Index) []string {
	var unknown []string
	seen := make(map[string]struct{})
	for _, t := range parser.Terms(tree) {
		if _, dup := seen[t.Word]; dup {
			continue
		}
		seen[t.Word] = struct{}{}
		if idx.DocFreq(t.Word) == 0 {
			unknown = append(unknown, t.Word)
		}
	}
	return unknown
}

// Explanation is one node of an evaluated query tree with the number of
// documents it matched.
type Explanation struct {
	Expr     string        `json:"expr"`
	Matches  int           `json:"matches"`
	Children []Explanation `json:"children,omitempty"`
}

// Explain evaluates query against idx and reports the match count of every
// node of the normalised tree.
func Explain(query string, idx *index.Index) (*Explanation, error) {
	_, exp, err := EvaluateExplain(query, idx)
	return exp, err
}

// EvaluateExplain is Evaluate and Explain in one pass: the result ids are
// those of the explanation's root.
func EvaluateExplain(query string, idx *index.Index) (*Result, *Explanation, error) {
	tree, err := Compile(query, idx.Analyzer())
	if err != nil {
		return nil, nil, err
	}
	exp, ids := explain(tree, idx)
	if ids == nil {
		ids = []int{}
	}
	return &Result{DocIDs: ids, UnknownTerms: unknownTerms(tree, idx)}, &exp, nil
}

func explain(n parser.Node, idx *index.Index) (Explanation, []int) {
	var children []Explanation
	var ids []int
	switch v := n.(type) {
	case parser.Term:
		ids = eval(v, idx)
	case parser.Not:
		child, operand := explain(v.Operand, idx)
		children = []Explanation{child}
		ids = merger.Complement(idx.DocIDs(), operand)
	case parser.And:
		left, l := explain(v.Left, idx)
		right, r := explain(v.Right, idx)
		children = []Explanation{left, right}
		ids = merger.Intersect(l, r)
	case parser.Or:
		left, l := explain(v.Left, idx)
		right, r := explain(v.Right, idx)
		children = []Explanation{left, right}
		ids = merger.Union(l, r)
	}
	return Explanation{Expr: n.String(), Matches: len(ids), Children: children}, ids
}

func eval(n parser.Node, idx *index.Index) []int {
	switch v := n.(type) {
	case parser.Term:
		return idx.Postings(v.Word).DocIDs()
	case parser.Not:
		return merger.Complement(idx.DocIDs(), eval(v.Operand, idx))
	case parser.And:
		// A AND NOT B is a single difference pass instead of a
		// complement followed by an intersection.
		if not, ok := v.Right.(parser.Not); ok {
			return merger.Difference(eval(v.Left, idx), eval(not.Operand, idx))
		}
		return merger.Intersect(eval(v.Left, idx), eval(v.Right, idx))
	case parser.Or:
		return merger.Union(eval(v.Left, idx), eval(v.Right, idx))
	}
	return []int{}
}
