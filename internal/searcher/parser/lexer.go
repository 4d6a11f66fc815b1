package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokWord:
		return "term"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	default:
		return "end of query"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits a query into words, operators and parentheses. Operators are
// matched case-insensitively and only as whole words.
func lex(query string) []token {
	tokens := make([]token, 0, 8)
	i := 0
	for i < len(query) {
		r, size := utf8.DecodeRuneInString(query[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i += size
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i += size
		default:
			start := i
			for i < len(query) {
				r, size = utf8.DecodeRuneInString(query[i:])
				if unicode.IsSpace(r) || r == '(' || r == ')' {
					break
				}
				i += size
			}
			word := query[start:i]
			tokens = append(tokens, token{kind: wordKind(word), text: word, pos: start})
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(query)})
}

func wordKind(word string) tokenKind {
	switch strings.ToUpper(word) {
	case "AND":
		return tokAnd
	case "OR":
		return tokOr
	case "NOT":
		return tokNot
	default:
		return tokWord
	}
}
