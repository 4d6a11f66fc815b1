// Package parser turns a boolean query string into an expression tree.
//
// Grammar, NOT binding tightest and OR loosest, equal precedence associating
// to the left:
//
//	or      := and { OR and }
//	and     := not { AND not }
//	not     := NOT not | primary
//	primary := WORD | '(' or ')'
//
// Two operands with no operator between them are rejected rather than
// joined with an implicit AND.
package parser

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

const maxDepth = 128

// QueryError reports a malformed query. Pos is a byte offset into Query.
type QueryError struct {
	Query  string
	Pos    int
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query at position %d: %s", e.Pos, e.Reason)
}

func (e *QueryError) Unwrap() error {
	return apperrors.ErrQuery
}

type parser struct {
	query  string
	tokens []token
	pos    int
	depth  int
}

// Parse parses query into an expression tree.
func Parse(query string) (Node, error) {
	p := &parser{query: query, tokens: lex(query)}
	if p.peek().kind == tokEOF {
		return nil, p.errorAt(0, "empty query")
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	switch tok := p.peek(); tok.kind {
	case tokEOF:
		return n, nil
	case tokRParen:
		return nil, p.errorAt(tok.pos, "unbalanced parentheses: unexpected ')'")
	default:
		return nil, p.errorAt(tok.pos, fmt.Sprintf("missing operator before %s %q", tok.kind, tok.text))
	}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) prev() (token, bool) {
	if p.pos == 0 {
		return token{}, false
	}
	return p.tokens[p.pos-1], true
}

func (p *parser) errorAt(pos int, reason string) *QueryError {
	return &QueryError{Query: p.query, Pos: pos, Reason: reason}
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().kind != tokNot {
		return p.parsePrimary()
	}
	p.next()
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, p.errorAt(p.peek().pos, "query is nested too deeply")
	}
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return Not{Operand: operand}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokWord:
		p.next()
		return Term{Word: tok.text, Pos: tok.pos}, nil
	case tokLParen:
		p.next()
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return nil, p.errorAt(tok.pos, "query is nested too deeply")
		}
		if p.peek().kind == tokRParen {
			return nil, p.errorAt(tok.pos, "empty parentheses")
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		switch closing := p.peek(); closing.kind {
		case tokRParen:
			p.next()
			return inner, nil
		case tokEOF:
			return nil, p.errorAt(tok.pos, "unbalanced parentheses: '(' is never closed")
		default:
			return nil, p.errorAt(closing.pos, fmt.Sprintf("missing operator before %s %q", closing.kind, closing.text))
		}
	}
	return nil, p.missingOperand(tok)
}

// missingOperand explains why tok cannot start an operand.
func (p *parser) missingOperand(tok token) *QueryError {
	if before, ok := p.prev(); ok {
		switch before.kind {
		case tokAnd, tokOr, tokNot:
			return p.errorAt(before.pos, fmt.Sprintf("operator %s is missing its right operand", before.kind))
		}
	}
	switch tok.kind {
	case tokAnd, tokOr:
		return p.errorAt(tok.pos, fmt.Sprintf("operator %s is missing its left operand", tok.kind))
	case tokRParen:
		return p.errorAt(tok.pos, "unbalanced parentheses: unexpected ')'")
	default:
		return p.errorAt(tok.pos, "expected a term")
	}
}
