package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"cat", "cat"},
		{"cat AND dog", "(cat AND dog)"},
		{"cat OR dog", "(cat OR dog)"},
		{"NOT cat", "NOT cat"},
		{"a OR b AND c", "(a OR (b AND c))"},
		{"a AND b OR c", "((a AND b) OR c)"},
		{"NOT a AND b", "(NOT a AND b)"},
		{"a AND b AND c", "((a AND b) AND c)"},
		{"a OR b OR c", "((a OR b) OR c)"},
		{"(a OR b) AND c", "((a OR b) AND c)"},
		{"NOT (a OR b)", "NOT (a OR b)"},
		{"NOT NOT a", "NOT NOT a"},
		{"cat and dog", "(cat AND dog)"},
		{"cat Or dog", "(cat OR dog)"},
		{"  ((cat))  ", "cat"},
		{"(cat)AND(dog)", "(cat AND dog)"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			n, err := Parse(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		query  string
		reason string
		pos    int
	}{
		{"", "empty query", 0},
		{"   ", "empty query", 0},
		{"cat dog", "missing operator", 4},
		{"cat NOT dog", "missing operator", 4},
		{"(cat) dog", "missing operator", 6},
		{"(cat dog)", "missing operator", 5},
		{"cat AND", "AND is missing its right operand", 4},
		{"AND cat", "AND is missing its left operand", 0},
		{"cat OR OR dog", "OR is missing its right operand", 4},
		{"NOT", "NOT is missing its right operand", 0},
		{"(cat", "never closed", 0},
		{"cat)", "unexpected ')'", 3},
		{")", "unexpected ')'", 0},
		{"()", "empty parentheses", 0},
		{"(cat AND )", "AND is missing its right operand", 5},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := Parse(tt.query)
			require.Error(t, err)

			var qe *QueryError
			require.True(t, errors.As(err, &qe))
			assert.Contains(t, qe.Reason, tt.reason)
			assert.Equal(t, tt.pos, qe.Pos)
			assert.Equal(t, tt.query, qe.Query)
			assert.True(t, errors.Is(err, apperrors.ErrQuery))
		})
	}
}

func TestParseRejectsDeepNesting(t *testing.T) {
	q := strings.Repeat("(", maxDepth+1) + "cat" + strings.Repeat(")", maxDepth+1)
	_, err := Parse(q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")

	_, err = Parse(strings.Repeat("NOT ", maxDepth+1) + "cat")
	require.Error(t, err)
}

func TestTermsKeepsPositions(t *testing.T) {
	n, err := Parse("cat AND (dog OR NOT fish)")
	require.NoError(t, err)
	assert.Equal(t, []Term{
		{Word: "cat", Pos: 0},
		{Word: "dog", Pos: 9},
		{Word: "fish", Pos: 20},
	}, Terms(n))
}
