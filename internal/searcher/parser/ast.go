package parser

import "fmt"

// Node is a boolean query expression.
type Node interface {
	String() string
	node()
}

// Term is a query word as typed. Normalisation happens at evaluation time
// so the tree stays independent of any analyzer.
type Term struct {
	Word string
	Pos  int
}

type Not struct {
	Operand Node
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

func (Term) node() {}
func (Not) node()  {}
func (And) node()  {}
func (Or) node()   {}

func (t Term) String() string { return t.Word }
func (n Not) String() string  { return "NOT " + n.Operand.String() }
func (a And) String() string  { return fmt.Sprintf("(%s AND %s)", a.Left, a.Right) }
func (o Or) String() string   { return fmt.Sprintf("(%s OR %s)", o.Left, o.Right) }

// Terms returns every Term in the tree in left-to-right order.
func Terms(n Node) []Term {
	var out []Term
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Term:
			out = append(out, v)
		case Not:
			walk(v.Operand)
		case And:
			walk(v.Left)
			walk(v.Right)
		case Or:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)
	return out
}
