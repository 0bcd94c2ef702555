package equation

import (
	"fmt"
	"strings"

	"github.com/npillmayer/mosra/lang"
)

// Span is a range of positions [Start, End]. Both ends are inclusive.
// For source spans, positions are byte offsets into the equation text;
// for prefix spans, positions are indices into the token sequence.
type Span struct {
	Start int
	End   int
}

// Len returns the number of positions covered by a span.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// Contains is a predicate: is span t completely inside s?
func (s Span) Contains(t Span) bool {
	return t.Start >= s.Start && t.End <= s.End
}

// Overlaps is true if s and t share positions, but neither contains the other.
func (s Span) Overlaps(t Span) bool {
	if s.End < t.Start || t.End < s.Start {
		return false
	}
	return !s.Contains(t) && !t.Contains(s)
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d]", s.Start, s.End)
}

// NodeKind is the type of an AST node.
type NodeKind int8

// Kinds of AST nodes
const (
	NumberNode NodeKind = iota + 1
	ParamNode
	EqnRefNode
	UnaryNode
	BinaryNode
	GroupNode
	FuncNode
	LoopNode
)

var nodeKindNames = map[NodeKind]string{
	NumberNode: "Number", ParamNode: "Param", EqnRefNode: "EquationRef",
	UnaryNode: "Unary", BinaryNode: "Binary", GroupNode: "Group",
	FuncNode: "Func", LoopNode: "Loop",
}

func (k NodeKind) String() string {
	return nodeKindNames[k]
}

// Subscript is a dimension subscript of a parameter or variable reference.
// It is either a dimension name (Name != "", Literal == false), or a literal
// index. Option names are literal indices into the option list.
// Constant index expressions keep their AST in Expr.
type Subscript struct {
	Span    Span // text between the brackets
	Name    string
	Index   int
	Literal bool
	Expr    *Node
}

func (s Subscript) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%d", s.Index)
}

// Node is a node of an equation AST. Which fields are meaningful depends
// on the node kind:
//
//	Number:   Value, Lexeme
//	Param:    Name, Dims, Variable
//	EqnRef:   Name
//	Unary:    Op, OpSpan, Args[0]
//	Binary:   Op, OpSpan, Args[0], Args[1]
//	Group:    Args[0]
//	Func:     Name, Func, Level, Body, ArgSeps, Args
//	Loop:     Name, Loop, Dim, DimSpan, Level, Body, Args[0]
//
type Node struct {
	Kind     NodeKind
	Span     Span
	Name     string
	Lexeme   string
	Value    float64
	Op       lang.Operator
	OpSpan   Span
	Dims     []Subscript
	Variable bool
	Func     lang.Function
	Loop     lang.LoopKeyword
	Dim      string
	DimSpan  Span
	Level    int
	Body     Span
	ArgSeps  []int
	Args     []*Node
}

// String returns a fully parenthesized rendering of an AST, for debugging.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case NumberNode:
		return n.Lexeme
	case ParamNode:
		var b strings.Builder
		b.WriteString(n.Name)
		for _, d := range n.Dims {
			b.WriteString("[" + d.String() + "]")
		}
		return b.String()
	case EqnRefNode:
		return n.Name
	case UnaryNode:
		return "(" + n.Op.Symbol + n.Args[0].String() + ")"
	case BinaryNode:
		return "(" + n.Args[0].String() + " " + n.Op.Symbol + " " + n.Args[1].String() + ")"
	case GroupNode:
		return n.Args[0].String()
	case FuncNode:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.String()
		}
		return n.Name + "(" + strings.Join(args, ", ") + ")"
	case LoopNode:
		return n.Name + "{" + n.Dim + "}(" + n.Args[0].String() + ")"
	}
	return "?"
}

// Walk traverses an AST in pre-order. If f returns false, the children of
// a node are skipped.
func Walk(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	if n.Kind == ParamNode {
		for _, d := range n.Dims {
			if d.Expr != nil {
				Walk(d.Expr, f)
			}
		}
	}
	for _, a := range n.Args {
		Walk(a, f)
	}
}
