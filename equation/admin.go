package equation

import (
	"fmt"
	"sort"
)

// ElementKind is the kind of an element recorded in an Admin.
type ElementKind int8

// Kinds of elements
const (
	ParamElement ElementKind = iota + 1
	NumberElement
	OperatorElement
	LoopElement
	FuncElement
	EquationElement
)

func (k ElementKind) String() string {
	switch k {
	case ParamElement:
		return "Param"
	case NumberElement:
		return "Number"
	case OperatorElement:
		return "Operator"
	case LoopElement:
		return "Loop"
	case FuncElement:
		return "Func"
	case EquationElement:
		return "Equation"
	}
	return "?"
}

// Element references an entry of one of the element lists of an Admin.
type Element struct {
	Kind  ElementKind
	Index int
}

// Param is a parameter or variable reference.
type Param struct {
	Name       string
	Dimensions []Subscript
	Variable   bool
	Span       Span
}

// Number is a numeric literal.
type Number struct {
	Lexeme string
	Value  float64
	Span   Span
}

// Operator is a binary or unary operator. For unary operators, Span
// covers the operand as well, and Operand is the operand's span.
type Operator struct {
	Symbol  string
	Opcode  int
	Unary   bool
	Span    Span
	Operand Span
}

// Loop is a loop over a dimension.
type Loop struct {
	Keyword string
	Dim     string
	Level   int // 0 = outermost
	Span    Span
	Body    Span
}

// Func is a call of a built-in function. Args holds the span of each
// argument.
type Func struct {
	Name    string
	Opcode  int
	Level   int
	Span    Span
	Body    Span
	ArgSeps []int
	Args    []Span
}

// EquationRef is a reference to another equation.
type EquationRef struct {
	Name string
	Span Span
}

// Admin administers the elements of one parsed equation. Positions are
// byte offsets for an equation source and token positions for a prefix
// equation.
//
// elemMap is addressed either by element end positions or by element start
// positions. Elements sharing a position are ordered outermost first.
type Admin struct {
	Equation     string
	EndAddressed bool
	Params       []Param
	Numbers      []Number
	Operators    []Operator
	Loops        []Loop
	Funcs        []Func
	Equations    []EquationRef
	elemMap      map[int][]Element
}

func newAdmin(eqn string, logEndPosition bool) *Admin {
	return &Admin{
		Equation:     eqn,
		EndAddressed: logEndPosition,
		elemMap:      make(map[int][]Element),
	}
}

// buildAdmin collects the elements of an AST.
func buildAdmin(eqn string, root *Node, logEndPosition bool) *Admin {
	a := newAdmin(eqn, logEndPosition)
	Walk(root, func(n *Node) bool {
		switch n.Kind {
		case NumberNode:
			a.add(NumberElement, len(a.Numbers), n.Span)
			a.Numbers = append(a.Numbers, Number{Lexeme: n.Lexeme, Value: n.Value, Span: n.Span})
		case ParamNode:
			a.add(ParamElement, len(a.Params), n.Span)
			a.Params = append(a.Params, Param{Name: n.Name, Dimensions: n.Dims, Variable: n.Variable, Span: n.Span})
		case EqnRefNode:
			a.add(EquationElement, len(a.Equations), n.Span)
			a.Equations = append(a.Equations, EquationRef{Name: n.Name, Span: n.Span})
		case UnaryNode:
			a.add(OperatorElement, len(a.Operators), n.Span)
			a.Operators = append(a.Operators, Operator{Symbol: n.Op.Symbol, Opcode: n.Op.Opcode,
				Unary: true, Span: n.Span, Operand: n.Args[0].Span})
		case BinaryNode:
			a.add(OperatorElement, len(a.Operators), n.OpSpan)
			a.Operators = append(a.Operators, Operator{Symbol: n.Op.Symbol, Opcode: n.Op.Opcode, Span: n.OpSpan})
		case LoopNode:
			a.add(LoopElement, len(a.Loops), n.Span)
			a.Loops = append(a.Loops, Loop{Keyword: n.Name, Dim: n.Dim, Level: n.Level, Span: n.Span, Body: n.Body})
		case FuncNode:
			args := make([]Span, len(n.Args))
			start := n.Body.Start
			for i := range n.Args {
				end := n.Body.End
				if i < len(n.ArgSeps) {
					end = n.ArgSeps[i] - 1
				}
				args[i] = Span{start, end}
				if i < len(n.ArgSeps) {
					start = n.ArgSeps[i] + 1
				}
			}
			a.add(FuncElement, len(a.Funcs), n.Span)
			a.Funcs = append(a.Funcs, Func{Name: n.Name, Opcode: n.Func.Opcode, Level: n.Level,
				Span: n.Span, Body: n.Body, ArgSeps: n.ArgSeps, Args: args})
		}
		return true
	})
	return a
}

// add registers an element. Callers add enclosing elements before
// enclosed ones, which keeps the outermost element first per position.
func (a *Admin) add(kind ElementKind, index int, span Span) {
	pos := span.Start
	if a.EndAddressed {
		pos = span.End
	}
	a.elemMap[pos] = append(a.elemMap[pos], Element{Kind: kind, Index: index})
}

// ElementAt returns the outermost element recorded at a position.
func (a *Admin) ElementAt(pos int) (Element, bool) {
	if elems := a.elemMap[pos]; len(elems) > 0 {
		return elems[0], true
	}
	return Element{}, false
}

// ElementsAt returns all elements recorded at a position, outermost first.
func (a *Admin) ElementsAt(pos int) []Element {
	return a.elemMap[pos]
}

// Positions returns the addressed positions in ascending order.
func (a *Admin) Positions() []int {
	pp := make([]int, 0, len(a.elemMap))
	for p := range a.elemMap {
		pp = append(pp, p)
	}
	sort.Ints(pp)
	return pp
}

// SpanOf returns the span of an element.
func (a *Admin) SpanOf(e Element) Span {
	switch e.Kind {
	case ParamElement:
		return a.Params[e.Index].Span
	case NumberElement:
		return a.Numbers[e.Index].Span
	case OperatorElement:
		return a.Operators[e.Index].Span
	case LoopElement:
		return a.Loops[e.Index].Span
	case FuncElement:
		return a.Funcs[e.Index].Span
	case EquationElement:
		return a.Equations[e.Index].Span
	}
	return Span{-1, -1}
}

func (a *Admin) count(kind ElementKind) int {
	switch kind {
	case ParamElement:
		return len(a.Params)
	case NumberElement:
		return len(a.Numbers)
	case OperatorElement:
		return len(a.Operators)
	case LoopElement:
		return len(a.Loops)
	case FuncElement:
		return len(a.Funcs)
	case EquationElement:
		return len(a.Equations)
	}
	return 0
}

// Check verifies the consistency of an Admin: every element reference
// must be valid and addressed by its own start or end position, and no
// two element spans may partially overlap.
func (a *Admin) Check() error {
	var spans []Span
	for pos, elems := range a.elemMap {
		for _, e := range elems {
			if e.Index < 0 || e.Index >= a.count(e.Kind) {
				return fmt.Errorf("equation %s: invalid %s element #%d at position %d",
					a.Equation, e.Kind, e.Index, pos)
			}
			span := a.SpanOf(e)
			if (a.EndAddressed && span.End != pos) || (!a.EndAddressed && span.Start != pos) {
				return fmt.Errorf("equation %s: %s element %v recorded at position %d",
					a.Equation, e.Kind, span, pos)
			}
			spans = append(spans, span)
		}
	}
	for i := 1; i < len(spans); i++ {
		for j := 0; j < i; j++ {
			if spans[j].Overlaps(spans[i]) {
				return fmt.Errorf("equation %s: element spans %v and %v overlap",
					a.Equation, spans[j], spans[i])
			}
		}
	}
	return nil
}

// endIndex returns a map from end positions to elements, outermost first.
func (a *Admin) endIndex() map[int][]Element {
	if a.EndAddressed {
		return a.elemMap
	}
	type entry struct {
		e    Element
		span Span
	}
	byEnd := make(map[int][]entry)
	for _, elems := range a.elemMap {
		for _, e := range elems {
			s := a.SpanOf(e)
			byEnd[s.End] = append(byEnd[s.End], entry{e, s})
		}
	}
	index := make(map[int][]Element, len(byEnd))
	for pos, entries := range byEnd {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].span.Start < entries[j].span.Start
		})
		for _, en := range entries {
			index[pos] = append(index[pos], en.e)
		}
	}
	return index
}
