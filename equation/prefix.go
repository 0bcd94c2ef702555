package equation

import (
	"fmt"
	"strings"

	"github.com/npillmayer/mosra/lang"
)

// TokenKind is the kind of a prefix token.
type TokenKind int8

// Kinds of prefix tokens
const (
	NumberToken   TokenKind = iota + 1
	OperatorToken           // fixed-arity operation
	NAryToken               // n-ary operation with explicit operand count
	ParamToken              // parameter or variable
	LoopToken               // loop header, followed by the loop body
	EquationToken           // reference to another equation
)

// LoopHeader describes a loop in prefix form. The operation and operand
// count of a loop are known only when the loop is expanded.
type LoopHeader struct {
	Keyword lang.LoopKeyword
	Dim     string
	Level   int
	Body    Span // token positions
}

// Token is an element of a prefix equation.
type Token struct {
	Kind     TokenKind
	Opcode   int
	Count    int // operand count of NAry tokens
	Value    float64
	Name     string
	Dims     []Subscript
	Variable bool
	Loop     *LoopHeader
}

func (t Token) String() string {
	switch t.Kind {
	case NumberToken:
		return fmt.Sprintf("n%g", t.Value)
	case OperatorToken:
		return fmt.Sprintf("o%d", t.Opcode)
	case NAryToken:
		return fmt.Sprintf("o%d/%d", t.Opcode, t.Count)
	case ParamToken:
		var b strings.Builder
		b.WriteString(t.Name)
		for _, d := range t.Dims {
			b.WriteString("[" + d.String() + "]")
		}
		return b.String()
	case LoopToken:
		return t.Loop.Keyword.Name + "{" + t.Loop.Dim + "}"
	case EquationToken:
		return "=" + t.Name
	}
	return "?"
}

// Prefix is an equation in prefix order: every operation precedes its
// operands. Admin addresses the elements by start token position.
type Prefix struct {
	Name   string
	Tokens []Token
	Admin  *Admin
}

func (p *Prefix) String() string {
	s := make([]string, len(p.Tokens))
	for i, t := range p.Tokens {
		s[i] = t.String()
	}
	return strings.Join(s, " ")
}

// Span returns the token range of the whole equation.
func (p *Prefix) Span() Span {
	return Span{0, len(p.Tokens) - 1}
}

// ToPrefix flattens the AST of an equation into prefix order.
//
// N-ary function calls are written with the header rules of loops:
// more than two operands as n-ary operation with operand count, two
// operands of sum as binary '+', and a single operand without any operation.
func ToPrefix(eq *Equation, l *lang.Language) *Prefix {
	if l == nil {
		l = lang.Standard()
	}
	f := &flattener{lang: l, admin: newAdmin(eq.Name, false)}
	f.flatten(eq.Root)
	p := &Prefix{Name: eq.Name, Tokens: f.tokens, Admin: f.admin}
	tracer().P("eqn", eq.Name).Debugf("prefix: %s", p.String())
	return p
}

type flattener struct {
	lang   *lang.Language
	tokens []Token
	admin  *Admin
}

func (f *flattener) emit(t Token) int {
	f.tokens = append(f.tokens, t)
	return len(f.tokens) - 1
}

func (f *flattener) last() int {
	return len(f.tokens) - 1
}

func (f *flattener) flatten(n *Node) {
	a := f.admin
	switch n.Kind {
	case NumberNode:
		pos := f.emit(Token{Kind: NumberToken, Value: n.Value})
		a.add(NumberElement, len(a.Numbers), Span{pos, pos})
		a.Numbers = append(a.Numbers, Number{Lexeme: n.Lexeme, Value: n.Value, Span: Span{pos, pos}})
	case ParamNode:
		pos := f.emit(Token{Kind: ParamToken, Name: n.Name, Dims: n.Dims, Variable: n.Variable})
		a.add(ParamElement, len(a.Params), Span{pos, pos})
		a.Params = append(a.Params, Param{Name: n.Name, Dimensions: n.Dims, Variable: n.Variable,
			Span: Span{pos, pos}})
	case EqnRefNode:
		pos := f.emit(Token{Kind: EquationToken, Name: n.Name})
		a.add(EquationElement, len(a.Equations), Span{pos, pos})
		a.Equations = append(a.Equations, EquationRef{Name: n.Name, Span: Span{pos, pos}})
	case GroupNode:
		f.flatten(n.Args[0])
	case UnaryNode, BinaryNode:
		pos := f.emit(Token{Kind: OperatorToken, Opcode: n.Op.Opcode})
		inx := len(a.Operators)
		a.Operators = append(a.Operators, Operator{Symbol: n.Op.Symbol, Opcode: n.Op.Opcode,
			Unary: n.Kind == UnaryNode})
		a.add(OperatorElement, inx, Span{pos, pos})
		for _, arg := range n.Args {
			f.flatten(arg)
		}
		a.Operators[inx].Span = Span{pos, f.last()}
		if n.Kind == UnaryNode {
			a.Operators[inx].Operand = Span{pos + 1, f.last()}
		}
	case FuncNode:
		f.function(n)
	case LoopNode:
		hdr := &LoopHeader{Keyword: n.Loop, Dim: n.Dim, Level: n.Level}
		pos := f.emit(Token{Kind: LoopToken, Opcode: n.Loop.Opcode, Name: n.Name, Loop: hdr})
		inx := len(a.Loops)
		a.Loops = append(a.Loops, Loop{Keyword: n.Name, Dim: n.Dim, Level: n.Level})
		a.add(LoopElement, inx, Span{pos, pos})
		f.flatten(n.Args[0])
		hdr.Body = Span{pos + 1, f.last()}
		a.Loops[inx].Span = Span{pos, f.last()}
		a.Loops[inx].Body = hdr.Body
	}
}

func (f *flattener) function(n *Node) {
	a := f.admin
	start := len(f.tokens)
	if n.Func.NAry() {
		k, ok := f.lang.LoopKeyword(n.Name)
		if !ok {
			k = lang.LoopKeyword{Name: n.Name, Opcode: n.Func.Opcode, BinaryOpcode: -1}
		}
		switch h := k.Header(len(n.Args)); {
		case h.Omit:
		case h.NAry:
			f.emit(Token{Kind: NAryToken, Opcode: h.Opcode, Count: h.Count})
		default:
			f.emit(Token{Kind: OperatorToken, Opcode: h.Opcode})
		}
	} else {
		f.emit(Token{Kind: OperatorToken, Opcode: n.Func.Opcode})
	}
	inx := len(a.Funcs)
	a.Funcs = append(a.Funcs, Func{Name: n.Name, Opcode: n.Func.Opcode, Level: n.Level})
	if start < len(f.tokens) {
		a.add(FuncElement, inx, Span{start, start})
	}
	args := make([]Span, len(n.Args))
	for i, arg := range n.Args {
		from := len(f.tokens)
		f.flatten(arg)
		args[i] = Span{from, f.last()}
	}
	fn := &a.Funcs[inx]
	fn.Span = Span{start, f.last()}
	fn.Body = Span{args[0].Start, f.last()}
	fn.Args = args
	if start == fn.Body.Start {
		// a single operand without operation: the function is only
		// reachable through the element list
		fn.Span = fn.Body
	}
}
