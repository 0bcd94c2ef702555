package equation

/*
BSD License

Copyright (c) 2019–21, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions
are met:

1. Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright
notice, this list of conditions and the following disclaimer in the
documentation and/or other materials provided with the distribution.

3. Neither the name of this software nor the names of its contributors
may be used to endorse or promote products derived from this software
without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

----------------------------------------------------------------------

 * Recursive descent parser for equations. Binary operators are handled
 * by precedence climbing, driven by the operator table of the language.
 *
 * Which construct is currently open (loop, function call, parameter
 * subscript, group) is tracked on a scope stack. Nesting levels of loops
 * and function calls are derived from it.

*/

import (
	"math"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/lang"
	"github.com/timtadh/lexmachine"
)

// OptionsDimension is the name of the fixed dimension iterating over the
// land-use options.
const OptionsDimension = "OPTIONS"

// Symbols tells the parser about the names of the model.
type Symbols interface {
	IsEquation(name string) bool
	IsParameter(name string) bool
	VariableArity(name string) (int, bool) // number of dimensions of a decision variable
	IsDimension(name string) bool
	OptionIndex(name string) (int, bool) // position of a land-use option
}

// Equation is a parsed equation.
type Equation struct {
	Name   string
	Source string
	Root   *Node
	Admin  *Admin
}

// Parser parses equations of a language. A parser is immutable and may be
// shared.
type Parser struct {
	lang  *lang.Language
	syms  Symbols
	lexer *lexmachine.Lexer
}

// NewParser creates a parser for a language and a set of model symbols.
func NewParser(l *lang.Language, syms Symbols) (*Parser, error) {
	if l == nil {
		l = lang.Standard()
	}
	lexer, err := newLexer(l)
	if err != nil {
		return nil, err
	}
	return &Parser{lang: l, syms: syms, lexer: lexer}, nil
}

// Language returns the language of the parser.
func (p *Parser) Language() *lang.Language {
	return p.lang
}

// Parse parses the equation src with name self. If logEndPosition is set,
// elements are addressed by their end position in the Admin, otherwise by
// their start position.
//
// Errors are fatal and of kind mosra.ParseErr.
func (p *Parser) Parse(src string, self string, logEndPosition bool) (*Equation, error) {
	toks, err := p.tokenize(src, self)
	if err != nil {
		return nil, err
	}
	ps := &parseState{
		Parser: p,
		eqn:    self,
		src:    src,
		toks:   toks,
		scopes: arraystack.New(),
	}
	if ps.peek().typ == tokEOF {
		return nil, mosra.ParseError(self, 0, "empty equation")
	}
	root, err := ps.expression(0)
	if err != nil {
		return nil, err
	}
	if t := ps.peek(); t.typ != tokEOF {
		return nil, mosra.ParseError(self, t.pos, "unexpected %s", t)
	}
	eq := &Equation{
		Name:   self,
		Source: src,
		Root:   root,
		Admin:  buildAdmin(self, root, logEndPosition),
	}
	tracer().P("eqn", self).Debugf("parsed %s", root.String())
	return eq, nil
}

// --- Parse state -----------------------------------------------------------

type scopeKind int8

const (
	loopScope scopeKind = iota
	funcScope
	paramScope
	groupScope
)

type parseState struct {
	*Parser
	eqn    string
	src    string
	toks   []token
	pos    int
	scopes *arraystack.Stack // of scopeKind
}

func (ps *parseState) peek() token {
	return ps.toks[ps.pos]
}

func (ps *parseState) peekAt(n int) token {
	if ps.pos+n >= len(ps.toks) {
		return ps.toks[len(ps.toks)-1]
	}
	return ps.toks[ps.pos+n]
}

func (ps *parseState) next() token {
	t := ps.toks[ps.pos]
	if t.typ != tokEOF {
		ps.pos++
	}
	return t
}

func (ps *parseState) expect(typ int) (token, error) {
	t := ps.next()
	if t.typ != typ {
		return t, mosra.ParseError(ps.eqn, t.pos, "expected %s, found %s", tokenNames[typ], t)
	}
	return t, nil
}

func (ps *parseState) open(kind scopeKind) {
	ps.scopes.Push(kind)
}

func (ps *parseState) close(kind scopeKind) {
	if top, ok := ps.scopes.Pop(); !ok || top.(scopeKind) != kind {
		panic("equation parser: unbalanced scope stack")
	}
}

// level counts the open scopes of a kind.
func (ps *parseState) level(kind scopeKind) int {
	n := 0
	for _, s := range ps.scopes.Values() {
		if s.(scopeKind) == kind {
			n++
		}
	}
	return n
}

// --- Expressions -----------------------------------------------------------

// expression parses binary operator expressions with precedence >= minPrec.
func (ps *parseState) expression(minPrec int) (*Node, error) {
	lhs, err := ps.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := ps.peek()
		if t.typ != tokOperator {
			break
		}
		op, ok := ps.lang.Operator(t.lexeme)
		if !ok {
			return nil, mosra.ParseError(ps.eqn, t.pos, "operator %q is not a binary operator", t.lexeme)
		}
		if op.Precedence < minPrec {
			break
		}
		ps.next()
		nextPrec := op.Precedence + 1
		if op.Assoc == lang.Right {
			nextPrec = op.Precedence
		}
		rhs, err := ps.expression(nextPrec)
		if err != nil {
			return nil, err
		}
		lhs = &Node{
			Kind:   BinaryNode,
			Span:   Span{lhs.Span.Start, rhs.Span.End},
			Op:     op,
			OpSpan: Span{t.pos, t.end()},
			Args:   []*Node{lhs, rhs},
		}
	}
	return lhs, nil
}

// unary parses prefix '-' and '+'.
func (ps *parseState) unary() (*Node, error) {
	t := ps.peek()
	if t.typ == tokOperator && (t.lexeme == "-" || t.lexeme == "+") {
		ps.next()
		neg := ps.lang.UnaryMinus()
		operand, err := ps.expression(neg.Precedence)
		if err != nil {
			return nil, err
		}
		if t.lexeme == "+" {
			return operand, nil
		}
		return &Node{
			Kind:   UnaryNode,
			Span:   Span{t.pos, operand.Span.End},
			Op:     neg,
			OpSpan: Span{t.pos, t.end()},
			Args:   []*Node{operand},
		}, nil
	}
	return ps.primary()
}

func (ps *parseState) primary() (*Node, error) {
	t := ps.next()
	switch t.typ {
	case tokNumber:
		if n := ps.peek(); n.typ == tokNumber || n.typ == tokIdent {
			if n.pos == t.end()+1 {
				return nil, mosra.ParseError(ps.eqn, t.pos, "malformed literal %q",
					t.lexeme+n.lexeme)
			}
		}
		return &Node{Kind: NumberNode, Span: Span{t.pos, t.end()}, Value: t.value, Lexeme: t.lexeme}, nil
	case tokLParen:
		ps.open(groupScope)
		inner, err := ps.expression(0)
		if err != nil {
			return nil, err
		}
		r, err := ps.expect(tokRParen)
		if err != nil {
			return nil, err
		}
		ps.close(groupScope)
		return &Node{Kind: GroupNode, Span: Span{t.pos, r.pos}, Args: []*Node{inner}}, nil
	case tokIdent:
		switch ps.peek().typ {
		case tokLBrace:
			return ps.loop(t)
		case tokLParen:
			return ps.call(t)
		}
		return ps.reference(t)
	}
	return nil, mosra.ParseError(ps.eqn, t.pos, "unexpected %s", t)
}

// loop parses KEYWORD{DIM}(body).
func (ps *parseState) loop(kw token) (*Node, error) {
	keyword, ok := ps.lang.LoopKeyword(kw.lexeme)
	if !ok {
		return nil, mosra.ParseError(ps.eqn, kw.pos, "unknown loop keyword %q", kw.lexeme)
	}
	ps.next() // '{'
	dim, err := ps.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if !ps.isDimension(dim.lexeme) {
		return nil, mosra.ParseError(ps.eqn, dim.pos, "unknown dimension %q", dim.lexeme)
	}
	if _, err = ps.expect(tokRBrace); err != nil {
		return nil, err
	}
	lp, err := ps.expect(tokLParen)
	if err != nil {
		return nil, err
	}
	level := ps.level(loopScope)
	ps.open(loopScope)
	body, err := ps.expression(0)
	if err != nil {
		return nil, err
	}
	rp, err := ps.expect(tokRParen)
	if err != nil {
		return nil, err
	}
	ps.close(loopScope)
	return &Node{
		Kind:    LoopNode,
		Span:    Span{kw.pos, rp.pos},
		Name:    kw.lexeme,
		Loop:    keyword,
		Dim:     dim.lexeme,
		DimSpan: Span{dim.pos, dim.end()},
		Level:   level,
		Body:    Span{lp.pos + 1, rp.pos - 1},
		Args:    []*Node{body},
	}, nil
}

// call parses fname(arg, ...).
func (ps *parseState) call(name token) (*Node, error) {
	f, ok := ps.lang.Function(name.lexeme)
	if !ok {
		return nil, mosra.ParseError(ps.eqn, name.pos, "unknown function %q", name.lexeme)
	}
	lp := ps.next() // '('
	n := &Node{
		Kind:  FuncNode,
		Name:  name.lexeme,
		Func:  f,
		Level: ps.level(funcScope),
	}
	ps.open(funcScope)
	if ps.peek().typ != tokRParen {
		for {
			arg, err := ps.expression(0)
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, arg)
			if ps.peek().typ != tokComma {
				break
			}
			n.ArgSeps = append(n.ArgSeps, ps.next().pos)
		}
	}
	rp, err := ps.expect(tokRParen)
	if err != nil {
		return nil, err
	}
	ps.close(funcScope)
	if len(n.Args) < f.MinArgs || (!f.NAry() && len(n.Args) > f.MaxArgs) {
		return nil, mosra.ParseError(ps.eqn, name.pos, "function %s called with %d arguments",
			f.Name, len(n.Args))
	}
	n.Span = Span{name.pos, rp.pos}
	n.Body = Span{lp.pos + 1, rp.pos - 1}
	return n, nil
}

// reference parses parameters, variables and references to other equations.
func (ps *parseState) reference(id token) (*Node, error) {
	name := id.lexeme
	if arity, ok := ps.syms.VariableArity(name); ok {
		n := &Node{Kind: ParamNode, Name: name, Variable: true, Span: Span{id.pos, id.end()}}
		for i := 0; i < arity; i++ {
			if ps.peek().typ != tokLBracket {
				return nil, mosra.ParseError(ps.eqn, id.pos, "variable %s expects %d dimensions, got %d",
					name, arity, i)
			}
			if err := ps.subscript(n); err != nil {
				return nil, err
			}
		}
		if t := ps.peek(); t.typ == tokLBracket {
			return nil, mosra.ParseError(ps.eqn, t.pos, "variable %s expects %d dimensions", name, arity)
		}
		return n, nil
	}
	if ps.syms.IsParameter(name) {
		n := &Node{Kind: ParamNode, Name: name, Span: Span{id.pos, id.end()}}
		for ps.peek().typ == tokLBracket {
			if err := ps.subscript(n); err != nil {
				return nil, err
			}
		}
		return n, nil
	}
	if ps.syms.IsEquation(name) {
		if name == ps.eqn {
			return nil, mosra.ParseError(ps.eqn, id.pos, "equation %s references itself", name)
		}
		return &Node{Kind: EqnRefNode, Name: name, Span: Span{id.pos, id.end()}}, nil
	}
	if ps.isDimension(name) {
		return nil, mosra.ParseError(ps.eqn, id.pos, "dimension %s used as a value", name)
	}
	return nil, mosra.ParseError(ps.eqn, id.pos, "unknown identifier %q", name)
}

// subscript parses '[' dimension ']' and appends it to a parameter node.
func (ps *parseState) subscript(n *Node) error {
	lb := ps.next() // '['
	ps.open(paramScope)
	sub := Subscript{}
	if t := ps.peek(); t.typ == tokIdent && ps.peekAt(1).typ == tokRBracket {
		ps.next()
		if idx, ok := ps.syms.OptionIndex(t.lexeme); ok && !ps.isDimension(t.lexeme) {
			sub.Name, sub.Index, sub.Literal = t.lexeme, idx, true
		} else if ps.isDimension(t.lexeme) {
			sub.Name = t.lexeme
		} else {
			return mosra.ParseError(ps.eqn, t.pos, "unknown dimension %q", t.lexeme)
		}
	} else {
		expr, err := ps.expression(0)
		if err != nil {
			return err
		}
		v, err := ps.constant(expr)
		if err != nil {
			return err
		}
		if v < 0 || v != math.Trunc(v) {
			return mosra.ParseError(ps.eqn, expr.Span.Start, "dimension index must be a non-negative integer, is %g", v)
		}
		sub.Index, sub.Literal = int(v), true
		if expr.Kind != NumberNode {
			sub.Expr = expr
		}
	}
	rb, err := ps.expect(tokRBracket)
	if err != nil {
		return err
	}
	ps.close(paramScope)
	sub.Span = Span{lb.pos + 1, rb.pos - 1}
	n.Dims = append(n.Dims, sub)
	n.Span.End = rb.pos
	return nil
}

// constant evaluates a constant subscript expression.
func (ps *parseState) constant(n *Node) (float64, error) {
	switch n.Kind {
	case NumberNode:
		return n.Value, nil
	case GroupNode:
		return ps.constant(n.Args[0])
	case UnaryNode, BinaryNode:
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := ps.constant(a)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		v, err := ps.lang.Apply(n.Op.Opcode, args...)
		if err != nil {
			return 0, mosra.ParseError(ps.eqn, n.Span.Start, "%v", err)
		}
		return v, nil
	}
	return 0, mosra.ParseError(ps.eqn, n.Span.Start, "dimension index %s is not constant",
		strings.TrimSpace(ps.src[n.Span.Start:n.Span.End+1]))
}

func (ps *parseState) isDimension(name string) bool {
	return name == OptionsDimension || ps.syms.IsDimension(name)
}
