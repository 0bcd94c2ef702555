package equation

import (
	"fmt"

	"github.com/npillmayer/mosra/lang"
)

// Env binds parameters, variables and equation references to values for
// evaluation. Keys are rendered references like "x" or "c[2][DIM]".
type Env map[string]float64

func paramKey(name string, dims []Subscript) string {
	t := Token{Kind: ParamToken, Name: name, Dims: dims}
	return t.String()
}

func (env Env) lookup(key string) (float64, error) {
	if v, ok := env[key]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("no value for %s", key)
}

// EvalInfix evaluates the AST of a loop-free equation.
func EvalInfix(eq *Equation, l *lang.Language, env Env) (float64, error) {
	if l == nil {
		l = lang.Standard()
	}
	return evalNode(eq.Root, l, env)
}

func evalNode(n *Node, l *lang.Language, env Env) (float64, error) {
	switch n.Kind {
	case NumberNode:
		return n.Value, nil
	case ParamNode:
		return env.lookup(paramKey(n.Name, n.Dims))
	case EqnRefNode:
		return env.lookup(n.Name)
	case GroupNode:
		return evalNode(n.Args[0], l, env)
	case LoopNode:
		return 0, fmt.Errorf("cannot evaluate loop over %s without table data", n.Dim)
	}
	args := make([]float64, len(n.Args))
	for i, a := range n.Args {
		v, err := evalNode(a, l, env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	if n.Kind == FuncNode {
		return l.Apply(n.Func.Opcode, args...)
	}
	return l.Apply(n.Op.Opcode, args...)
}

// EvalPrefix evaluates a loop-free prefix equation.
func EvalPrefix(p *Prefix, l *lang.Language, env Env) (float64, error) {
	if l == nil {
		l = lang.Standard()
	}
	e := prefixEval{p: p, l: l, env: env}
	v, err := e.eval()
	if err != nil {
		return 0, err
	}
	if e.pos != len(p.Tokens) {
		return 0, fmt.Errorf("equation %s: %d surplus tokens", p.Name, len(p.Tokens)-e.pos)
	}
	return v, nil
}

type prefixEval struct {
	p   *Prefix
	l   *lang.Language
	env Env
	pos int
}

func (e *prefixEval) eval() (float64, error) {
	if e.pos >= len(e.p.Tokens) {
		return 0, fmt.Errorf("equation %s: missing operand", e.p.Name)
	}
	t := e.p.Tokens[e.pos]
	e.pos++
	var n int
	switch t.Kind {
	case NumberToken:
		return t.Value, nil
	case ParamToken:
		return e.env.lookup(paramKey(t.Name, t.Dims))
	case EquationToken:
		return e.env.lookup(t.Name)
	case LoopToken:
		return 0, fmt.Errorf("cannot evaluate loop over %s without table data", t.Loop.Dim)
	case NAryToken:
		n = t.Count
	case OperatorToken:
		n = e.l.Arity(t.Opcode)
	}
	args := make([]float64, n)
	for i := range args {
		v, err := e.eval()
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return e.l.Apply(t.Opcode, args...)
}
