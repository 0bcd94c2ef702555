package codegen

import (
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/dimension"
	"github.com/npillmayer/mosra/table"
)

// Context is the state of a generation walk.
//
// Loop counters are kept per equation and dimension. A counter is 1-based,
// an absent counter means the loop has not been entered. Dimension bindings
// are shared between an equation and the equations it refers to, so loop
// variables of outer equations stay visible.
type Context struct {
	eqn      string
	counters map[string]map[string]int
	bindings []dimension.Binding
	rows     []table.Row // rows of the current segment or loop iteration
	colIndex map[string]int
}

// NewContext creates an empty generation context.
func NewContext() *Context {
	return &Context{counters: make(map[string]map[string]int)}
}

// Equation returns the name of the equation currently walked.
func (c *Context) Equation() string {
	return c.eqn
}

// Enter starts a loop over dim in equation eqn.
func (c *Context) Enter(eqn, dim string) {
	m := c.counters[eqn]
	if m == nil {
		m = make(map[string]int)
		c.counters[eqn] = m
	}
	m[dim] = 1
}

// Advance moves a loop to its next iteration and returns the new counter.
func (c *Context) Advance(eqn, dim string) int {
	if m := c.counters[eqn]; m != nil && m[dim] > 0 {
		m[dim]++
		return m[dim]
	}
	c.Enter(eqn, dim)
	return 1
}

// Counter returns the iteration of the loop over dim in equation eqn.
func (c *Context) Counter(eqn, dim string) (int, bool) {
	n, ok := c.counters[eqn][dim]
	return n, ok
}

func (c *Context) setCounter(eqn, dim string, n int) {
	c.Enter(eqn, dim)
	c.counters[eqn][dim] = n
}

// Drop closes a loop.
func (c *Context) Drop(eqn, dim string) {
	if m := c.counters[eqn]; m != nil {
		delete(m, dim)
		if len(m) == 0 {
			delete(c.counters, eqn)
		}
	}
}

// Bind binds a dimension to a value, shadowing outer bindings.
func (c *Context) Bind(dim string, v mosra.Value) {
	c.bindings = append(c.bindings, dimension.Binding{Dim: dim, Value: v})
}

// Binding returns the innermost value bound to a dimension.
func (c *Context) Binding(dim string) (mosra.Value, bool) {
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if c.bindings[i].Dim == dim {
			return c.bindings[i].Value, true
		}
	}
	return nil, false
}

// Bindings returns all current bindings, outermost first.
func (c *Context) Bindings() []dimension.Binding {
	return c.bindings
}

// Rows returns the table rows in scope.
func (c *Context) Rows() []table.Row {
	return c.rows
}

func (c *Context) column(name string) (int, bool) {
	i, ok := c.colIndex[name]
	return i, ok
}

type contextState struct {
	eqn      string
	bindings int
	rows     []table.Row
}

func (c *Context) save() contextState {
	return contextState{eqn: c.eqn, bindings: len(c.bindings), rows: c.rows}
}

func (c *Context) restore(s contextState) {
	c.eqn = s.eqn
	c.bindings = c.bindings[:s.bindings]
	c.rows = s.rows
}
