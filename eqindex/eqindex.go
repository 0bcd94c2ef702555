/*
Package eqindex indexes the equations of a problem.

For every equation the index records the parameters, variables,
dimensions and nested equations it refers to, transitively through nested
equation references. From this the code generator learns which table
columns to read and in which order the rows have to arrive:

• free dimensions are referenced by a subscript without an enclosing
loop over them. Every distinct combination of free dimension values
yields a separate constraint (e.g., one row per spatial unit).

• loop dimensions are iterated over by a loop.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package eqindex

import (
	"sort"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/equation"
	"github.com/npillmayer/mosra/settings"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra.eqindex'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.eqindex")
}

// Entry is the index entry of an equation.
type Entry struct {
	Name       string
	Params     []string // ordinary parameters
	Variables  []string
	Dimensions []string // every dimension referenced
	Equations  []string // nested equations, transitively
	Columns    []string // table columns to read
	FreeDims   []string // in order of first reference
	LoopDims   []string // outer loops first, without OPTIONS
}

// Index holds the entries of all equations.
type Index struct {
	entries map[string]*Entry
}

// Build indexes every equation known to a compiler. Symbols are resolved
// by the settings.
func Build(c *equation.Compiler, s *settings.Settings) (*Index, error) {
	ix := &Index{entries: make(map[string]*Entry)}
	for _, name := range c.Names() {
		b := &builder{
			compiler: c,
			settings: s,
			params:   treeset.NewWithStringComparator(),
			vars:     treeset.NewWithStringComparator(),
			dims:     treeset.NewWithStringComparator(),
			eqns:     treeset.NewWithStringComparator(),
			cols:     treeset.NewWithStringComparator(),
			seen:     make(map[string]bool),
			active:   make(map[string]bool),
		}
		if err := b.equation(name, nil); err != nil {
			return nil, err
		}
		e := b.entry(name)
		ix.entries[name] = e
		tracer().P("eqn", name).Debugf("free %v, loops %v, columns %v", e.FreeDims, e.LoopDims, e.Columns)
	}
	return ix, nil
}

// Entry returns the index entry of an equation.
func (ix *Index) Entry(name string) (*Entry, error) {
	e, ok := ix.entries[name]
	if !ok {
		return nil, mosra.LookupError(name, -1, "equation %s is not indexed", name)
	}
	return e, nil
}

// Names returns the names of all indexed equations, sorted.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.entries))
	for n := range ix.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type builder struct {
	compiler *equation.Compiler
	settings *settings.Settings
	params   *treeset.Set
	vars     *treeset.Set
	dims     *treeset.Set
	eqns     *treeset.Set
	cols     *treeset.Set
	free     []string
	loops    []string
	seen     map[string]bool // free dims already listed
	active   map[string]bool // equations on the current reference path
}

// equation walks an equation with a set of dimensions bound by loops of
// referencing equations.
func (b *builder) equation(name string, bound []string) error {
	if b.active[name] {
		return mosra.ParseError(name, -1, "cyclic reference to equation %s", name)
	}
	eq, err := b.compiler.Equation(name)
	if err != nil {
		return err
	}
	b.active[name] = true
	defer delete(b.active, name)
	return b.walk(eq, eq.Root, bound)
}

func (b *builder) walk(eq *equation.Equation, n *equation.Node, bound []string) error {
	switch n.Kind {
	case equation.ParamNode:
		return b.param(eq, n, bound)
	case equation.EqnRefNode:
		b.eqns.Add(n.Name)
		return b.equation(n.Name, bound)
	case equation.LoopNode:
		b.dims.Add(n.Dim)
		if n.Dim != settings.OptionsDimension {
			if err := b.column(eq.Name, n.Dim); err != nil {
				return err
			}
			b.listLoop(n.Dim)
		}
		inner := append(append([]string(nil), bound...), n.Dim)
		return b.walk(eq, n.Args[0], inner)
	}
	for _, arg := range n.Args {
		if err := b.walk(eq, arg, bound); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) param(eq *equation.Equation, n *equation.Node, bound []string) error {
	if n.Variable {
		b.vars.Add(n.Name)
	} else {
		b.params.Add(n.Name)
		par := b.settings.Parameters[n.Name]
		for _, col := range par.Columns {
			b.cols.Add(col)
		}
	}
	for _, sub := range n.Dims {
		if sub.Literal {
			continue
		}
		b.dims.Add(sub.Name)
		if contains(bound, sub.Name) {
			continue
		}
		if sub.Name == settings.OptionsDimension {
			return mosra.DimensionError(eq.Name, "%s[%s] is not inside a loop over %s",
				n.Name, sub.Name, sub.Name)
		}
		if err := b.column(eq.Name, sub.Name); err != nil {
			return err
		}
		if !b.seen[sub.Name] {
			b.seen[sub.Name] = true
			b.free = append(b.free, sub.Name)
		}
	}
	return nil
}

func (b *builder) column(eqn, dim string) error {
	col, ok := b.settings.Dimensions[dim]
	if !ok {
		return mosra.DimensionError(eqn, "undefined dimension %s", dim)
	}
	b.cols.Add(col)
	return nil
}

func (b *builder) listLoop(dim string) {
	for _, d := range b.loops {
		if d == dim {
			return
		}
	}
	b.loops = append(b.loops, dim)
}

func (b *builder) entry(name string) *Entry {
	e := &Entry{
		Name:       name,
		Params:     sorted(b.params),
		Variables:  sorted(b.vars),
		Dimensions: sorted(b.dims),
		Equations:  sorted(b.eqns),
		Columns:    sorted(b.cols),
		FreeDims:   b.free,
	}
	for _, d := range b.loops {
		if !b.seen[d] { // a free dim is fixed per segment
			e.LoopDims = append(e.LoopDims, d)
		}
	}
	return e
}

func sorted(set *treeset.Set) []string {
	s := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		s = append(s, v.(string))
	}
	return s
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
