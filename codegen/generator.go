package codegen

import (
	"strings"

	"github.com/edwingeng/deque"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/dimension"
	"github.com/npillmayer/mosra/eqindex"
	"github.com/npillmayer/mosra/equation"
	"github.com/npillmayer/mosra/settings"
	"github.com/npillmayer/mosra/table"
)

// SegmentKind tells constraints from objectives.
type SegmentKind int8

// Kinds of segments
const (
	ConstraintSegment SegmentKind = iota
	ObjectiveSegment
)

// Segment describes an output segment: a constraint row or an objective.
//
// If an equation has free dimensions, every group of rows yields a segment
// of its own. Its label is Label with the group values appended, or
// substituted for a "%s" in Label.
type Segment struct {
	Kind   SegmentKind
	Label  string
	Op     mosra.Comparison // constraints
	RHS    float64          // constraints
	Sense  mosra.Sense      // objectives
	Weight float64          // objectives, 0 means 1
	Group  []dimension.Binding
}

func (s Segment) labelFor(values []string) string {
	if len(values) == 0 {
		return s.Label
	}
	v := strings.Join(values, "_")
	if strings.Contains(s.Label, "%s") {
		return strings.Replace(s.Label, "%s", v, 1)
	}
	return s.Label + "_" + v
}

// Sink receives the prefix instructions of segments.
type Sink interface {
	Begin(seg Segment)
	Op(opcode int)
	NAry(opcode, n int)
	Num(v float64)
	Var(offset int)
	End() error
}

// Generator generates segments from equations.
type Generator struct {
	compiler *equation.Compiler
	index    *eqindex.Index
	catalog  *dimension.Catalog
	table    table.Table
	settings *settings.Settings
	offsets  *Offsets
	ctx      *Context
}

// NewGenerator creates a generator. The offset table must have been built.
func NewGenerator(c *equation.Compiler, ix *eqindex.Index, cat *dimension.Catalog,
	t table.Table, s *settings.Settings, offsets *Offsets) *Generator {
	//
	return &Generator{
		compiler: c,
		index:    ix,
		catalog:  cat,
		table:    t,
		settings: s,
		offsets:  offsets,
		ctx:      NewContext(),
	}
}

// Context returns the generation context.
func (g *Generator) Context() *Context {
	return g.ctx
}

// Generate writes the segments of an equation to a sink and returns how
// many segments have been written. seg is the template for every segment.
func (g *Generator) Generate(name string, seg Segment, sink Sink) (int, error) {
	entry, err := g.index.Entry(name)
	if err != nil {
		return 0, err
	}
	p, err := g.compiler.Compile(name)
	if err != nil {
		return 0, err
	}
	if seg.Kind == ObjectiveSegment && len(entry.FreeDims) > 0 {
		return 0, mosra.DimensionError(name, "objective has free dimensions %v", entry.FreeDims)
	}
	rows, err := g.readRows(entry)
	if err != nil {
		return 0, err
	}
	freeCols := make([]int, len(entry.FreeDims))
	for i, d := range entry.FreeDims {
		dim, err := g.catalog.Resolve(d)
		if err != nil {
			return 0, err
		}
		freeCols[i] = g.ctx.colIndex[dim.Column()]
	}
	groups := groupRows(rows, freeCols, len(entry.FreeDims) == 0)
	tracer().P("eqn", name).Debugf("%d rows in %d segments", len(rows), len(groups))
	base := g.ctx.save()
	defer g.ctx.restore(base)
	for _, grp := range groups {
		g.ctx.restore(base)
		g.ctx.eqn = name
		g.ctx.rows = grp
		s := seg
		s.Group = nil
		var values []string
		for i, d := range entry.FreeDims {
			v := grp[0][freeCols[i]]
			g.ctx.Bind(d, v)
			s.Group = append(s.Group, dimension.Binding{Dim: d, Value: v})
			values = append(values, v.String())
		}
		s.Label = seg.labelFor(values)
		sink.Begin(s)
		if err := g.walk(p, sink); err != nil {
			return 0, err // the build is aborted, the segment stays open
		}
		if err := sink.End(); err != nil {
			return 0, err
		}
	}
	return len(groups), nil
}

// readRows bulk-reads the columns an equation needs, ordered by its free
// dimensions, then by its loop dimensions.
func (g *Generator) readRows(entry *eqindex.Entry) ([]table.Row, error) {
	g.ctx.colIndex = make(map[string]int, len(entry.Columns))
	for i, col := range entry.Columns {
		g.ctx.colIndex[col] = i
	}
	if len(entry.Columns) == 0 {
		return nil, nil
	}
	var order []string
	for _, d := range append(append([]string(nil), entry.FreeDims...), entry.LoopDims...) {
		dim, err := g.catalog.Resolve(d)
		if err != nil {
			return nil, err
		}
		order = append(order, dim.Column())
	}
	return table.ReadAll(g.table, entry.Columns, g.catalog.Where(), order)
}

// groupRows splits rows sorted by the free columns into groups of equal
// free column values. Without free columns all rows form a single group,
// even if there are none.
func groupRows(rows []table.Row, cols []int, single bool) [][]table.Row {
	if single {
		return [][]table.Row{rows}
	}
	var groups [][]table.Row
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || !sameValues(rows[start], rows[i], cols) {
			groups = append(groups, rows[start:i])
			start = i
		}
	}
	return groups
}

func sameValues(a, b table.Row, cols []int) bool {
	for _, c := range cols {
		if !mosra.Equal(a[c], b[c]) {
			return false
		}
	}
	return true
}

// --- Walking prefix equations ----------------------------------------------

// pending is an entry of the work list of a walk: either a range of
// prefix tokens still to emit, or an action on the context.
type pending struct {
	prefix *equation.Prefix
	span   equation.Span
	action func()
}

func (g *Generator) walk(p *equation.Prefix, sink Sink) error {
	work := deque.NewDeque()
	work.PushFront(pending{prefix: p, span: p.Span()})
	for !work.Empty() {
		item := work.PopFront().(pending)
		if item.action != nil {
			item.action()
			continue
		}
		if err := g.emit(work, item, sink); err != nil {
			return err
		}
	}
	return nil
}

// emit emits the tokens of a range. Loops and nested equations put their
// parts onto the work list, followed by the rest of the range.
func (g *Generator) emit(work deque.Deque, item pending, sink Sink) error {
	tokens := item.prefix.Tokens
	for pos := item.span.Start; pos <= item.span.End; pos++ {
		tok := tokens[pos]
		switch tok.Kind {
		case equation.NumberToken:
			sink.Num(tok.Value)
		case equation.OperatorToken:
			sink.Op(tok.Opcode)
		case equation.NAryToken:
			sink.NAry(tok.Opcode, tok.Count)
		case equation.ParamToken:
			if err := g.param(tok, sink); err != nil {
				return err
			}
		case equation.EquationToken:
			g.pushRest(work, item, pos+1)
			return g.nested(work, tok.Name)
		case equation.LoopToken:
			g.pushRest(work, item, tok.Loop.Body.End+1)
			return g.loop(work, item.prefix, tok, sink)
		}
	}
	return nil
}

func (g *Generator) pushRest(work deque.Deque, item pending, from int) {
	if from <= item.span.End {
		work.PushFront(pending{prefix: item.prefix, span: equation.Span{Start: from, End: item.span.End}})
	}
}

// nested walks a referenced equation within the current context.
func (g *Generator) nested(work deque.Deque, name string) error {
	p, err := g.compiler.Compile(name)
	if err != nil {
		return err
	}
	saved := g.ctx.save()
	work.PushFront(pending{action: func() { g.ctx.restore(saved) }})
	work.PushFront(pending{prefix: p, span: p.Span()})
	work.PushFront(pending{action: func() { g.ctx.eqn = name }})
	return nil
}

type iteration struct {
	value mosra.Value
	rows  []table.Row
}

// loop expands a loop: it emits the loop header and puts one copy of the
// loop body per iteration onto the work list.
func (g *Generator) loop(work deque.Deque, p *equation.Prefix, tok equation.Token, sink Sink) error {
	hdr := tok.Loop
	eqn, dim := g.ctx.eqn, hdr.Dim
	iters, err := g.iterations(eqn, dim)
	if err != nil {
		return err
	}
	n := len(iters)
	if n == 0 {
		if hdr.Keyword.BinaryOpcode < 0 {
			return mosra.DimensionError(eqn, "%s{%s} has no values to iterate", hdr.Keyword.Name, dim)
		}
		sink.Num(0)
		return nil
	}
	switch h := hdr.Keyword.Header(n); {
	case h.Omit:
	case h.NAry:
		sink.NAry(h.Opcode, h.Count)
	default:
		sink.Op(h.Opcode)
	}
	// The counter of the loop selects the iteration. A loop nested in a
	// loop over the same dimension hands the counter back when done.
	saved := g.ctx.save()
	outer, reentered := g.ctx.Counter(eqn, dim)
	work.PushFront(pending{action: func() {
		if reentered {
			g.ctx.setCounter(eqn, dim, outer)
		} else {
			g.ctx.Drop(eqn, dim)
		}
		g.ctx.restore(saved)
	}})
	for i := n - 1; i >= 0; i-- {
		first := i == 0
		work.PushFront(pending{prefix: p, span: hdr.Body})
		work.PushFront(pending{action: func() {
			k := 1
			if first {
				g.ctx.Enter(eqn, dim)
			} else {
				k = g.ctx.Advance(eqn, dim)
			}
			it := iters[k-1]
			g.ctx.restore(saved)
			g.ctx.rows = it.rows
			g.ctx.Bind(dim, it.value)
		}})
	}
	return nil
}

// iterations lists the values of a loop. OPTIONS iterates over all
// options, table dimensions over the distinct values of the rows in scope.
// The number of values found has to match the length the dimension catalog
// reports for the current bindings.
func (g *Generator) iterations(eqn, dim string) ([]iteration, error) {
	d, err := g.catalog.Resolve(dim)
	if err != nil {
		return nil, err
	}
	if d.IsOptions {
		iters := make([]iteration, len(g.catalog.Options()))
		for i := range iters {
			iters[i] = iteration{value: mosra.Int(i), rows: g.ctx.rows}
		}
		return iters, nil
	}
	col, ok := g.ctx.column(d.Column())
	if !ok {
		return nil, mosra.DimensionError(eqn, "column %s of dimension %s has not been read", d.Column(), dim)
	}
	var iters []iteration
	seen := make(map[string]int)
	for _, row := range g.ctx.rows {
		k := mosra.Key(row[col])
		i, ok := seen[k]
		if !ok {
			i = len(iters)
			seen[k] = i
			iters = append(iters, iteration{value: row[col]})
		}
		iters[i].rows = append(iters[i].rows, row)
	}
	n, err := g.catalog.ConditionalLength(dim, g.ctx.Bindings())
	if err != nil {
		return nil, err
	}
	if n != len(iters) {
		return nil, mosra.DimensionError(eqn, "loop over %s: length is %d, but %d values found",
			dim, n, len(iters))
	}
	return iters, nil
}

// --- Parameters and variables ----------------------------------------------

func (g *Generator) param(tok equation.Token, sink Sink) error {
	eqn := g.ctx.eqn
	if tok.Variable {
		tuple := make([]mosra.Value, len(tok.Dims))
		for i, sub := range tok.Dims {
			v, err := g.subscript(eqn, tok.Name, sub)
			if err != nil {
				return err
			}
			tuple[i] = v
		}
		off, err := g.offsets.Offset(tok.Name, tuple)
		if err != nil {
			return err
		}
		sink.Var(off)
		return nil
	}
	par, ok := g.settings.Parameters[tok.Name]
	if !ok {
		return mosra.LookupError(eqn, -1, "unknown parameter %s", tok.Name)
	}
	scale := par.Scale
	if scale == 0 {
		scale = 1
	}
	if par.HasLiteral {
		sink.Num(par.Literal * scale)
		return nil
	}
	col := par.Columns[0]
	option := -1
	for _, sub := range tok.Dims {
		v, err := g.subscript(eqn, tok.Name, sub)
		if err != nil {
			return err
		}
		if sub.Literal || sub.Name == dimension.Options {
			n, _ := mosra.AsInt(v)
			option = int(n)
		}
	}
	if len(par.Columns) > 1 || len(par.Contains) > 0 {
		if option < 0 {
			v, ok := g.ctx.Binding(dimension.Options)
			if !ok {
				return mosra.DimensionError(eqn, "parameter %s needs an option", tok.Name)
			}
			n, _ := mosra.AsInt(v)
			option = int(n)
		}
		if option >= len(par.Columns) {
			return mosra.LookupError(eqn, -1, "parameter %s has no column for option %d", tok.Name, option)
		}
		col = par.Columns[option]
	}
	if len(g.ctx.rows) == 0 {
		return mosra.LookupError(eqn, -1, "no row to read parameter %s from", tok.Name)
	}
	ci, ok := g.ctx.column(col)
	if !ok {
		return mosra.LookupError(eqn, -1, "column %s of parameter %s has not been read", col, tok.Name)
	}
	if len(par.Contains) > 0 {
		if option >= len(par.Contains) {
			return mosra.LookupError(eqn, -1, "indicator %s has no value for option %d", tok.Name, option)
		}
		v := g.ctx.rows[0][ci]
		if v != nil && strings.Contains(v.String(), par.Contains[option]) {
			sink.Num(scale)
		} else {
			sink.Num(0)
		}
		return nil
	}
	f, err := mosra.AsFloat(g.ctx.rows[0][ci])
	if err != nil {
		return mosra.LookupError(eqn, -1, "parameter %s: %v", tok.Name, err)
	}
	sink.Num(f * scale)
	return nil
}

// subscript returns the value of a dimension subscript: a literal index or
// the value bound to the dimension.
func (g *Generator) subscript(eqn, name string, sub equation.Subscript) (mosra.Value, error) {
	if sub.Literal {
		return mosra.Int(sub.Index), nil
	}
	v, ok := g.ctx.Binding(sub.Name)
	if !ok {
		return nil, mosra.DimensionError(eqn, "%s[%s]: dimension %s is not bound", name, sub.Name, sub.Name)
	}
	return v, nil
}
