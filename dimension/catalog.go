/*
Package dimension resolves dimensions of the modelling language.

A dimension is a named iteration axis. Ordinary dimensions are backed by a
table column and iterate over the distinct values of that column among the
selected spatial units. The fixed dimension OPTIONS iterates over the
land-use options.

Loops nested inside other loops over table dimensions ("high-dimensional"
loops) have conditional lengths: the number of distinct values of the inner
dimension depends on the values the outer dimensions are bound to. The
Catalog determines them with one GROUP BY query per nesting level and caches
the count of every tuple.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dimension

import (
	"fmt"
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/table"
	"github.com/npillmayer/schuko/tracing"
	"github.com/segmentio/fasthash/fnv1a"
)

// tracer traces with key 'mosra.dimension'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.dimension")
}

// Options is the name of the fixed dimension iterating over land-use options.
const Options = "OPTIONS"

// HoleColumn flags rows representing holes of polygons. Holes never
// take part in a problem. Configuration key problem.holefield overrides it.
const HoleColumn = "nm_hole"

func holeColumn() string {
	if h := mosra.Config().String("problem.holefield"); h != "" {
		return h
	}
	return HoleColumn
}

// Selection returns the row selection of a problem over table t: holes
// are excluded if t has a hole column, and filter (may be empty) is
// applied on top.
func Selection(t table.Table, filter string) string {
	var conds []string
	if hole := holeColumn(); t.ColumnExists(hole) >= 0 {
		conds = append(conds, table.Quote(hole)+" = 0")
	}
	if filter = strings.TrimSpace(filter); filter != "" {
		conds = append(conds, "("+filter+")")
	}
	return strings.Join(conds, " AND ")
}

// Dimension is a resolved dimension.
type Dimension struct {
	Name      string
	Columns   []string // empty for OPTIONS
	IsOptions bool
}

// Column returns the backing column of a table dimension.
func (d Dimension) Column() string {
	if len(d.Columns) == 0 {
		return ""
	}
	return d.Columns[0]
}

// Binding binds a dimension to a value.
type Binding struct {
	Dim   string
	Value mosra.Value
}

func (b Binding) String() string {
	return fmt.Sprintf("%s=%v", b.Dim, b.Value)
}

// Catalog resolves dimensions and their iteration lengths. It is built once
// per problem and holds the results of all length queries.
type Catalog struct {
	table   table.Table
	dims    map[string]Dimension
	options []string
	where   string
	lengths map[string]int
	values  map[string][]mosra.Value
	levels  map[string]bool             // loaded conditional levels
	counts  map[uint64][]conditionalLen // conditional lengths by tuple hash
}

type conditionalLen struct {
	key string
	n   int
}

// NewCatalog creates a catalog for dimensions (name → column) over a
// table. where selects the rows taking part in the problem and may be empty.
func NewCatalog(t table.Table, dims map[string]string, options []string, where string) (*Catalog, error) {
	c := &Catalog{
		table:   t,
		dims:    make(map[string]Dimension, len(dims)+1),
		options: options,
		where:   where,
		lengths: make(map[string]int),
		values:  make(map[string][]mosra.Value),
		levels:  make(map[string]bool),
		counts:  make(map[uint64][]conditionalLen),
	}
	c.dims[Options] = Dimension{Name: Options, IsOptions: true}
	for name, col := range dims {
		if name == Options {
			return nil, mosra.DimensionError("", "dimension %s is predefined", Options)
		}
		if t.ColumnExists(col) < 0 {
			return nil, mosra.DimensionError("", "dimension %s: table %s has no column %s",
				name, t.Name(), col)
		}
		c.dims[name] = Dimension{Name: name, Columns: []string{col}}
	}
	tracer().Debugf("dimension catalog with %d dimensions", len(c.dims))
	return c, nil
}

// Where returns the row selection of the catalog.
func (c *Catalog) Where() string {
	return c.where
}

// Options returns the land-use options.
func (c *Catalog) Options() []string {
	return c.options
}

// Resolve returns a dimension by name.
func (c *Catalog) Resolve(name string) (Dimension, error) {
	d, ok := c.dims[name]
	if !ok {
		return Dimension{}, mosra.DimensionError("", "undefined dimension %s", name)
	}
	return d, nil
}

// Length returns the number of distinct values of a dimension among the
// selected rows.
func (c *Catalog) Length(name string) (int, error) {
	d, err := c.Resolve(name)
	if err != nil {
		return 0, err
	}
	if d.IsOptions {
		return len(c.options), nil
	}
	if n, ok := c.lengths[name]; ok {
		return n, nil
	}
	q := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s%s;", table.Quote(d.Column()),
		table.Quote(c.table.Name()), c.whereClause())
	rows, err := c.table.TableDataFetch(q)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, mosra.DimensionError("", "cannot determine length of dimension %s", name)
	}
	n, err := mosra.AsInt(rows[0][0])
	if err != nil {
		return 0, mosra.DimensionError("", "length of dimension %s: %v", name, err)
	}
	c.lengths[name] = int(n)
	tracer().Debugf("length of %s is %d", name, n)
	return int(n), nil
}

// Values returns the distinct values of a dimension in ascending order.
// For OPTIONS these are the option indices 0…n-1.
func (c *Catalog) Values(name string) ([]mosra.Value, error) {
	d, err := c.Resolve(name)
	if err != nil {
		return nil, err
	}
	if d.IsOptions {
		vals := make([]mosra.Value, len(c.options))
		for i := range c.options {
			vals[i] = mosra.Int(i)
		}
		return vals, nil
	}
	if vals, ok := c.values[name]; ok {
		return vals, nil
	}
	col := table.Quote(d.Column())
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s%s ORDER BY %s;", col, table.Quote(c.table.Name()),
		c.whereClause(), col)
	rows, err := c.table.TableDataFetch(q)
	if err != nil {
		return nil, err
	}
	vals := make([]mosra.Value, len(rows))
	for i, row := range rows {
		vals[i] = row[0]
	}
	c.values[name] = vals
	return vals, nil
}

// ConditionalLength returns the number of distinct values of dimension dim
// among the selected rows whose outer dimensions are bound to the given
// values. Bindings of OPTIONS do not restrict rows and are skipped.
// A tuple not present in the table has length 0, a dimension bound by
// an outer loop has length 1.
func (c *Catalog) ConditionalLength(dim string, outer []Binding) (int, error) {
	d, err := c.Resolve(dim)
	if err != nil {
		return 0, err
	}
	if d.IsOptions {
		return len(c.options), nil
	}
	var bound []Binding
	for _, b := range outer {
		od, err := c.Resolve(b.Dim)
		if err != nil {
			return 0, err
		}
		if b.Dim == dim {
			return 1, nil // already bound by an outer loop
		}
		if !od.IsOptions {
			bound = append(bound, b)
		}
	}
	if len(bound) == 0 {
		return c.Length(dim)
	}
	// cascade over nesting levels: level k groups by the k outermost dims
	for k := 1; k <= len(bound); k++ {
		if err := c.loadLevel(d, bound[:k]); err != nil {
			return 0, err
		}
		key := tupleKey(dim, bound[:k])
		n, ok := c.lookup(key)
		if !ok || n == 0 {
			tracer().Debugf("no rows for %s | %v", dim, bound[:k])
			return 0, nil
		}
		if k == len(bound) {
			return n, nil
		}
	}
	return 0, nil // not reached
}

// loadLevel runs the GROUP BY query for a dimension conditional on the
// dimensions of bound, unless it has been run before.
func (c *Catalog) loadLevel(d Dimension, bound []Binding) error {
	sig := d.Name
	cols := make([]string, len(bound))
	for i, b := range bound {
		sig += "|" + b.Dim
		cols[i] = c.dims[b.Dim].Column()
	}
	if c.levels[sig] {
		return nil
	}
	grp := table.QuoteAll(cols)
	q := fmt.Sprintf("SELECT %s, COUNT(DISTINCT %s) FROM %s%s GROUP BY %s;", grp,
		table.Quote(d.Column()), table.Quote(c.table.Name()), c.whereClause(), grp)
	rows, err := c.table.TableDataFetch(q)
	if err != nil {
		return err
	}
	tuple := make([]Binding, len(bound))
	for _, row := range rows {
		if len(row) != len(bound)+1 {
			return mosra.DimensionError("", "unexpected result for %s", q)
		}
		for i, b := range bound {
			tuple[i] = Binding{Dim: b.Dim, Value: row[i]}
		}
		n, err := mosra.AsInt(row[len(bound)])
		if err != nil {
			return mosra.DimensionError("", "conditional length of %s: %v", d.Name, err)
		}
		key := tupleKey(d.Name, tuple)
		h := fnv1a.HashString64(key)
		c.counts[h] = append(c.counts[h], conditionalLen{key: key, n: int(n)})
	}
	c.levels[sig] = true
	tracer().Debugf("loaded %d tuples for %s", len(rows), sig)
	return nil
}

func (c *Catalog) lookup(key string) (int, bool) {
	for _, e := range c.counts[fnv1a.HashString64(key)] {
		if e.key == key {
			return e.n, true
		}
	}
	return 0, false
}

func tupleKey(dim string, bound []Binding) string {
	var b strings.Builder
	b.WriteString(dim)
	for _, bd := range bound {
		b.WriteByte(0)
		b.WriteString(bd.Dim)
		b.WriteByte('=')
		b.WriteString(mosra.Key(bd.Value))
	}
	return b.String()
}

func (c *Catalog) whereClause() string {
	if c.where == "" {
		return ""
	}
	return " WHERE " + c.where
}
