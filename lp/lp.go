/*
Package lp holds linear programs in sparse matrix form.

A Matrix has named columns (decision variables) and named rows
(constraints), each row holding the non-zero coefficients of the columns it
refers to. Problems are handed to a simplex solver as a Matrix or written
in the text format of lp_solve.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package lp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/tracing"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// tracer traces with key 'mosra.lp'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.lp")
}

// ColumnKind is the domain of a column.
type ColumnKind int8

// Column kinds
const (
	Real ColumnKind = iota
	Int
	Binary
)

// RowOp is the relation of a row to its right hand side, coded as in
// lp_solve.
type RowOp int8

// Row relations
const (
	LE RowOp = 1
	GE RowOp = 2
	EQ RowOp = 3
)

func (op RowOp) String() string {
	switch op {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	}
	return "?"
}

// OpFor maps a comparison to a row relation.
func OpFor(c mosra.Comparison) (RowOp, error) {
	switch c {
	case mosra.LessEqual:
		return LE, nil
	case mosra.GreaterEqual:
		return GE, nil
	case mosra.Equals:
		return EQ, nil
	}
	return 0, mosra.DimensionError("", "comparison %q cannot be a row relation", c.String())
}

// Column is a decision variable.
type Column struct {
	Name  string
	Kind  ColumnKind
	Lower float64
	Upper float64
}

// Row is a constraint. Coeffs maps column indices to non-zero coefficients.
type Row struct {
	Name   string
	Coeffs map[int]float64
	Op     RowOp
	RHS    float64
}

// Matrix is a linear program.
type Matrix struct {
	columns   []Column
	colIndex  map[string]int
	rows      []Row
	objective map[int]float64
	sense     mosra.Sense
}

// NewMatrix creates an empty linear program.
func NewMatrix() *Matrix {
	return &Matrix{
		colIndex:  make(map[string]int),
		objective: make(map[int]float64),
	}
}

// AddColumn appends a column. Columns are bounded by [0, +inf), binary
// columns by [0, 1].
func (m *Matrix) AddColumn(name string, kind ColumnKind) (int, error) {
	if _, ok := m.colIndex[name]; ok {
		return -1, mosra.LookupError("", -1, "duplicate column %s", name)
	}
	col := Column{Name: name, Kind: kind, Upper: math.Inf(1)}
	if kind == Binary {
		col.Upper = 1
	}
	m.columns = append(m.columns, col)
	m.colIndex[name] = len(m.columns) - 1
	return len(m.columns) - 1, nil
}

// SetBounds sets the bounds of a column.
func (m *Matrix) SetBounds(col int, lower, upper float64) {
	m.columns[col].Lower = lower
	m.columns[col].Upper = upper
}

// Column returns the index of a column by name.
func (m *Matrix) Column(name string) (int, bool) {
	i, ok := m.colIndex[name]
	return i, ok
}

// Columns returns all columns.
func (m *Matrix) Columns() []Column {
	return m.columns
}

// NumColumns returns the number of columns.
func (m *Matrix) NumColumns() int {
	return len(m.columns)
}

// AddRow appends a row and returns its index. Zero coefficients are dropped.
func (m *Matrix) AddRow(name string, coeffs map[int]float64, op RowOp, rhs float64) (int, error) {
	r := Row{Name: name, Coeffs: make(map[int]float64, len(coeffs)), Op: op, RHS: rhs}
	for col, c := range coeffs {
		if col < 0 || col >= len(m.columns) {
			return -1, mosra.LookupError("", -1, "row %s refers to unknown column %d", name, col)
		}
		if c != 0 {
			r.Coeffs[col] = c
		}
	}
	m.rows = append(m.rows, r)
	tracer().Debugf("row %s: %d non-zeros %s %g", name, len(r.Coeffs), op, rhs)
	return len(m.rows) - 1, nil
}

// Rows returns all rows.
func (m *Matrix) Rows() []Row {
	return m.rows
}

// NonZeros returns the number of non-zero coefficients of a row.
func (m *Matrix) NonZeros(row int) int {
	return len(m.rows[row].Coeffs)
}

// SetObjective replaces the objective function.
func (m *Matrix) SetObjective(coeffs map[int]float64, sense mosra.Sense) {
	m.objective = make(map[int]float64, len(coeffs))
	for col, c := range coeffs {
		if c != 0 {
			m.objective[col] = c
		}
	}
	m.sense = sense
}

// AddObjective adds coefficients to the objective function.
func (m *Matrix) AddObjective(coeffs map[int]float64) {
	for col, c := range coeffs {
		m.objective[col] += c
		if m.objective[col] == 0 {
			delete(m.objective, col)
		}
	}
}

// SetSense sets the direction of optimization.
func (m *Matrix) SetSense(sense mosra.Sense) {
	m.sense = sense
}

// Objective returns the objective coefficients and direction.
func (m *Matrix) Objective() (map[int]float64, mosra.Sense) {
	return m.objective, m.sense
}

func (m *Matrix) dense(coeffs map[int]float64) []float64 {
	v := make([]float64, len(m.columns))
	for col, c := range coeffs {
		v[col] = c
	}
	return v
}

// Activity returns the value of the left hand side of a row for a
// solution vector x.
func (m *Matrix) Activity(row int, x []float64) float64 {
	return floats.Dot(m.dense(m.rows[row].Coeffs), x)
}

// ObjectiveValue returns the value of the objective function for x.
func (m *Matrix) ObjectiveValue(x []float64) float64 {
	return floats.Dot(m.dense(m.objective), x)
}

// Feasible checks a solution vector against bounds and rows, with
// tolerance tol.
func (m *Matrix) Feasible(x []float64, tol float64) bool {
	if len(x) != len(m.columns) {
		return false
	}
	for i, col := range m.columns {
		if x[i] < col.Lower-tol || x[i] > col.Upper+tol {
			return false
		}
		if col.Kind != Real && math.Abs(x[i]-math.Round(x[i])) > tol {
			return false
		}
	}
	for i, r := range m.rows {
		a := m.Activity(i, x)
		switch r.Op {
		case LE:
			if a > r.RHS+tol {
				return false
			}
		case GE:
			if a < r.RHS-tol {
				return false
			}
		case EQ:
			if math.Abs(a-r.RHS) > tol {
				return false
			}
		}
	}
	return true
}

// --- lp_solve format -------------------------------------------------------

// WriteLP writes the linear program in lp_solve's LP format.
func (m *Matrix) WriteLP(w io.Writer) error {
	out := bufio.NewWriter(w)
	sense := "min"
	if m.sense == mosra.Maximize {
		sense = "max"
	}
	fmt.Fprintf(out, "/* Objective function */\n%s: %s;\n", sense, m.terms(m.objective))
	if len(m.rows) > 0 {
		fmt.Fprintf(out, "\n/* Constraints */\n")
	}
	for _, r := range m.rows {
		lhs := m.terms(r.Coeffs)
		if lhs == "" {
			lhs = "0"
		}
		fmt.Fprintf(out, "%s: %s %s %s;\n", lpName(r.Name), lhs, r.Op, number(r.RHS))
	}
	var ints, bins []string
	bounds := false
	for _, col := range m.columns {
		name := lpName(col.Name)
		switch col.Kind {
		case Int:
			ints = append(ints, name)
		case Binary:
			bins = append(bins, name)
			continue
		}
		if col.Lower == 0 && math.IsInf(col.Upper, 1) {
			continue
		}
		if !bounds {
			fmt.Fprintf(out, "\n")
			bounds = true
		}
		lower := "-1e30"
		if !math.IsInf(col.Lower, -1) {
			lower = number(col.Lower)
		}
		if math.IsInf(col.Upper, 1) {
			fmt.Fprintf(out, "%s >= %s;\n", name, lower)
		} else {
			fmt.Fprintf(out, "%s <= %s <= %s;\n", lower, name, number(col.Upper))
		}
	}
	if len(ints) > 0 {
		fmt.Fprintf(out, "\nint %s;\n", strings.Join(ints, ","))
	}
	if len(bins) > 0 {
		fmt.Fprintf(out, "\nbin %s;\n", strings.Join(bins, ","))
	}
	if err := out.Flush(); err != nil {
		return mosra.IOError(err, "cannot write LP")
	}
	return nil
}

func (m *Matrix) terms(coeffs map[int]float64) string {
	cols := make([]int, 0, len(coeffs))
	for col := range coeffs {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteByte(' ')
		}
		c := coeffs[col]
		if c >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(number(c))
		b.WriteByte(' ')
		b.WriteString(lpName(m.columns[col].Name))
	}
	return b.String()
}

func number(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// lpName replaces characters lp_solve does not accept in names.
func lpName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}
