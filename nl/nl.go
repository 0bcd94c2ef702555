/*
Package nl writes problems in AMPL's text .nl format.

An .nl file consists of a header followed by segments. Expression trees of
constraints and objectives are written in prefix notation, one token per
line:

    o<opcode>      operation
    n<value>       numeric constant
    v<offset>      decision variable

N-ary operations (sum, min, max) are followed by their operand count.

Segments are produced while equations are generated, in an order which is
not the order of the file. Every segment kind is streamed to a temporary
file of its own; Finish concatenates them behind the header.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package nl

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/edwingeng/deque"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/tracing"
	"github.com/shopspring/decimal"
)

// tracer traces with key 'mosra.nl'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.nl")
}

// Segment kinds, in the order they appear in an .nl file.
const (
	SegC = "C" // constraint bodies
	SegO = "O" // objective bodies
	SegX = "x" // initial guess
	SegR = "r" // constraint ranges
	SegB = "b" // variable bounds
	SegK = "k" // cumulative Jacobian column counts
	SegJ = "J" // Jacobian sparsity
	SegG = "G" // gradient sparsity
)

var segmentOrder = []string{SegC, SegO, SegX, SegR, SegB, SegK, SegJ, SegG}

// Stats are the counts of the .nl header.
type Stats struct {
	Variables   int
	Constraints int
	Objectives  int
	Equalities  int
	Discrete    int // integer and binary variables, ordered last
	JacobianNZ  int
	GradientNZ  int
}

// Writer streams the segments of an .nl problem to temporary files.
type Writer struct {
	dir     string
	prefix  string
	files   map[string]*os.File
	outs    map[string]*bufio.Writer
	expr    *bufio.Writer // segment of the current expression
	stats   Stats
	jacobi  map[int]int // variable offset → Jacobian entries
	initial map[int]float64
	bounds  int
	err     error
}

// NewWriter creates a writer with temporary files <prefix>.<seg>.tmp in
// dir. Temporaries left over by earlier runs are removed first.
func NewWriter(dir, prefix string) (*Writer, error) {
	stale, _ := filepath.Glob(filepath.Join(dir, prefix+".*.tmp"))
	for _, f := range stale {
		tracer().Debugf("removing stale segment file %s", f)
		if err := os.Remove(f); err != nil {
			return nil, mosra.IOError(err, "cannot remove stale segment file %s", f)
		}
	}
	w := &Writer{
		dir:     dir,
		prefix:  prefix,
		files:   make(map[string]*os.File),
		outs:    make(map[string]*bufio.Writer),
		jacobi:  make(map[int]int),
		initial: make(map[int]float64),
	}
	for _, seg := range segmentOrder {
		f, err := os.Create(w.tempName(seg))
		if err != nil {
			w.Abort()
			return nil, mosra.IOError(err, "cannot create segment file for %s", seg)
		}
		w.files[seg] = f
		w.outs[seg] = bufio.NewWriter(f)
	}
	return w, nil
}

func (w *Writer) tempName(seg string) string {
	return filepath.Join(w.dir, w.prefix+"."+seg+".tmp")
}

func (w *Writer) printf(seg string, format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.outs[seg], format, args...); err != nil {
		w.err = mosra.IOError(err, "cannot write segment %s", seg)
	}
}

// Stats returns the counts collected so far.
func (w *Writer) Stats() Stats {
	return w.stats
}

// Constraint starts the body of constraint k.
func (w *Writer) Constraint(k int) {
	w.printf(SegC, "C%d\n", k)
	w.expr = w.outs[SegC]
	w.stats.Constraints++
}

// Objective starts the body of objective k.
func (w *Writer) Objective(k int, sense mosra.Sense) {
	s := 0
	if sense == mosra.Maximize {
		s = 1
	}
	w.printf(SegO, "O%d %d\n", k, s)
	w.expr = w.outs[SegO]
	w.stats.Objectives++
}

func (w *Writer) exprf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	if w.expr == nil {
		w.err = mosra.IOError(nil, "expression outside of a constraint or objective")
		return
	}
	if _, err := fmt.Fprintf(w.expr, format, args...); err != nil {
		w.err = mosra.IOError(err, "cannot write expression")
	}
}

// Op writes an operation of fixed arity.
func (w *Writer) Op(opcode int) {
	w.exprf("o%d\n", opcode)
}

// NAry writes an n-ary operation and its operand count.
func (w *Writer) NAry(opcode, n int) {
	w.exprf("o%d\n%d\n", opcode, n)
}

// Num writes a numeric constant.
func (w *Writer) Num(v float64) {
	w.exprf("n%s\n", Number(v))
}

// Var writes a reference to a decision variable.
func (w *Writer) Var(offset int) {
	w.exprf("v%d\n", offset)
}

// Jacobian writes the sparsity pattern of constraint k: the variables it
// refers to. Linear coefficients are 0, as the bodies carry the whole
// expression.
func (w *Writer) Jacobian(k int, offsets []int) {
	offsets = sortedCopy(offsets)
	w.printf(SegJ, "J%d %d\n", k, len(offsets))
	for _, v := range offsets {
		w.printf(SegJ, "%d 0\n", v)
		w.jacobi[v]++
	}
	w.stats.JacobianNZ += len(offsets)
}

// Gradient writes the sparsity pattern of objective k.
func (w *Writer) Gradient(k int, offsets []int) {
	offsets = sortedCopy(offsets)
	w.printf(SegG, "G%d %d\n", k, len(offsets))
	for _, v := range offsets {
		w.printf(SegG, "%d 0\n", v)
	}
	w.stats.GradientNZ += len(offsets)
}

// Range writes the relation of the next constraint to its right hand side.
func (w *Writer) Range(op mosra.Comparison, rhs float64) {
	switch code := op.NLCode(); code {
	case 3:
		w.printf(SegR, "3\n")
	default:
		w.printf(SegR, "%d %s\n", code, Number(rhs))
		if code == 4 {
			w.stats.Equalities++
		}
	}
}

// Bounds writes the bounds of the next variable. Variables have to be
// bounded in offset order.
func (w *Writer) Bounds(lower, upper float64) {
	switch lo, up := !math.IsInf(lower, -1), !math.IsInf(upper, 1); {
	case lo && up && lower == upper:
		w.printf(SegB, "4 %s\n", Number(lower))
	case lo && up:
		w.printf(SegB, "0 %s %s\n", Number(lower), Number(upper))
	case up:
		w.printf(SegB, "1 %s\n", Number(upper))
	case lo:
		w.printf(SegB, "2 %s\n", Number(lower))
	default:
		w.printf(SegB, "3\n")
	}
	w.bounds++
	w.stats.Variables = w.bounds
}

// Discrete declares the number of integer or binary variables. They must
// have the highest offsets.
func (w *Writer) Discrete(n int) {
	w.stats.Discrete = n
}

// Initial sets the initial guess of a variable.
func (w *Writer) Initial(offset int, v float64) {
	w.initial[offset] = v
}

// Header writes the text header of an .nl file.
func Header(out io.Writer, s Stats) error {
	_, err := fmt.Fprintf(out, `g3 1 1 0	# problem mosra
 %d %d %d 0 %d 0	# vars, constraints, objectives, ranges, eqns, lcons
 %d %d	# nonlinear constraints, objectives
 0 0	# network constraints: nonlinear, linear
 %d %d %d	# nonlinear vars in constraints, objectives, both
 0 0 0 1	# linear network variables; functions; arith, flags
 0 0 %d 0 0	# discrete variables: binary, integer, nonlinear (b,c,o)
 %d %d	# nonzeros in Jacobian, gradients
 0 0	# max name lengths: constraints, variables
 0 0 0 0 0	# common exprs: b,c,o,c1,o1
`, s.Variables, s.Constraints, s.Objectives, s.Equalities,
		s.Constraints, s.Objectives,
		s.Variables, s.Variables, s.Variables,
		s.Discrete,
		s.JacobianNZ, s.GradientNZ)
	if err != nil {
		return mosra.IOError(err, "cannot write header")
	}
	return nil
}

// Finish writes the header and all segments to out, in .nl order, and
// removes the temporary files.
func (w *Writer) Finish(out io.Writer) (Stats, error) {
	defer w.Abort()
	w.finishSegments()
	if w.err != nil {
		return w.stats, w.err
	}
	if err := Header(out, w.stats); err != nil {
		return w.stats, err
	}
	queue := deque.NewDeque()
	for _, seg := range segmentOrder {
		queue.PushBack(seg)
	}
	for !queue.Empty() {
		seg := queue.PopFront().(string)
		if err := w.outs[seg].Flush(); err != nil {
			return w.stats, mosra.IOError(err, "cannot flush segment %s", seg)
		}
		f := w.files[seg]
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return w.stats, mosra.IOError(err, "cannot rewind segment %s", seg)
		}
		if _, err := io.Copy(out, f); err != nil {
			return w.stats, mosra.IOError(err, "cannot copy segment %s", seg)
		}
	}
	tracer().Infof("wrote .nl problem: %d variables, %d constraints, %d objectives",
		w.stats.Variables, w.stats.Constraints, w.stats.Objectives)
	return w.stats, nil
}

// finishSegments writes the segments which are only known in total:
// x, k, and the headings of r and b.
func (w *Writer) finishSegments() {
	if w.err != nil {
		return
	}
	w.prepend(SegR, "r\n", w.stats.Constraints > 0)
	w.prepend(SegB, "b\n", w.stats.Variables > 0)
	if len(w.initial) > 0 {
		w.printf(SegX, "x%d\n", len(w.initial))
		offsets := make([]int, 0, len(w.initial))
		for v := range w.initial {
			offsets = append(offsets, v)
		}
		sort.Ints(offsets)
		for _, v := range offsets {
			w.printf(SegX, "%d %s\n", v, Number(w.initial[v]))
		}
	}
	if w.stats.Constraints > 0 && w.stats.Variables > 1 {
		w.printf(SegK, "k%d\n", w.stats.Variables-1)
		sum := 0
		for v := 0; v < w.stats.Variables-1; v++ {
			sum += w.jacobi[v]
			w.printf(SegK, "%d\n", sum)
		}
	}
}

// prepend puts a heading in front of a segment already written. Segments
// without content lose their body as well.
func (w *Writer) prepend(seg, heading string, keep bool) {
	if err := w.outs[seg].Flush(); err != nil {
		w.err = mosra.IOError(err, "cannot flush segment %s", seg)
		return
	}
	f := w.files[seg]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		w.err = mosra.IOError(err, "cannot rewind segment %s", seg)
		return
	}
	body, err := io.ReadAll(f)
	if err != nil {
		w.err = mosra.IOError(err, "cannot read segment %s", seg)
		return
	}
	if err = f.Truncate(0); err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		w.err = mosra.IOError(err, "cannot rewrite segment %s", seg)
		return
	}
	w.outs[seg].Reset(f)
	if keep {
		w.printf(seg, "%s", heading)
		w.printf(seg, "%s", body)
	}
}

// Abort closes and removes all temporary files.
func (w *Writer) Abort() {
	for seg, f := range w.files {
		f.Close()
		os.Remove(f.Name())
		delete(w.files, seg)
	}
}

// Number formats a number as short as possible without losing precision.
func Number(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprintf("%g", v)
	}
	return decimal.NewFromFloat(v).String()
}

func sortedCopy(offsets []int) []int {
	s := append([]int(nil), offsets...)
	sort.Ints(s)
	return s
}
