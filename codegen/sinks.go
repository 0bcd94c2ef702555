package codegen

import (
	"sort"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/lang"
	"github.com/npillmayer/mosra/lp"
	"github.com/npillmayer/mosra/nl"
)

// SegmentInfo summarizes a segment written to a sink.
type SegmentInfo struct {
	Kind    SegmentKind
	Label   string
	Index   int   // C<Index> or O<Index>, row index for LP sinks
	Offsets []int // distinct variables referenced, ascending
}

// --- NL sink ----------------------------------------------------------------

// NLSink writes segments as expression bodies of an .nl file.
type NLSink struct {
	w        *nl.Writer
	cons     int
	objs     int
	seg      Segment
	seen     map[int]bool
	Segments []SegmentInfo
}

// NewNLSink creates a sink writing to w.
func NewNLSink(w *nl.Writer) *NLSink {
	return &NLSink{w: w}
}

// Begin starts a C or O segment. Objectives with a weight are wrapped
// into a product.
func (s *NLSink) Begin(seg Segment) {
	s.seg = seg
	s.seen = make(map[int]bool)
	if seg.Kind == ConstraintSegment {
		s.w.Constraint(s.cons)
		return
	}
	s.w.Objective(s.objs, seg.Sense)
	if seg.Weight != 0 && seg.Weight != 1 {
		s.w.Op(lang.OpMult)
		s.w.Num(seg.Weight)
	}
}

// Op is part of the Sink interface.
func (s *NLSink) Op(opcode int) { s.w.Op(opcode) }

// NAry is part of the Sink interface.
func (s *NLSink) NAry(opcode, n int) { s.w.NAry(opcode, n) }

// Num is part of the Sink interface.
func (s *NLSink) Num(v float64) { s.w.Num(v) }

// Var is part of the Sink interface.
func (s *NLSink) Var(offset int) {
	s.seen[offset] = true
	s.w.Var(offset)
}

// End writes the sparsity pattern of the segment and, for constraints,
// its right hand side.
func (s *NLSink) End() error {
	offsets := make([]int, 0, len(s.seen))
	for off := range s.seen {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	info := SegmentInfo{Kind: s.seg.Kind, Label: s.seg.Label, Offsets: offsets}
	if s.seg.Kind == ConstraintSegment {
		info.Index = s.cons
		s.w.Jacobian(s.cons, offsets)
		s.w.Range(s.seg.Op, s.seg.RHS)
		s.cons++
	} else {
		info.Index = s.objs
		s.w.Gradient(s.objs, offsets)
		s.objs++
	}
	s.Segments = append(s.Segments, info)
	return nil
}

// --- LP sink ----------------------------------------------------------------

type instrKind int8

const (
	instrOp instrKind = iota
	instrNum
	instrVar
)

type instruction struct {
	kind   instrKind
	opcode int
	n      int
	value  float64
	offset int
}

// LPSink folds segments into rows and the objective of an LP matrix.
//
// Matrix columns have to be in offset order. The first objective sets the
// sense of the problem; objectives of the opposite sense are negated.
type LPSink struct {
	m        *lp.Matrix
	lang     *lang.Language
	seg      Segment
	code     []instruction
	objs     int
	sense    mosra.Sense
	Segments []SegmentInfo
}

// NewLPSink creates a sink adding to m.
func NewLPSink(m *lp.Matrix, l *lang.Language) *LPSink {
	if l == nil {
		l = lang.Standard()
	}
	return &LPSink{m: m, lang: l}
}

// Begin is part of the Sink interface.
func (s *LPSink) Begin(seg Segment) {
	s.seg = seg
	s.code = s.code[:0]
}

// Op is part of the Sink interface.
func (s *LPSink) Op(opcode int) {
	s.code = append(s.code, instruction{kind: instrOp, opcode: opcode, n: s.lang.Arity(opcode)})
}

// NAry is part of the Sink interface.
func (s *LPSink) NAry(opcode, n int) {
	s.code = append(s.code, instruction{kind: instrOp, opcode: opcode, n: n})
}

// Num is part of the Sink interface.
func (s *LPSink) Num(v float64) {
	s.code = append(s.code, instruction{kind: instrNum, value: v})
}

// Var is part of the Sink interface.
func (s *LPSink) Var(offset int) {
	s.code = append(s.code, instruction{kind: instrVar, offset: offset})
}

// End evaluates the segment and adds it to the matrix.
func (s *LPSink) End() error {
	c, coeffs, err := s.fold()
	if err != nil {
		return err
	}
	info := SegmentInfo{Kind: s.seg.Kind, Label: s.seg.Label}
	for off := range coeffs {
		info.Offsets = append(info.Offsets, off)
	}
	sort.Ints(info.Offsets)
	if s.seg.Kind == ConstraintSegment {
		op, err := lp.OpFor(s.seg.Op)
		if err != nil {
			return err
		}
		row, err := s.m.AddRow(s.seg.Label, coeffs, op, s.seg.RHS-c)
		if err != nil {
			return err
		}
		info.Index = row
		s.Segments = append(s.Segments, info)
		return nil
	}
	if c != 0 {
		tracer().Debugf("objective %s: dropping constant %g", s.seg.Label, c)
	}
	w := s.seg.Weight
	if w == 0 {
		w = 1
	}
	if s.objs == 0 {
		s.sense = s.seg.Sense
		s.m.SetSense(s.sense)
	} else if s.seg.Sense != s.sense {
		w = -w
	}
	for off, v := range coeffs {
		coeffs[off] = v * w
	}
	s.m.AddObjective(coeffs)
	info.Index = s.objs
	s.objs++
	s.Segments = append(s.Segments, info)
	return nil
}

// fold evaluates the recorded prefix code from right to left.
func (s *LPSink) fold() (float64, map[int]float64, error) {
	es := NewExprStack(s.lang)
	for i := len(s.code) - 1; i >= 0; i-- {
		in := s.code[i]
		switch in.kind {
		case instrNum:
			es.PushConstant(in.value)
		case instrVar:
			es.PushVariable(in.offset)
		case instrOp:
			if err := es.Apply(in.opcode, in.n); err != nil {
				return 0, nil, mosra.DimensionError(s.seg.Label, "%v", err)
			}
		}
	}
	if es.Size() != 1 {
		return 0, nil, mosra.ParseError(s.seg.Label, -1, "segment leaves %d values", es.Size())
	}
	p, _ := es.Pop()
	c, coeffs := Coefficients(p)
	return c, coeffs, nil
}
