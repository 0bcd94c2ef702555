package lang

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestOperatorTable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.lang")
	defer teardown()
	//
	l := Standard()
	if l != Standard() {
		t.Errorf("expected standard language to be shared")
	}
	mult, _ := l.Operator("*")
	plus, _ := l.Operator("+")
	pow, _ := l.Operator("^")
	le, _ := l.Operator("<=")
	if !(pow.Precedence > mult.Precedence && mult.Precedence > plus.Precedence &&
		plus.Precedence > le.Precedence) {
		t.Errorf("precedence levels are out of order")
	}
	if pow.Assoc != Right || plus.Assoc != Left {
		t.Errorf("unexpected associativity")
	}
	if _, ok := l.Operator("=<"); ok {
		t.Errorf("did not expect '=<' to be an operator")
	}
	for _, c := range []byte("+-*/^<>=!%") {
		if !l.IsOperatorChar(c) {
			t.Errorf("expected %q to be an operator character", c)
		}
	}
	if l.IsOperatorChar('a') || !l.IsDigit('7') || !l.IsWhitespace('\t') {
		t.Errorf("character classes are wrong")
	}
}

func TestFunctionsAndLoops(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.lang")
	defer teardown()
	//
	l := Standard()
	f, ok := l.Function("sum")
	if !ok || !f.NAry() || f.Opcode != OpSumList {
		t.Errorf("expected n-ary function sum, got %v", f)
	}
	if f, ok = l.Function("sqrt"); !ok || f.NAry() || l.Arity(f.Opcode) != 1 {
		t.Errorf("expected unary function sqrt, got %v", f)
	}
	k, ok := l.LoopKeyword("sum")
	if !ok || k.BinaryOpcode != OpPlus || l.Sum() != k {
		t.Errorf("unexpected loop keyword sum: %v", k)
	}
	if k, _ = l.LoopKeyword("max"); k.BinaryOpcode >= 0 {
		t.Errorf("max loops must not collapse to a binary operator")
	}
}

func TestApply(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.lang")
	defer teardown()
	//
	l := Standard()
	tests := []struct {
		opcode int
		args   []float64
		result float64
	}{
		{OpPlus, []float64{1, 2}, 3},
		{OpMinus, []float64{1, 2}, -1},
		{OpPow, []float64{2, 3}, 8},
		{OpNeg, []float64{2}, -2},
		{OpFloor, []float64{2.7}, 2},
		{OpSumList, []float64{1, 2, 3, 4}, 10},
		{OpMaxList, []float64{1, 7, 3}, 7},
		{OpLE, []float64{1, 1}, 1},
	}
	for i, test := range tests {
		r, err := l.Apply(test.opcode, test.args...)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
		} else if math.Abs(r-test.result) > 1e-12 {
			t.Errorf("test %d: expected %g, got %g", i, test.result, r)
		}
	}
	if _, err := l.Apply(OpDiv, 1, 0); err == nil {
		t.Errorf("expected division by zero to fail")
	}
	if _, err := l.Apply(OpPlus, 1); err == nil {
		t.Errorf("expected wrong operand count to fail")
	}
}

func TestLoopHeader(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.lang")
	defer teardown()
	//
	sum := Standard().Sum()
	if h := sum.Header(5); !h.NAry || h.Opcode != OpSumList || h.Count != 5 {
		t.Errorf("expected n-ary header for 5 operands, got %+v", h)
	}
	if h := sum.Header(2); h.NAry || h.Opcode != OpPlus {
		t.Errorf("expected binary '+' for 2 operands, got %+v", h)
	}
	if h := sum.Header(1); !h.Omit {
		t.Errorf("expected no header for 1 operand, got %+v", h)
	}
	max, _ := Standard().LoopKeyword("max")
	if h := max.Header(2); !h.NAry || h.Count != 2 {
		t.Errorf("expected n-ary max for 2 operands, got %+v", h)
	}
}
