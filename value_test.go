package mosra

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestValueConversion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra")
	defer teardown()
	//
	tests := []struct {
		v     Value
		f     float64
		isErr bool
	}{
		{Int(3), 3, false},
		{Double(2.5), 2.5, false},
		{Text(" 7.25"), 7.25, false},
		{Text("abc"), 0, true},
	}
	for i, test := range tests {
		f, err := AsFloat(test.v)
		if test.isErr != (err != nil) {
			t.Errorf("test %d: expected error=%v, got %v", i, test.isErr, err)
		}
		if err == nil && f != test.f {
			t.Errorf("test %d: expected %g, got %g", i, test.f, f)
		}
	}
}

func TestValueEquality(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra")
	defer teardown()
	//
	if !Equal(Int(2), Double(2.0)) {
		t.Errorf("expected Int(2) == Double(2.0)")
	}
	if Equal(Text("2"), Int(2)) {
		t.Errorf("expected Text(2) != Int(2)")
	}
	if Key(Int(2)) != Key(Double(2)) {
		t.Errorf("expected keys of 2 and 2.0 to be equal")
	}
	if !Less(Int(1), Text("a")) {
		t.Errorf("expected numbers to sort before text")
	}
	if TupleKey([]Value{Int(1), Text("A")}) == TupleKey([]Value{Text("1"), Text("A")}) {
		t.Errorf("expected tuple keys to respect types")
	}
}

func TestErrorKinds(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra")
	defer teardown()
	//
	err := ParseError("EQN_1", 4, "unknown identifier %q", "foo")
	if !IsParseError(err) || IsLookupError(err) {
		t.Errorf("expected a parse error, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Offset != 4 || e.Equation != "EQN_1" {
		t.Errorf("expected error to carry location, got %v", err)
	}
	wrapped := IOError(errors.New("disk full"), "cannot write %s", "C.tmp")
	if !IsIOError(wrapped) || errors.Unwrap(wrapped) == nil {
		t.Errorf("expected wrapped I/O error, got %v", wrapped)
	}
	c, err := ComparisonFromString(">=")
	if err != nil || c.NLCode() != 2 || c.Label() != "lower" {
		t.Errorf("unexpected comparison %v / %v", c, err)
	}
	if s, err := SenseFromString("maximize"); err != nil || s != Maximize {
		t.Errorf("expected max sense, got %v / %v", s, err)
	}
}
