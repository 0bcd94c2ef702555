package mosra

import "fmt"

// Comparison is the relation of a constraint to its right hand side.
// Numeric values follow the lp_solve constants.
type Comparison int8

// Comparison operators for constraints
const (
	NoComparison Comparison = 0
	LessEqual    Comparison = 1
	GreaterEqual Comparison = 2
	Equals       Comparison = 3
)

// ComparisonFromString parses "<=", ">=", "=" or "==".
func ComparisonFromString(s string) (Comparison, error) {
	switch s {
	case "<=":
		return LessEqual, nil
	case ">=":
		return GreaterEqual, nil
	case "=", "==":
		return Equals, nil
	}
	return NoComparison, fmt.Errorf("invalid comparison operator %q", s)
}

func (c Comparison) String() string {
	switch c {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equals:
		return "="
	}
	return ""
}

// Label returns the word used in generated constraint labels.
func (c Comparison) Label() string {
	switch c {
	case LessEqual:
		return "upper"
	case GreaterEqual:
		return "lower"
	case Equals:
		return "equals"
	}
	return "none"
}

// NLCode returns the range code of the .nl 'r' segment:
// 1 for <=, 2 for >=, 3 for no constraint and 4 for =.
func (c Comparison) NLCode() int {
	switch c {
	case LessEqual:
		return 1
	case GreaterEqual:
		return 2
	case Equals:
		return 4
	}
	return 3
}

// Sense is the optimization direction of an objective.
type Sense int8

// Optimization directions
const (
	Minimize Sense = iota
	Maximize
)

// SenseFromString parses "min" or "max". Only the first three characters
// are considered, so "minimize" and "maximise" are fine, too.
func SenseFromString(s string) (Sense, error) {
	if len(s) >= 3 {
		switch s[:3] {
		case "min", "MIN", "Min":
			return Minimize, nil
		case "max", "MAX", "Max":
			return Maximize, nil
		}
	}
	return Minimize, fmt.Errorf("invalid optimization sense %q", s)
}

func (s Sense) String() string {
	if s == Maximize {
		return "max"
	}
	return "min"
}
