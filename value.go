package mosra

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType represents the type of a table value.
type ValueType int8

// Predefined value types
const (
	Undefined ValueType = iota
	IntType
	DoubleType
	TextType
)

func (vt ValueType) String() string {
	switch vt {
	case IntType:
		return "int"
	case DoubleType:
		return "double"
	case TextType:
		return "text"
	}
	return "<undefined>"
}

// TypeFromString returns a value type from a string, as used in
// column declarations.
func TypeFromString(str string) ValueType {
	switch strings.ToLower(str) {
	case "int", "integer":
		return IntType
	case "double", "real", "float":
		return DoubleType
	case "text", "string":
		return TextType
	}
	return Undefined
}

// --- Value -----------------------------------------------------------------

// Value is a value of a table cell. It is one of Int, Double or Text.
type Value interface {
	Type() ValueType // type of the value
	String() string
	isValue()
}

// Int is an integer table value.
type Int int64

// Double is a floating point table value.
type Double float64

// Text is a string table value.
type Text string

// Type is part of interface Value.
func (i Int) Type() ValueType { return IntType }

// Type is part of interface Value.
func (d Double) Type() ValueType { return DoubleType }

// Type is part of interface Value.
func (t Text) Type() ValueType { return TextType }

func (i Int) String() string    { return strconv.FormatInt(int64(i), 10) }
func (d Double) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }
func (t Text) String() string   { return string(t) }

func (Int) isValue()    {}
func (Double) isValue() {}
func (Text) isValue()   {}

// AsFloat converts a value to float64. Text values are converted if
// they hold a numeric literal; otherwise an error is returned.
func AsFloat(v Value) (float64, error) {
	switch x := v.(type) {
	case Int:
		return float64(x), nil
	case Double:
		return float64(x), nil
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", string(x))
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("value is nil")
	}
	return 0, fmt.Errorf("value of unknown type %T", v)
}

// AsInt converts a value to int64. Double values are truncated.
func AsInt(v Value) (int64, error) {
	switch x := v.(type) {
	case Int:
		return int64(x), nil
	case Double:
		return int64(x), nil
	case Text:
		i, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", string(x))
		}
		return i, nil
	}
	return 0, fmt.Errorf("value of unknown type %T", v)
}

// Equal compares two values. Values of different numeric types are
// compared numerically, text values by string equality.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() == TextType || b.Type() == TextType {
		return a.Type() == b.Type() && a.String() == b.String()
	}
	fa, _ := AsFloat(a)
	fb, _ := AsFloat(b)
	return fa == fb
}

// Less orders values. Numbers sort before text.
func Less(a, b Value) bool {
	if a.Type() == TextType || b.Type() == TextType {
		if a.Type() != b.Type() {
			return b.Type() == TextType
		}
		return a.String() < b.String()
	}
	fa, _ := AsFloat(a)
	fb, _ := AsFloat(b)
	return fa < fb
}

// Key returns a string for a value which is unique per type and value.
// It is used for map keys of value tuples.
func Key(v Value) string {
	if v == nil {
		return "?"
	}
	switch v.Type() {
	case TextType:
		return "t:" + v.String()
	}
	f, _ := AsFloat(v)
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// TupleKey concatenates value keys.
func TupleKey(tuple []Value) string {
	var b strings.Builder
	for i, v := range tuple {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(Key(v))
	}
	return b.String()
}
