package mosra

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors of the compiler. All kinds are fatal for a
// build: no partial problem is ever produced.
type ErrorKind int8

// Kinds of errors
const (
	ParseErr     ErrorKind = iota + 1 // malformed token, unknown identifier, wrong arity
	DimensionErr                      // dimension undefined, ambiguous length
	LookupErr                         // unresolved parameter, variable or equation
	IOErr                             // segment file create or write failure
	SettingsErr                       // inconsistent problem settings
)

func (k ErrorKind) String() string {
	switch k {
	case ParseErr:
		return "parse error"
	case DimensionErr:
		return "dimension error"
	case LookupErr:
		return "lookup error"
	case IOErr:
		return "I/O error"
	case SettingsErr:
		return "settings error"
	}
	return "error"
}

// Error is the error type of the compiler. Equation and Offset locate
// the error in the model, if known. Offset is -1 if not applicable.
type Error struct {
	Kind     ErrorKind
	Equation string
	Offset   int
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	switch {
	case e.Equation != "" && e.Offset >= 0:
		return fmt.Sprintf("%s in %s at %d: %s", e.Kind, e.Equation, e.Offset, msg)
	case e.Equation != "":
		return fmt.Sprintf("%s in %s: %s", e.Kind, e.Equation, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, eqn string, offset int, format string, args ...interface{}) *Error {
	e := &Error{
		Kind:     kind,
		Equation: eqn,
		Offset:   offset,
		Msg:      fmt.Sprintf(format, args...),
	}
	tracer().P("eqn", eqn).Errorf("%s", e.Error())
	return e
}

// ParseError creates an error for a malformed equation.
func ParseError(eqn string, offset int, format string, args ...interface{}) error {
	return newError(ParseErr, eqn, offset, format, args...)
}

// DimensionError creates an error for an undefined dimension or a dimension
// whose length cannot be determined.
func DimensionError(eqn string, format string, args ...interface{}) error {
	return newError(DimensionErr, eqn, -1, format, args...)
}

// LookupError creates an error for an unresolved name at generation time.
func LookupError(eqn string, offset int, format string, args ...interface{}) error {
	return newError(LookupErr, eqn, offset, format, args...)
}

// SettingsError creates an error for inconsistent settings.
func SettingsError(format string, args ...interface{}) error {
	return newError(SettingsErr, "", -1, format, args...)
}

// IOError wraps an I/O error.
func IOError(err error, format string, args ...interface{}) error {
	e := &Error{
		Kind:   IOErr,
		Offset: -1,
		Msg:    fmt.Sprintf(format, args...),
		Err:    err,
	}
	tracer().Errorf("%s", e.Error())
	return e
}

// KindOf returns the kind of an error, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsParseError is a predicate for parse errors.
func IsParseError(err error) bool { return KindOf(err) == ParseErr }

// IsDimensionError is a predicate for dimension errors.
func IsDimensionError(err error) bool { return KindOf(err) == DimensionErr }

// IsLookupError is a predicate for lookup errors.
func IsLookupError(err error) bool { return KindOf(err) == LookupErr }

// IsIOError is a predicate for I/O errors.
func IsIOError(err error) bool { return KindOf(err) == IOErr }

// IsSettingsError is a predicate for settings errors.
func IsSettingsError(err error) bool { return KindOf(err) == SettingsErr }
