package lang

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/floats"
)

// tracer traces with key 'mosra.lang'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.lang")
}

// Opcodes of the .nl expression format. Only the ones we generate are listed.
const (
	OpPlus    = 0
	OpMinus   = 1
	OpMult    = 2
	OpDiv     = 3
	OpRem     = 4
	OpPow     = 5
	OpMinList = 11
	OpMaxList = 12
	OpFloor   = 13
	OpCeil    = 14
	OpAbs     = 15
	OpNeg     = 16
	OpLT      = 22
	OpLE      = 23
	OpEQ      = 24
	OpGE      = 28
	OpGT      = 29
	OpNE      = 30
	OpTanh    = 37
	OpTan     = 38
	OpSqrt    = 39
	OpSin     = 41
	OpLog10   = 42
	OpLog     = 43
	OpExp     = 44
	OpCos     = 46
	OpAtan2   = 48
	OpSumList = 54
)

// Character classes
const (
	operatorChars = "+-*/^%<>=!"
	whitespace    = " \t\r\n"
	digits        = "0123456789"
)

// Operators on different precedence levels.
var relOps = []string{"<", "<=", "=", "==", ">=", ">", "!="}
var secOps = []string{"+", "-"}
var primOps = []string{"*", "/", "%"}
var powOps = []string{"^"}

var opcodes = map[string]int{
	"+": OpPlus, "-": OpMinus, "*": OpMult, "/": OpDiv, "%": OpRem, "^": OpPow,
	"<": OpLT, "<=": OpLE, "=": OpEQ, "==": OpEQ, ">=": OpGE, ">": OpGT, "!=": OpNE,
}

// Built-in functions: name, opcode, min. args, max. args (-1 = unlimited).
var functions = []Function{
	{"abs", OpAbs, 1, 1},
	{"floor", OpFloor, 1, 1},
	{"ceil", OpCeil, 1, 1},
	{"sqrt", OpSqrt, 1, 1},
	{"exp", OpExp, 1, 1},
	{"log", OpLog, 1, 1},
	{"log10", OpLog10, 1, 1},
	{"sin", OpSin, 1, 1},
	{"cos", OpCos, 1, 1},
	{"tan", OpTan, 1, 1},
	{"tanh", OpTanh, 1, 1},
	{"pow", OpPow, 2, 2},
	{"atan2", OpAtan2, 2, 2},
	{"min", OpMinList, 1, -1},
	{"max", OpMaxList, 1, -1},
	{"sum", OpSumList, 1, -1},
}

// Loop keywords: name, n-ary opcode, binary opcode (-1 = none).
var loops = []LoopKeyword{
	{"sum", OpSumList, OpPlus},
	{"min", OpMinList, -1},
	{"max", OpMaxList, -1},
}

// --- Types -----------------------------------------------------------------

// Assoc is the associativity of a binary operator.
type Assoc int8

// Associativity
const (
	Left Assoc = iota
	Right
)

// Operator is an infix or prefix operator of the equation language.
type Operator struct {
	Symbol     string
	Precedence int
	Assoc      Assoc
	Opcode     int
	Unary      bool
}

// Function is a built-in function. MaxArgs < 0 denotes a function with
// a variable number of arguments (an n-ary function).
type Function struct {
	Name    string
	Opcode  int
	MinArgs int
	MaxArgs int
}

// NAry is a predicate: does this function accept a variable number of args?
func (f Function) NAry() bool {
	return f.MaxArgs < 0
}

// LoopKeyword is a keyword opening a loop over a dimension, e.g. sum{DIM}(...).
// Loops are encoded as n-ary operations. For exactly two operands, a loop
// may collapse to a binary operator, if BinaryOpcode >= 0.
type LoopKeyword struct {
	Name         string
	Opcode       int
	BinaryOpcode int
}

// Header describes how a loop (or n-ary call) with n operands is
// written in prefix form. Count is the number of operands following the
// operator. If Omit is set, no operator is written at all.
type Header struct {
	Opcode int
	Count  int
	NAry   bool // write 'o<opcode>' followed by the operand count
	Omit   bool // a single operand stands for itself
}

// Header returns the prefix header for n operands:
// an n-ary operation for n >= 3, a binary operator for n = 2 (if the
// keyword has one) and no operator for n = 1. n must be positive.
func (k LoopKeyword) Header(n int) Header {
	switch {
	case n == 1:
		return Header{Opcode: k.Opcode, Count: 1, Omit: true}
	case n == 2 && k.BinaryOpcode >= 0:
		return Header{Opcode: k.BinaryOpcode, Count: 2}
	}
	return Header{Opcode: k.Opcode, Count: n, NAry: true}
}

// Language bundles the static tables of the equation language. A Language
// is immutable once created; share it by reference.
type Language struct {
	operators  map[string]Operator
	unaryMinus Operator
	functions  map[string]Function
	loops      map[string]LoopKeyword
	symbols    []string // operator symbols, sorted
}

var standard *Language
var standardOnce sync.Once

// Standard returns the standard equation language.
func Standard() *Language {
	standardOnce.Do(func() {
		standard = build()
	})
	return standard
}

func build() *Language {
	l := &Language{
		operators: make(map[string]Operator),
		functions: make(map[string]Function),
		loops:     make(map[string]LoopKeyword),
	}
	levels := []struct {
		ops   []string
		prec  int
		assoc Assoc
	}{
		{relOps, 1, Left},
		{secOps, 2, Left},
		{primOps, 3, Left},
		{powOps, 4, Right},
	}
	for _, level := range levels {
		for _, sym := range level.ops {
			l.operators[sym] = Operator{
				Symbol:     sym,
				Precedence: level.prec,
				Assoc:      level.assoc,
				Opcode:     opcodes[sym],
			}
			l.symbols = append(l.symbols, sym)
		}
	}
	sort.Strings(l.symbols)
	// unary minus binds weaker than '^' and stronger than '*'
	l.unaryMinus = Operator{Symbol: "-", Precedence: 4, Assoc: Right, Opcode: OpNeg, Unary: true}
	for _, f := range functions {
		l.functions[f.Name] = f
	}
	for _, k := range loops {
		l.loops[k.Name] = k
	}
	tracer().Debugf("language with %d operators, %d functions, %d loop keywords",
		len(l.operators), len(l.functions), len(l.loops))
	return l
}

// --- Character classes -----------------------------------------------------

// IsOperatorChar is a predicate for characters which form operators.
func (l *Language) IsOperatorChar(c byte) bool {
	return strings.IndexByte(operatorChars, c) >= 0
}

// IsWhitespace is a predicate for whitespace characters.
func (l *Language) IsWhitespace(c byte) bool {
	return strings.IndexByte(whitespace, c) >= 0
}

// IsDigit is a predicate for digits.
func (l *Language) IsDigit(c byte) bool {
	return strings.IndexByte(digits, c) >= 0
}

// OperatorChars returns all characters which may be part of an operator.
func (l *Language) OperatorChars() string {
	return operatorChars
}

// --- Lookups ---------------------------------------------------------------

// Operator returns the binary operator for a symbol.
func (l *Language) Operator(sym string) (Operator, bool) {
	op, ok := l.operators[sym]
	return op, ok
}

// UnaryMinus returns the prefix negation operator.
func (l *Language) UnaryMinus() Operator {
	return l.unaryMinus
}

// Operators returns the symbols of all binary operators, sorted.
func (l *Language) Operators() []string {
	syms := make([]string, len(l.symbols))
	copy(syms, l.symbols)
	return syms
}

// Function returns a built-in function by name.
func (l *Language) Function(name string) (Function, bool) {
	f, ok := l.functions[name]
	return f, ok
}

// LoopKeyword returns a loop keyword by name.
func (l *Language) LoopKeyword(name string) (LoopKeyword, bool) {
	k, ok := l.loops[name]
	return k, ok
}

// Sum returns the loop keyword for summation.
func (l *Language) Sum() LoopKeyword {
	return l.loops["sum"]
}

// Arity returns the number of operands of a fixed-arity opcode.
// For n-ary opcodes it returns -1.
func (l *Language) Arity(opcode int) int {
	switch opcode {
	case OpMinList, OpMaxList, OpSumList:
		return -1
	case OpNeg, OpFloor, OpCeil, OpAbs, OpSqrt, OpExp, OpLog, OpLog10,
		OpSin, OpCos, OpTan, OpTanh:
		return 1
	}
	return 2
}

// --- Evaluation ------------------------------------------------------------

// Apply evaluates an opcode for constant operands.
func (l *Language) Apply(opcode int, args ...float64) (float64, error) {
	arity := l.Arity(opcode)
	if arity >= 0 && len(args) != arity {
		return 0, fmt.Errorf("opcode o%d expects %d operands, got %d", opcode, arity, len(args))
	}
	if arity < 0 && len(args) == 0 {
		return 0, fmt.Errorf("opcode o%d expects at least one operand", opcode)
	}
	b2f := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	switch opcode {
	case OpPlus:
		return args[0] + args[1], nil
	case OpMinus:
		return args[0] - args[1], nil
	case OpMult:
		return args[0] * args[1], nil
	case OpDiv:
		if args[1] == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return args[0] / args[1], nil
	case OpRem:
		if args[1] == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return math.Mod(args[0], args[1]), nil
	case OpPow:
		return math.Pow(args[0], args[1]), nil
	case OpAtan2:
		return math.Atan2(args[0], args[1]), nil
	case OpLT:
		return b2f(args[0] < args[1]), nil
	case OpLE:
		return b2f(args[0] <= args[1]), nil
	case OpEQ:
		return b2f(args[0] == args[1]), nil
	case OpGE:
		return b2f(args[0] >= args[1]), nil
	case OpGT:
		return b2f(args[0] > args[1]), nil
	case OpNE:
		return b2f(args[0] != args[1]), nil
	case OpNeg:
		return -args[0], nil
	case OpFloor:
		return math.Floor(args[0]), nil
	case OpCeil:
		return math.Ceil(args[0]), nil
	case OpAbs:
		return math.Abs(args[0]), nil
	case OpSqrt:
		return math.Sqrt(args[0]), nil
	case OpExp:
		return math.Exp(args[0]), nil
	case OpLog:
		return math.Log(args[0]), nil
	case OpLog10:
		return math.Log10(args[0]), nil
	case OpSin:
		return math.Sin(args[0]), nil
	case OpCos:
		return math.Cos(args[0]), nil
	case OpTan:
		return math.Tan(args[0]), nil
	case OpTanh:
		return math.Tanh(args[0]), nil
	case OpSumList:
		return floats.Sum(args), nil
	case OpMinList:
		return floats.Min(args), nil
	case OpMaxList:
		return floats.Max(args), nil
	}
	return 0, fmt.Errorf("unknown opcode o%d", opcode)
}
