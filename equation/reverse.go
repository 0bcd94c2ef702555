package equation

import (
	"strings"

	"github.com/npillmayer/mosra"
)

// Reverse produces the structurally reversed text of src[start..end]
// (inclusive). Ordinary characters are reversed one by one, while recorded
// elements are reproduced as units:
//
//	loops        keyword{DIM}( reversed body )
//	functions    fname( reversed last arg, ..., reversed first arg )
//	parameters   name[DIM]... with dimension expressions reversed
//	numbers, binary operators and equation references verbatim
//	unary ops    operator followed by its reversed operand
//
// Unmatched parentheses are mirrored. A unary operation moving in front of
// '^' is parenthesized, as '-b ^ a' would read as '-(b ^ a)'. Parentheses
// around a unary operation in front of '^' are dropped again when it moves
// behind it. Reversing the reversed text of a well-formed equation yields
// the original text.
func Reverse(src string, admin *Admin, start, end int) (string, error) {
	r := reverser{src: src, admin: admin, byEnd: admin.endIndex()}
	var b strings.Builder
	if err := r.reverse(&b, start, end); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ReverseString parses src as equation self and returns its reversed text.
func ReverseString(p *Parser, src, self string) (string, error) {
	eq, err := p.Parse(src, self, true)
	if err != nil {
		return "", err
	}
	return Reverse(src, eq.Admin, 0, len(src)-1)
}

type reverser struct {
	src   string
	admin *Admin
	byEnd map[int][]Element
}

// element returns the outermost element ending at pos and lying inside
// a range starting at start.
func (r reverser) element(pos, start int) (Element, Span, bool) {
	for _, e := range r.byEnd[pos] {
		if s := r.admin.SpanOf(e); s.Start >= start {
			return e, s, true
		}
	}
	return Element{}, Span{}, false
}

func (r reverser) reverse(b *strings.Builder, start, end int) error {
	if start < 0 || end >= len(r.src) {
		return mosra.ParseError(r.admin.Equation, start, "range [%d,%d] out of bounds", start, end)
	}
	for pos := end; pos >= start; {
		e, span, ok := r.element(pos, start)
		if !ok {
			open, ok, err := r.unaryGroup(pos, start, end, b)
			if err != nil {
				return err
			}
			if ok {
				pos = open - 1
				continue
			}
			b.WriteByte(mirror(r.src[pos]))
			pos--
			continue
		}
		wrap := e.Kind == OperatorElement && r.admin.Operators[e.Index].Unary &&
			r.powBefore(span.Start, start)
		if wrap {
			b.WriteByte('(')
		}
		if err := r.unit(b, e, span); err != nil {
			return err
		}
		if wrap {
			b.WriteByte(')')
		}
		pos = span.Start - 1
	}
	return nil
}

// unaryGroup handles parentheses closing at pos around nothing but a unary
// operation. If the group is the left operand of '^' and not the right
// operand of another one, the parentheses are dropped. The position of the
// opening parenthesis is returned.
func (r reverser) unaryGroup(pos, start, end int, b *strings.Builder) (int, bool, error) {
	if r.src[pos] != ')' {
		return 0, false, nil
	}
	q := r.skipBlanks(pos-1, start, -1)
	if q < start {
		return 0, false, nil
	}
	for _, e := range r.byEnd[q] {
		if e.Kind != OperatorElement || !r.admin.Operators[e.Index].Unary {
			continue
		}
		span := r.admin.SpanOf(e)
		open := r.skipBlanks(span.Start-1, start, -1)
		if open < start || r.src[open] != '(' {
			return 0, false, nil
		}
		keep := !r.powAfter(pos, end) || r.powBefore(open, start)
		if keep {
			b.WriteByte('(')
			b.WriteString(reversed(r.src[q+1 : pos]))
		}
		if err := r.unit(b, e, span); err != nil {
			return 0, false, err
		}
		if keep {
			b.WriteString(reversed(r.src[open+1 : span.Start]))
			b.WriteByte(')')
		}
		return open, true, nil
	}
	return 0, false, nil
}

// powBefore reports whether a binary '^' precedes pos, blanks skipped.
func (r reverser) powBefore(pos, start int) bool {
	q := r.skipBlanks(pos-1, start, -1)
	return q >= start && r.isPow(q)
}

// powAfter reports whether a binary '^' follows pos, blanks skipped.
func (r reverser) powAfter(pos, end int) bool {
	q := r.skipBlanks(pos+1, end, 1)
	return q <= end && r.isPow(q)
}

func (r reverser) isPow(pos int) bool {
	for _, e := range r.byEnd[pos] {
		if e.Kind == OperatorElement {
			op := r.admin.Operators[e.Index]
			return !op.Unary && op.Symbol == "^"
		}
	}
	return false
}

// skipBlanks moves from pos in direction dir while there are blanks,
// not passing limit.
func (r reverser) skipBlanks(pos, limit, dir int) int {
	for pos*dir <= limit*dir && pos >= 0 && pos < len(r.src) && isBlank(r.src[pos]) {
		pos += dir
	}
	return pos
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func reversed(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// unit writes a single element in reversed form.
func (r reverser) unit(b *strings.Builder, e Element, span Span) error {
	switch e.Kind {
	case LoopElement:
		loop := r.admin.Loops[e.Index]
		b.WriteString(r.src[span.Start:loop.Body.Start])
		if err := r.reverse(b, loop.Body.Start, loop.Body.End); err != nil {
			return err
		}
		b.WriteString(r.src[loop.Body.End+1 : span.End+1])
	case FuncElement:
		f := r.admin.Funcs[e.Index]
		b.WriteString(r.src[span.Start:f.Body.Start])
		for i := len(f.Args) - 1; i >= 0; i-- {
			if err := r.reverse(b, f.Args[i].Start, f.Args[i].End); err != nil {
				return err
			}
			if i > 0 {
				b.WriteByte(',')
			}
		}
		b.WriteString(r.src[f.Body.End+1 : span.End+1])
	case ParamElement:
		p := r.admin.Params[e.Index]
		cursor := span.Start
		for _, sub := range p.Dimensions {
			b.WriteString(r.src[cursor:sub.Span.Start])
			if sub.Expr != nil {
				if err := r.reverse(b, sub.Span.Start, sub.Span.End); err != nil {
					return err
				}
			} else {
				b.WriteString(r.src[sub.Span.Start : sub.Span.End+1])
			}
			cursor = sub.Span.End + 1
		}
		b.WriteString(r.src[cursor : span.End+1])
	case OperatorElement:
		op := r.admin.Operators[e.Index]
		if !op.Unary {
			b.WriteString(r.src[span.Start : span.End+1])
			break
		}
		// operator text and any blanks up to the operand stay in front
		b.WriteString(r.src[span.Start:op.Operand.Start])
		return r.reverse(b, op.Operand.Start, op.Operand.End)
	default:
		b.WriteString(r.src[span.Start : span.End+1])
	}
	return nil
}

func mirror(c byte) byte {
	switch c {
	case '(':
		return ')'
	case ')':
		return '('
	}
	return c
}
