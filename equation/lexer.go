package equation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/lang"
	"github.com/shopspring/decimal"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Token types of the equation scanner
const (
	tokIdent int = iota + 1
	tokNumber
	tokOperator
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokEOF
)

var tokenNames = map[int]string{
	tokIdent:    "identifier",
	tokNumber:   "number",
	tokOperator: "operator",
	tokLParen:   "'('",
	tokRParen:   "')'",
	tokLBrace:   "'{'",
	tokRBrace:   "'}'",
	tokLBracket: "'['",
	tokRBracket: "']'",
	tokComma:    "','",
	tokEOF:      "end of equation",
}

// The tokens representing literal one-char lexemes, with their patterns
var literals = map[string]int{
	`\(`: tokLParen, `\)`: tokRParen,
	`{`: tokLBrace, `}`: tokRBrace,
	`\[`: tokLBracket, `\]`: tokRBracket,
	`,`: tokComma,
}

// token is a lexeme together with its byte position in the equation source.
type token struct {
	typ    int
	lexeme string
	pos    int
	value  float64 // for numbers
}

// end returns the position of the last byte of the token.
func (t token) end() int {
	if len(t.lexeme) == 0 {
		return t.pos
	}
	return t.pos + len(t.lexeme) - 1
}

func (t token) String() string {
	if t.typ == tokEOF {
		return tokenNames[tokEOF]
	}
	return fmt.Sprintf("%s %q", tokenNames[t.typ], t.lexeme)
}

// newLexer creates a lexmachine lexer for the equation language.
func newLexer(l *lang.Language) (*lexmachine.Lexer, error) {
	lexer := lexmachine.NewLexer()
	lexer.Add([]byte(`( |\t|\n|\r)+`), skip) // skip whitespace
	lexer.Add([]byte(`([a-z]|[A-Z]|_)([a-z]|[A-Z]|[0-9]|_)*`), makeToken(tokIdent))
	lexer.Add([]byte(`[0-9]+(\.[0-9]*)?((e|E)(\+|\-)?[0-9]+)?`), makeToken(tokNumber))
	lexer.Add([]byte(`\.[0-9]+((e|E)(\+|\-)?[0-9]+)?`), makeToken(tokNumber))
	lexer.Add([]byte(operatorPattern(l)), makeToken(tokOperator))
	for pattern, id := range literals {
		lexer.Add([]byte(pattern), makeToken(id))
	}
	if err := lexer.Compile(); err != nil {
		tracer().Errorf("cannot compile equation lexer: %v", err)
		return nil, err
	}
	return lexer, nil
}

// operatorPattern is a character class for runs of operator characters.
func operatorPattern(l *lang.Language) string {
	var b strings.Builder
	b.WriteString("[")
	for _, c := range l.OperatorChars() {
		switch c {
		case '+', '-', '*', '^', '/':
			b.WriteRune('\\')
		}
		b.WriteRune(c)
	}
	b.WriteString("]+")
	return b.String()
}

func makeToken(id int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(id, string(m.Bytes), m), nil
	}
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

// tokenize splits an equation into tokens. Runs of operator characters are
// split into operators of the language, longest match first.
func (p *Parser) tokenize(src string, eqn string) ([]token, error) {
	scanner, err := p.lexer.Scanner([]byte(src))
	if err != nil {
		return nil, mosra.ParseError(eqn, 0, "cannot scan equation: %v", err)
	}
	var toks []token
	for tok, err, eof := scanner.Next(); !eof; tok, err, eof = scanner.Next() {
		if ui, is := err.(*machines.UnconsumedInput); is {
			return nil, mosra.ParseError(eqn, ui.StartTC, "unidentified token %q",
				excerpt(src, ui.StartTC))
		} else if err != nil {
			return nil, mosra.ParseError(eqn, scanner.TC, "%v", err)
		}
		lmtok := tok.(*lexmachine.Token)
		t := token{typ: lmtok.Type, lexeme: string(lmtok.Lexeme), pos: lmtok.TC}
		switch t.typ {
		case tokNumber:
			if t.value, err = parseNumber(t.lexeme); err != nil {
				return nil, mosra.ParseError(eqn, t.pos, "malformed number %q", t.lexeme)
			}
		case tokOperator:
			ops, err := p.splitOperators(t, eqn)
			if err != nil {
				return nil, err
			}
			toks = append(toks, ops...)
			continue
		}
		toks = append(toks, t)
	}
	toks = append(toks, token{typ: tokEOF, pos: len(src)})
	return toks, nil
}

// splitOperators breaks a run of operator characters, e.g. "*-", into
// operators known to the language.
func (p *Parser) splitOperators(run token, eqn string) ([]token, error) {
	syms := p.lang.Operators()
	sort.Slice(syms, func(i, j int) bool { return len(syms[i]) > len(syms[j]) })
	var ops []token
	rest, pos := run.lexeme, run.pos
	for len(rest) > 0 {
		found := ""
		for _, sym := range syms {
			if strings.HasPrefix(rest, sym) {
				found = sym
				break
			}
		}
		if found == "" {
			return nil, mosra.ParseError(eqn, pos, "unknown operator %q", rest)
		}
		ops = append(ops, token{typ: tokOperator, lexeme: found, pos: pos})
		rest, pos = rest[len(found):], pos+len(found)
	}
	return ops, nil
}

// parseNumber converts a numeric literal. We use decimals to get the
// nearest float64 for literals like "0.1".
func parseNumber(lexeme string) (float64, error) {
	if strings.HasPrefix(lexeme, ".") {
		lexeme = "0" + lexeme
	}
	lexeme = strings.Replace(lexeme, ".e", ".0e", 1)
	lexeme = strings.Replace(lexeme, ".E", ".0E", 1)
	lexeme = strings.TrimSuffix(lexeme, ".")
	d, err := decimal.NewFromString(lexeme)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func excerpt(src string, pos int) string {
	if pos >= len(src) {
		return ""
	}
	end := pos + 10
	if end > len(src) {
		end = len(src)
	}
	return src[pos:end]
}
