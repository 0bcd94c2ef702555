package equation

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/mosra/lang"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func tokenStrings(p *Prefix) []string {
	s := make([]string, len(p.Tokens))
	for i, t := range p.Tokens {
		s[i] = t.String()
	}
	return s
}

func TestPrefixTokens(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.equation")
	defer teardown()
	//
	p := testParser(t)
	inputs := []struct {
		src    string
		tokens []string
	}{
		{"a + b * c", []string{"o0", "a", "o2", "b", "c"}},
		{"(a + b) * c", []string{"o2", "o0", "a", "b", "c"}},
		{"-a ^ 2", []string{"o16", "o5", "a", "n2"}},
		{"sum(a, b, c)", []string{"o54/3", "a", "b", "c"}},
		{"sum(a, b)", []string{"o0", "a", "b"}},
		{"sum(a)", []string{"a"}},
		{"max(a, b)", []string{"o12/2", "a", "b"}},
		{"sqrt(a) <= E2", []string{"o23", "o39", "a", "=E2"}},
		{"sum{SDU}(x[SDU][OPTIONS])", []string{"sum{SDU}", "x[SDU][OPTIONS]"}},
	}
	for i, input := range inputs {
		eq, err := p.Parse(input.src, "E1", true)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		pre := ToPrefix(eq, lang.Standard())
		if diff := cmp.Diff(input.tokens, tokenStrings(pre)); diff != "" {
			t.Errorf("test %d: prefix mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestPrefixRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.equation")
	defer teardown()
	//
	p := testParser(t)
	env := Env{"a": 1, "b": 2, "c": 3, "E2": 10}
	inputs := []struct {
		src    string
		result float64
	}{
		{"a + b * c", 7},
		{"a - b - c", -4},
		{"2 ^ 3 ^ 2", 512},
		{"-b ^ 2 + c % b", -3},
		{"max(a, b, c) - min(c, b) + sum(a, b) + sum(c)", 7},
		{"pow(b, c) / E2 * floor(2.7)", 1.6},
		{"(a < b) + (a >= c)", 1},
	}
	for i, input := range inputs {
		eq, err := p.Parse(input.src, "E1", true)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		infix, err := EvalInfix(eq, nil, env)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		prefix, err := EvalPrefix(ToPrefix(eq, nil), nil, env)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if math.Abs(infix-input.result) > 1e-9 || math.Abs(prefix-input.result) > 1e-9 {
			t.Errorf("test %d: expected %g, got infix=%g, prefix=%g", i, input.result, infix, prefix)
		}
	}
}

func TestPrefixAdmin(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.equation")
	defer teardown()
	//
	p := testParser(t)
	eq, err := p.Parse("sum{SDU}(crit[SDU][OPTIONS] * x[SDU][OPTIONS]) + sqrt(c)", "E1", true)
	if err != nil {
		t.Fatal(err)
	}
	pre := ToPrefix(eq, nil)
	// o0 sum{SDU} o2 crit x o39 c
	a := pre.Admin
	if a.EndAddressed {
		t.Errorf("expected prefix admin to be start-addressed")
	}
	if len(a.Loops) != 1 || a.Loops[0].Span != (Span{1, 4}) || a.Loops[0].Body != (Span{2, 4}) {
		t.Errorf("unexpected loop element %+v", a.Loops)
	}
	if hdr := pre.Tokens[1].Loop; hdr == nil || hdr.Body != (Span{2, 4}) {
		t.Errorf("expected loop header with body [2,4], got %+v", hdr)
	}
	if e, ok := a.ElementAt(5); !ok || e.Kind != FuncElement {
		t.Errorf("expected function at token 5, got %v", e)
	}
	if a.Operators[0].Span != pre.Span() {
		t.Errorf("expected root operator to span all tokens, got %v", a.Operators[0].Span)
	}
	if err := a.Check(); err != nil {
		t.Error(err)
	}
	if _, err := EvalPrefix(pre, nil, Env{}); err == nil {
		t.Errorf("expected evaluation of a loop to fail")
	}
}

func TestCompilerCache(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.equation")
	defer teardown()
	//
	sources := map[string]string{"E1": "a + E2", "E2": "b * c"}
	c, err := NewCompiler(nil, testSymbols{}, sources)
	if err != nil {
		t.Fatal(err)
	}
	p1, err := c.Compile("E1")
	if err != nil {
		t.Fatal(err)
	}
	if p2, _ := c.Compile("E1"); p1 != p2 {
		t.Errorf("expected compiled equation to be cached")
	}
	if c.Reload(map[string]string{"E2": "b * c", "E1": "a + E2"}) {
		t.Errorf("expected unchanged equations to keep the cache")
	}
	if !c.Reload(map[string]string{"E1": "a - E2", "E2": "b * c"}) {
		t.Errorf("expected changed equations to invalidate the cache")
	}
	p3, err := c.Compile("E1")
	if err != nil {
		t.Fatal(err)
	}
	if p3 == p1 || p3.Tokens[0].Opcode != lang.OpMinus {
		t.Errorf("expected recompiled equation, got %s", p3)
	}
	if _, err = c.Compile("E3"); err == nil {
		t.Errorf("expected unknown equation to fail")
	}
	if err = c.CompileAll(); err != nil {
		t.Error(err)
	}
}
