package equation

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/lang"
	"github.com/zeebo/blake3"
)

// Compiler compiles equations by name and caches the results. A compiled
// equation stays valid until the set of equation sources changes.
type Compiler struct {
	parser      *Parser
	sources     map[string]string
	fingerprint []byte
	equations   map[string]*Equation
	prefixes    map[string]*Prefix
}

// NewCompiler creates a compiler for a set of named equation sources.
func NewCompiler(l *lang.Language, syms Symbols, sources map[string]string) (*Compiler, error) {
	p, err := NewParser(l, syms)
	if err != nil {
		return nil, err
	}
	c := &Compiler{parser: p}
	c.Reload(sources)
	return c, nil
}

// Fingerprint hashes a set of equation sources, independent of map order.
func Fingerprint(sources map[string]string) []byte {
	h := blake3.New()
	for _, name := range sortedNames(sources) {
		fmt.Fprintf(h, "%s\x00%s\x00", name, sources[name])
	}
	return h.Sum(nil)
}

// Reload replaces the equation sources. If they differ from the current
// ones, all cached compilations are dropped. Reload reports whether the
// cache has been invalidated.
func (c *Compiler) Reload(sources map[string]string) bool {
	fp := Fingerprint(sources)
	if c.fingerprint != nil && bytes.Equal(fp, c.fingerprint) {
		tracer().Debugf("equations unchanged, keeping %d compiled equations", len(c.prefixes))
		return false
	}
	c.sources = make(map[string]string, len(sources))
	for name, src := range sources {
		c.sources[name] = src
	}
	c.fingerprint = fp
	c.equations = make(map[string]*Equation)
	c.prefixes = make(map[string]*Prefix)
	tracer().Infof("loaded %d equations, fingerprint %x", len(sources), fp[:8])
	return true
}

// Names returns the names of all equations, sorted.
func (c *Compiler) Names() []string {
	return sortedNames(c.sources)
}

// Source returns the text of an equation.
func (c *Compiler) Source(name string) (string, bool) {
	src, ok := c.sources[name]
	return src, ok
}

// Parser returns the parser of the compiler.
func (c *Compiler) Parser() *Parser {
	return c.parser
}

// Equation returns the parsed form of an equation.
func (c *Compiler) Equation(name string) (*Equation, error) {
	if eq, ok := c.equations[name]; ok {
		return eq, nil
	}
	src, ok := c.sources[name]
	if !ok {
		return nil, mosra.LookupError(name, -1, "unknown equation %s", name)
	}
	eq, err := c.parser.Parse(src, name, true)
	if err != nil {
		return nil, err
	}
	c.equations[name] = eq
	return eq, nil
}

// Compile returns the prefix form of an equation. It is built once per
// equation name.
func (c *Compiler) Compile(name string) (*Prefix, error) {
	if p, ok := c.prefixes[name]; ok {
		return p, nil
	}
	eq, err := c.Equation(name)
	if err != nil {
		return nil, err
	}
	p := ToPrefix(eq, c.parser.Language())
	c.prefixes[name] = p
	return p, nil
}

// CompileAll compiles every equation and stops at the first error.
func (c *Compiler) CompileAll() error {
	for _, name := range c.Names() {
		if _, err := c.Compile(name); err != nil {
			return err
		}
	}
	return nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
