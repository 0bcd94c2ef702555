package codegen

import (
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/dimension"
	"github.com/npillmayer/mosra/settings"
)

// OffsetEntry is a decision variable instance: a variable together with a
// value for each of its dimensions.
type OffsetEntry struct {
	Variable string
	Tuple    []mosra.Value
	Type     settings.DVType
}

// Offsets maps decision variable instances to dense 0-based offsets.
// Continuous variables come first, integer and binary variables last.
type Offsets struct {
	declared []settings.Variable
	entries  []OffsetEntry
	index    map[string]int
	dims     map[string][]string
}

// NewOffsets creates an empty offset table.
func NewOffsets() *Offsets {
	return &Offsets{
		index: make(map[string]int),
		dims:  make(map[string][]string),
	}
}

// Declare registers a decision variable.
func (o *Offsets) Declare(v settings.Variable) error {
	if _, ok := o.dims[v.Name]; ok {
		return mosra.LookupError("", -1, "variable %s declared twice", v.Name)
	}
	o.declared = append(o.declared, v)
	o.dims[v.Name] = v.Dimensions
	return nil
}

// Build enumerates the instances of every declared variable: the cartesian
// product of its dimension values, the first dimension varying slowest.
func (o *Offsets) Build(cat *dimension.Catalog) error {
	o.entries = o.entries[:0]
	o.index = make(map[string]int)
	for _, discrete := range []bool{false, true} {
		for _, v := range o.declared {
			if (v.Type != settings.DVReal) != discrete {
				continue
			}
			if err := o.enumerate(cat, v); err != nil {
				return err
			}
		}
	}
	tracer().Infof("%d decision variables", len(o.entries))
	return nil
}

func (o *Offsets) enumerate(cat *dimension.Catalog, v settings.Variable) error {
	values := make([][]mosra.Value, len(v.Dimensions))
	for i, d := range v.Dimensions {
		vals, err := cat.Values(d)
		if err != nil {
			return err
		}
		values[i] = vals
	}
	tuple := make([]mosra.Value, len(values))
	var product func(int)
	product = func(i int) {
		if i == len(values) {
			t := append([]mosra.Value(nil), tuple...)
			o.index[key(v.Name, t)] = len(o.entries)
			o.entries = append(o.entries, OffsetEntry{Variable: v.Name, Tuple: t, Type: v.Type})
			return
		}
		for _, val := range values[i] {
			tuple[i] = val
			product(i + 1)
		}
	}
	product(0)
	return nil
}

func key(name string, tuple []mosra.Value) string {
	return name + "\x00" + mosra.TupleKey(tuple)
}

// Offset returns the offset of a variable instance.
func (o *Offsets) Offset(name string, tuple []mosra.Value) (int, error) {
	off, ok := o.index[key(name, tuple)]
	if !ok {
		return -1, mosra.LookupError("", -1, "no decision variable %s", instanceName(name, tuple, o.dims[name]))
	}
	return off, nil
}

// Len returns the number of variable instances.
func (o *Offsets) Len() int {
	return len(o.entries)
}

// Entries returns all variable instances in offset order.
func (o *Offsets) Entries() []OffsetEntry {
	return o.entries
}

// Declared returns the declaration of the variable of an offset.
func (o *Offsets) Declared(offset int) settings.Variable {
	name := o.entries[offset].Variable
	for _, v := range o.declared {
		if v.Name == name {
			return v
		}
	}
	return settings.Variable{}
}

// Name returns the column name of an offset, e.g. X_17_2 for X[17][1].
// Options are numbered from 1.
func (o *Offsets) Name(offset int) string {
	e := o.entries[offset]
	return instanceName(e.Variable, e.Tuple, o.dims[e.Variable])
}

func instanceName(name string, tuple []mosra.Value, dims []string) string {
	var b strings.Builder
	b.WriteString(name)
	for i, v := range tuple {
		b.WriteByte('_')
		if i < len(dims) && dims[i] == dimension.Options {
			if n, err := mosra.AsInt(v); err == nil {
				b.WriteString(mosra.Int(n + 1).String())
				continue
			}
		}
		if v != nil {
			b.WriteString(v.String())
		}
	}
	return b.String()
}
