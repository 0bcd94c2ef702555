package problem

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/codegen"
	"github.com/npillmayer/mosra/dimension"
	"github.com/npillmayer/mosra/eqindex"
	"github.com/npillmayer/mosra/equation"
	"github.com/npillmayer/mosra/lp"
	"github.com/npillmayer/mosra/nl"
	"github.com/npillmayer/mosra/settings"
	"github.com/npillmayer/mosra/table"
)

// Builder builds a problem from settings and an attribute table.
// Rows flagged as holes are not part of the problem.
type Builder struct {
	Settings *settings.Settings
	Table    table.Table

	areaTotal *float64
	zoneAreas map[string]float64
}

// build is a prepared problem: extended settings, compiled equations and
// decision variables.
type build struct {
	offsets *codegen.Offsets
	gen     *codegen.Generator
	jobs    []job
}

func (b *Builder) prepare() (*build, error) {
	if b.Settings == nil || b.Table == nil {
		return nil, mosra.SettingsError("problem needs settings and a table")
	}
	if err := b.Settings.Validate(b.Table.ColumnExists); err != nil {
		return nil, err
	}
	m := newModel(b.Settings)
	jobs, err := m.synthesize(b.ConvertAreaUnits)
	if err != nil {
		return nil, err
	}
	s := m.s
	c, err := equation.NewCompiler(nil, s, s.Equations)
	if err != nil {
		return nil, err
	}
	if err = c.CompileAll(); err != nil {
		return nil, err
	}
	ix, err := eqindex.Build(c, s)
	if err != nil {
		return nil, err
	}
	cat, err := dimension.NewCatalog(b.Table, s.Dimensions, s.Options, b.selection())
	if err != nil {
		return nil, err
	}
	offsets := codegen.NewOffsets()
	for _, v := range s.Variables {
		if !v.HasBounds {
			tracer().Infof("warning: variable %s has no bounds, using [0, +inf)", v.Name)
		}
		if err = offsets.Declare(v); err != nil {
			return nil, err
		}
	}
	if err = offsets.Build(cat); err != nil {
		return nil, err
	}
	return &build{
		offsets: offsets,
		gen:     codegen.NewGenerator(c, ix, cat, b.Table, s, offsets),
		jobs:    jobs,
	}, nil
}

func (b *Builder) selection() string {
	return dimension.Selection(b.Table, "")
}

func (bl *build) run(sink codegen.Sink) error {
	for _, j := range bl.jobs {
		if _, err := bl.gen.Generate(j.eqn, j.seg, sink); err != nil {
			return err
		}
	}
	return nil
}

func bounds(v settings.Variable) (float64, float64) {
	if !v.HasBounds {
		return 0, math.Inf(1)
	}
	return v.Lower, v.Upper
}

// initialGuess starts a variable at zero, moved into its bounds.
func initialGuess(lower, upper float64) float64 {
	return math.Min(math.Max(0, lower), upper)
}

// MakeLp builds the problem as a linear program. Columns are named after
// decision variables and their dimension values, e.g. X_17_2 is the area
// of unit 17 allocated to the second option.
func (b *Builder) MakeLp() (*lp.Matrix, error) {
	bl, err := b.prepare()
	if err != nil {
		return nil, err
	}
	m := lp.NewMatrix()
	for i, e := range bl.offsets.Entries() {
		kind := lp.Real
		switch e.Type {
		case settings.DVInt:
			kind = lp.Int
		case settings.DVBinary:
			kind = lp.Binary
		}
		col, err := m.AddColumn(bl.offsets.Name(i), kind)
		if err != nil {
			return nil, err
		}
		lower, upper := bounds(bl.offsets.Declared(i))
		m.SetBounds(col, lower, upper)
	}
	if err = bl.run(codegen.NewLPSink(m, nil)); err != nil {
		return nil, err
	}
	tracer().Infof("LP with %d columns and %d rows", m.NumColumns(), len(m.Rows()))
	return m, nil
}

// MakeNL builds the problem as an AMPL .nl file. Sections are collected in
// temporary files in the configured directory (nl.tempdir) and written to
// out when complete.
func (b *Builder) MakeNL(out io.Writer) (nl.Stats, error) {
	bl, err := b.prepare()
	if err != nil {
		return nl.Stats{}, err
	}
	conf := mosra.Config()
	w, err := nl.NewWriter(conf.String("nl.tempdir"), conf.String("nl.prefix"))
	if err != nil {
		return nl.Stats{}, err
	}
	if err = bl.run(codegen.NewNLSink(w)); err != nil {
		w.Abort()
		return nl.Stats{}, err
	}
	discrete := 0
	for i, e := range bl.offsets.Entries() {
		lower, upper := bounds(bl.offsets.Declared(i))
		w.Bounds(lower, upper)
		w.Initial(i, initialGuess(lower, upper))
		if e.Type != settings.DVReal {
			discrete++
		}
	}
	w.Discrete(discrete)
	stats, err := w.Finish(out)
	if err != nil {
		return nl.Stats{}, err
	}
	tracer().Infof("NL with %d variables, %d constraints and %d objectives",
		stats.Variables, stats.Constraints, stats.Objectives)
	return stats, nil
}

// --- Area units -------------------------------------------------------------

// ConvertAreaUnits converts the value of an areal constraint to map units.
// unit is one of map_units, percent_of_total, percent_of_selected or
// percent_of_zone. Percentages of a zone refer to the area of units whose
// zone field mentions option; without a zone they refer to the total area.
// For integer decision variables the result is rounded down.
func (b *Builder) ConvertAreaUnits(value float64, unit, option, zone string) (float64, error) {
	var v float64
	switch strings.ToLower(unit) {
	case settings.PercentOfTotal, settings.PercentOfSelected:
		total, err := b.totalArea()
		if err != nil {
			return 0, err
		}
		v = total * value / 100
	case settings.PercentOfZone:
		if zone == "" {
			tracer().Infof("warning: %s without zone, using %s", settings.PercentOfZone, settings.PercentOfTotal)
			return b.ConvertAreaUnits(value, settings.PercentOfTotal, option, zone)
		}
		area, err := b.zoneArea(option, zone)
		if err != nil {
			return 0, err
		}
		v = area * value / 100
	default:
		v = value
	}
	if b.Settings.DVType == settings.DVInt {
		v = math.Floor(v)
	}
	return v, nil
}

func (b *Builder) totalArea() (float64, error) {
	if b.areaTotal == nil {
		a, err := b.sumArea(b.selection())
		if err != nil {
			return 0, err
		}
		b.areaTotal = &a
	}
	return *b.areaTotal, nil
}

func (b *Builder) zoneArea(option, zone string) (float64, error) {
	key := zone + "\x00" + option
	if a, ok := b.zoneAreas[key]; ok {
		return a, nil
	}
	where := dimension.Selection(b.Table, fmt.Sprintf("instr(%s, %s) > 0",
		table.Quote(zone), table.QuoteText(option)))
	a, err := b.sumArea(where)
	if err != nil {
		return 0, err
	}
	if b.zoneAreas == nil {
		b.zoneAreas = make(map[string]float64)
	}
	b.zoneAreas[key] = a
	return a, nil
}

func (b *Builder) sumArea(where string) (float64, error) {
	q := fmt.Sprintf("SELECT SUM(%s) FROM %s", table.Quote(b.Settings.AreaField), table.Quote(b.Table.Name()))
	if where != "" {
		q += " WHERE " + where
	}
	rows, err := b.Table.TableDataFetch(q)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || mosra.Equal(rows[0][0], mosra.Text("")) {
		return 0, nil // no units selected
	}
	a, err := mosra.AsFloat(rows[0][0])
	if err != nil {
		return 0, mosra.IOError(err, "area of %s", b.Table.Name())
	}
	return a, nil
}
