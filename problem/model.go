package problem

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/codegen"
	"github.com/npillmayer/mosra/dimension"
	"github.com/npillmayer/mosra/settings"
)

// AreaParameter is the name of the built-in parameter holding the area of
// a spatial unit.
const AreaParameter = "AREA"

// job is an equation to generate, in build order.
type job struct {
	eqn string
	seg codegen.Segment
}

// model extends a copy of the settings by the equations, parameters and
// variables of the classic land-use model.
type model struct {
	s    *settings.Settings
	x, b string // areal and binary decision variables
	sdu  string
	jobs []job
}

// converter converts a user value of an areal constraint to map units.
type converter func(value float64, unit, option, zone string) (float64, error)

func newModel(src *settings.Settings) *model {
	s := *src
	s.Equations = make(map[string]string, len(src.Equations))
	for k, v := range src.Equations {
		s.Equations[k] = v
	}
	s.Dimensions = make(map[string]string, len(src.Dimensions))
	for k, v := range src.Dimensions {
		s.Dimensions[k] = v
	}
	s.Parameters = make(map[string]settings.Parameter, len(src.Parameters))
	for k, v := range src.Parameters {
		s.Parameters[k] = v
	}
	s.Variables = append([]settings.Variable(nil), src.Variables...)
	conf := mosra.Config()
	return &model{
		s:   &s,
		x:   conf.String("problem.arealvar"),
		b:   conf.String("problem.binaryvar"),
		sdu: s.SDUDimension,
	}
}

func (m *model) hasClassic() bool {
	s := m.s
	return s.HasClassicModel() || len(s.ArealConstraints) > 0 ||
		len(s.CriteriaConstraints) > 0 || len(s.ObjectiveConstraints) > 0
}

// synthesize creates the build jobs in the order of a classic LP build:
// objective, objective constraints (interactive mode only), areal
// constraints, criteria constraints, implicit areal constraints, and
// finally the constraints given as equations.
func (m *model) synthesize(convert converter) ([]job, error) {
	if m.hasClassic() {
		if err := m.declare(); err != nil {
			return nil, err
		}
	}
	if err := m.objective(); err != nil {
		return nil, err
	}
	if m.s.AggrMethod == settings.Interactive {
		for i, oc := range m.s.ObjectiveConstraints {
			name := m.equation(fmt.Sprintf("__objcons_%d", i), m.criterionSum(oc.Criterion))
			m.constraint(name, oc.Label, oc.Op, oc.Value)
		}
	}
	for i, ac := range m.s.ArealConstraints {
		if err := m.arealConstraint(i, ac, convert); err != nil {
			return nil, err
		}
	}
	for i, cc := range m.s.CriteriaConstraints {
		m.criterionConstraint(i, cc)
	}
	if m.hasClassic() {
		m.implicitConstraints()
	}
	for _, c := range m.s.Constraints {
		m.constraint(c.Equation, c.Name, c.Op, c.RHS)
	}
	tracer().Infof("%d equations to generate", len(m.jobs))
	return m.jobs, nil
}

func (m *model) declare() error {
	if m.sdu == "" {
		return mosra.SettingsError("no dimension for spatial units configured")
	}
	for _, name := range []string{m.x, m.b} {
		if _, ok := m.s.Variable(name); ok {
			return mosra.SettingsError("variable %s is reserved for the land-use model", name)
		}
	}
	x := settings.Variable{
		Name:       m.x,
		Dimensions: []string{m.sdu, dimension.Options},
		Upper:      math.Inf(1),
		HasBounds:  true,
		Type:       m.s.DVType,
	}
	if x.Type == settings.DVBinary {
		x.Upper = 1
	}
	m.s.Variables = append(m.s.Variables, x, settings.Variable{
		Name:       m.b,
		Dimensions: []string{m.sdu},
		Upper:      1,
		HasBounds:  true,
		Type:       settings.DVBinary,
	})
	if _, ok := m.s.Parameters[AreaParameter]; ok {
		tracer().Infof("warning: parameter %s is replaced by area field %s", AreaParameter, m.s.AreaField)
	}
	m.s.Parameters[AreaParameter] = settings.Parameter{
		Name:    AreaParameter,
		Columns: []string{m.s.AreaField},
		Scale:   1,
	}
	for cri, fields := range m.s.Criteria {
		name := criterionParameter(cri)
		m.s.Parameters[name] = settings.Parameter{Name: name, Columns: fields, Scale: 1}
	}
	return nil
}

func criterionParameter(cri string) string {
	return "__cri_" + ident(cri)
}

// ident maps a name to an identifier of the equation language.
func ident(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return '_'
	}, name)
}

// number formats a constant for equation text.
func number(v float64) string {
	s := strconv.FormatFloat(math.Abs(v), 'g', -1, 64)
	if v < 0 {
		return "(0 - " + s + ")"
	}
	return s
}

func (m *model) equation(name, text string) string {
	tracer().Debugf("%s = %s", name, text)
	m.s.Equations[name] = text
	return name
}

func (m *model) constraint(eqn, label string, op mosra.Comparison, rhs float64) {
	m.jobs = append(m.jobs, job{eqn: eqn, seg: codegen.Segment{
		Kind:  codegen.ConstraintSegment,
		Label: label,
		Op:    op,
		RHS:   rhs,
	}})
}

// xv is the areal decision variable of the current spatial unit and
// option o.
func (m *model) xv(o string) string {
	return fmt.Sprintf("%s[%s][%s]", m.x, m.sdu, o)
}

// criterionSum is the total of a criterion over all units and options.
// Integer decision variables take the integral part of performance values,
// binary ones the integral part times the area.
func (m *model) criterionSum(cri string) string {
	c := criterionParameter(cri) + "[OPTIONS]"
	switch m.s.DVType {
	case settings.DVInt:
		c = "floor(" + c + ")"
	case settings.DVBinary:
		c = "floor(" + c + ") * floor(" + AreaParameter + ")"
	}
	return fmt.Sprintf("sum{%s}(sum{OPTIONS}(%s * %s))", m.sdu, c, m.xv("OPTIONS"))
}

type objectiveTerm struct {
	eqn    string
	sense  mosra.Sense
	weight float64
}

// objective combines all objectives into a single one. Objectives are
// aligned to the sense of the first objective; weights apply to criteria
// objectives under WSUM and to equation objectives always.
func (m *model) objective() error {
	var terms []objectiveTerm
	for i, obj := range m.s.Objectives {
		w := 1.0
		if m.s.AggrMethod == settings.WSum && obj.Weight != 0 {
			w = obj.Weight
		}
		name := m.equation(fmt.Sprintf("__obj_%d", i), m.criterionSum(obj.Criterion))
		terms = append(terms, objectiveTerm{eqn: name, sense: obj.Sense, weight: w})
	}
	for _, obj := range m.s.EqnObjectives {
		if !m.s.IsEquation(obj.Equation) {
			return mosra.SettingsError("objective %s: unknown equation %s", obj.Name, obj.Equation)
		}
		w := obj.Weight
		if w == 0 {
			w = 1
		}
		terms = append(terms, objectiveTerm{eqn: obj.Equation, sense: obj.Sense, weight: w})
	}
	if len(terms) == 0 {
		tracer().Infof("warning: problem has no objective")
		return nil
	}
	sense := terms[0].sense
	var text strings.Builder
	for i, t := range terms {
		w := t.weight
		if t.sense != sense {
			w = -w
		}
		if i > 0 {
			text.WriteString(" + ")
		}
		if w == 1 {
			text.WriteString(t.eqn)
		} else {
			fmt.Fprintf(&text, "%s * %s", number(w), t.eqn)
		}
	}
	name := m.equation("__objective", text.String())
	m.jobs = append(m.jobs, job{eqn: name, seg: codegen.Segment{
		Kind:   codegen.ObjectiveSegment,
		Label:  "objective",
		Sense:  sense,
		Weight: 1,
	}})
	return nil
}

// zoneIndicator creates a parameter which is 1 for units whose zone field
// mentions an option.
func (m *model) zoneIndicator(name, field string) string {
	cols := make([]string, len(m.s.Options))
	for i := range cols {
		cols[i] = field
	}
	m.s.Parameters[name] = settings.Parameter{
		Name:     name,
		Columns:  cols,
		Scale:    1,
		Contains: append([]string(nil), m.s.Options...),
	}
	return name
}

func (m *model) arealConstraint(i int, ac settings.ArealConstraint, convert converter) error {
	k, _ := m.s.OptionIndex(ac.Option)
	opt := strconv.Itoa(k)
	c := "1"
	if m.s.DVType == settings.DVBinary {
		c = AreaParameter
	}
	label := ac.Label
	if ac.Zone != "" {
		z := m.zoneIndicator(fmt.Sprintf("__zone_areal_%d", i), ac.Zone)
		c = fmt.Sprintf("%s * %s[%s]", c, z, opt)
		label += "_in"
	}
	rhs, err := convert(ac.Value, ac.Unit, ac.Option, ac.Zone)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("sum{%s}(%s * %s)", m.sdu, c, m.xv(opt))
	name := m.equation(fmt.Sprintf("__areal_%d", i), text)
	m.constraint(name, label, ac.Op, rhs)
	return nil
}

func (m *model) criterionConstraint(i int, cc settings.CriterionConstraint) {
	par := fmt.Sprintf("__crifields_%d", i)
	m.s.Parameters[par] = settings.Parameter{Name: par, Columns: cc.Fields, Scale: 1}
	opt, c := "OPTIONS", par+"[OPTIONS]"
	if !cc.IsTotal() {
		k, _ := m.s.OptionIndex(cc.Option)
		opt, c = strconv.Itoa(k), par
	}
	if m.s.DVType == settings.DVBinary {
		c = AreaParameter + " * " + c
	}
	if cc.Zone != "" {
		z := m.zoneIndicator(fmt.Sprintf("__zone_cricons_%d", i), cc.Zone)
		c = fmt.Sprintf("%s * %s[%s]", c, z, opt)
	}
	var text string
	if cc.IsTotal() {
		text = fmt.Sprintf("sum{%s}(sum{OPTIONS}(%s * %s))", m.sdu, c, m.xv(opt))
	} else {
		text = fmt.Sprintf("sum{%s}(%s * %s)", m.sdu, c, m.xv(opt))
	}
	name := m.equation(fmt.Sprintf("__cricons_%d", i), text)
	m.constraint(name, cc.Label, cc.Op, cc.RHS)
}

// implicitConstraints ties the areal decision variables of a unit to its
// area: a unit is either allocated completely or not at all.
//
//	SUM(X[i][r]) - A[i] * b[i] >= 0
//	SUM(X[i][r]) - A[i] * b[i] <= 0
func (m *model) implicitConstraints() {
	a := AreaParameter
	if m.s.DVType == settings.DVInt {
		a = "floor(" + a + ")"
	}
	x := m.xv("OPTIONS")
	if m.s.DVType == settings.DVBinary {
		x = a + " * " + x
	}
	text := fmt.Sprintf("sum{OPTIONS}(%s) - %s * %s[%s]", x, a, m.b, m.sdu)
	name := m.equation("__feature", text)
	m.constraint(name, "Feature_%sa", mosra.GreaterEqual, 0)
	m.constraint(name, "Feature_%sb", mosra.LessEqual, 0)
}
