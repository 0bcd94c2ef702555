package settings

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/npillmayer/mosra"
)

// DVType is the type of the decision variables of a problem.
type DVType int8

// Decision variable types
const (
	DVReal DVType = iota
	DVInt
	DVBinary
)

func (t DVType) String() string {
	switch t {
	case DVInt:
		return "DV_INTEGER"
	case DVBinary:
		return "DV_BINARY"
	}
	return "DV_REAL"
}

// AggrMethod is the scalarisation method for multiple objectives.
type AggrMethod int8

// Scalarisation methods
const (
	WSum AggrMethod = iota
	Interactive
)

// Area units of areal constraints
const (
	MapUnits          = "map_units"
	PercentOfTotal    = "percent_of_total"
	PercentOfSelected = "percent_of_selected"
	PercentOfZone     = "percent_of_zone"
)

// Objective is an objective over a criterion.
type Objective struct {
	Label     string
	Criterion string
	Sense     mosra.Sense
	Weight    float64
}

// ArealConstraint restricts the area allocated to an option, possibly
// within a zone.
type ArealConstraint struct {
	Label  string
	Option string
	Zone   string // zone field, may be empty
	Op     mosra.Comparison
	Value  float64
	Unit   string
}

// CriterionConstraint restricts the total of a criterion, either for a
// single option or for all options ("total").
type CriterionConstraint struct {
	Label     string
	Criterion string
	Option    string // option name or "total"
	Zone      string
	Fields    []string
	Op        mosra.Comparison
	RHS       float64
}

// IsTotal is true for constraints over all options.
func (c CriterionConstraint) IsTotal() bool {
	return strings.EqualFold(c.Option, "total")
}

// ObjectiveConstraint restricts the value of an objective.
type ObjectiveConstraint struct {
	Label     string
	Criterion string
	Op        mosra.Comparison
	Value     float64
}

// Parameter is a named value of the modelling language. It is read from
// one column, from one column per option, or it is a literal.
//
// An indicator parameter has Contains set, one string per option. Its value
// is 1 where the text of the option's column contains the option's string,
// and 0 elsewhere.
type Parameter struct {
	Name       string
	Columns    []string
	Literal    float64
	HasLiteral bool
	Scale      float64
	Contains   []string
}

// Variable is a decision variable of the modelling language.
type Variable struct {
	Name       string
	Dimensions []string
	Lower      float64
	Upper      float64
	HasBounds  bool
	Type       DVType
}

// Constraint is an equation bounded by a right hand side.
type Constraint struct {
	Name     string
	Equation string
	Op       mosra.Comparison
	RHS      float64
}

// EqnObjective is an objective given by an equation.
type EqnObjective struct {
	Name     string
	Equation string
	Sense    mosra.Sense
	Weight   float64
}

// Settings describes an allocation problem.
type Settings struct {
	DVType         DVType
	CriterionLayer string
	LandUseField   string
	AreaField      string
	IDField        string
	SDUDimension   string // dimension iterating over spatial units
	//
	Options    []string
	Criteria   map[string][]string // criterion → one field per option
	EvalFields map[string][]string
	//
	AggrMethod           AggrMethod
	Objectives           []Objective
	ArealConstraints     []ArealConstraint
	CriteriaConstraints  []CriterionConstraint
	ObjectiveConstraints []ObjectiveConstraint
	//
	Equations     map[string]string
	Dimensions    map[string]string
	Parameters    map[string]Parameter
	Variables     []Variable
	Constraints   []Constraint
	EqnObjectives []EqnObjective
}

// DefaultIDField is the column identifying spatial units, if the PROBLEM
// section does not name one.
const DefaultIDField = "nm_id"

// New creates empty settings.
func New() *Settings {
	return &Settings{
		IDField:    DefaultIDField,
		Criteria:   make(map[string][]string),
		EvalFields: make(map[string][]string),
		Equations:  make(map[string]string),
		Dimensions: make(map[string]string),
		Parameters: make(map[string]Parameter),
	}
}

// Sections are raw settings: lower-case section name → key → value.
type Sections map[string]map[string]string

// Parse interprets raw sections. Unknown sections and keys are ignored.
func Parse(sections Sections) (*Settings, error) {
	s := New()
	p := &sectionParser{s: s}
	steps := []struct {
		name string
		fn   func(key, value string) error
	}{
		{"problem", p.problem},
		{"criteria", p.criteria},
		{"objectives", p.objectives},
		{"areal_constraints", p.arealConstraint},
		{"criteria_constraints", p.criterionConstraint},
		{"objective_constraints", p.objectiveConstraint},
		{"equations", p.equation},
		{"dimensions", p.dimension},
		{"parameters", p.parameter},
		{"scaling", p.scaling},
		{"variables", p.variable},
		{"constraints", p.constraint},
		{"eqn_objectives", p.eqnObjective},
	}
	for _, step := range steps {
		section := sections[step.name]
		for _, key := range sortedKeys(section) {
			if err := step.fn(key, strings.TrimSpace(section[key])); err != nil {
				return nil, err
			}
		}
	}
	s.SDUDimension = mosra.Config().String("problem.sdudim")
	if _, ok := s.Dimensions[s.SDUDimension]; !ok && s.SDUDimension != "" {
		s.Dimensions[s.SDUDimension] = s.IDField
	}
	if p.numOptions > 0 && p.numOptions != len(s.Options) {
		return nil, mosra.SettingsError("NUM_OPTIONS is %d, but %d options are listed",
			p.numOptions, len(s.Options))
	}
	tracer().Infof("problem with %d options, %d criteria, %d objectives, %d equations",
		len(s.Options), len(s.Criteria), len(s.Objectives)+len(s.EqnObjectives), len(s.Equations))
	return s, nil
}

type sectionParser struct {
	s          *Settings
	numOptions int
}

func (p *sectionParser) problem(key, value string) error {
	switch strings.ToUpper(key) {
	case "DVTYPE":
		v := strings.ToUpper(value)
		switch {
		case strings.Contains(v, "BINARY"):
			p.s.DVType = DVBinary
		case strings.Contains(v, "INT"):
			p.s.DVType = DVInt
		default:
			p.s.DVType = DVReal
		}
	case "CRITERION_LAYER":
		p.s.CriterionLayer = value
	case "LAND_USE_FIELD":
		p.s.LandUseField = value
	case "AREA_FIELD":
		p.s.AreaField = value
	case "ID_FIELD":
		p.s.IDField = value
	}
	return nil
}

func (p *sectionParser) criteria(key, value string) error {
	k := strings.ToUpper(key)
	switch {
	case k == "NUM_OPTIONS":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return mosra.SettingsError("NUM_OPTIONS: invalid number %q", value)
		}
		p.numOptions = n
	case k == "OPTIONS":
		p.s.Options = strings.Fields(value)
	case strings.HasPrefix(k, "CRI_"):
		fields := strings.Fields(value)
		if len(fields) < 2 {
			return mosra.SettingsError("%s: criterion needs a name and fields", key)
		}
		p.s.Criteria[fields[0]] = fields[1:]
	case strings.HasPrefix(k, "EVAL_"):
		fields := strings.Fields(value)
		if len(fields) < 2 {
			return mosra.SettingsError("%s: evaluation needs a criterion and fields", key)
		}
		p.s.EvalFields[fields[0]] = fields[1:]
	}
	return nil
}

func (p *sectionParser) objectives(key, value string) error {
	k := strings.ToUpper(key)
	switch {
	case k == "AGGR_METHOD":
		if strings.EqualFold(value, "WSUM") {
			p.s.AggrMethod = WSum
		} else {
			p.s.AggrMethod = Interactive
		}
	case strings.HasPrefix(k, "OBJ_"):
		fields := strings.Fields(value)
		if len(fields) < 2 {
			return mosra.SettingsError("%s: expected '<min|max> <criterion> [weight]'", key)
		}
		sense, err := mosra.SenseFromString(fields[0])
		if err != nil {
			return mosra.SettingsError("%s: %v", key, err)
		}
		obj := Objective{Label: key, Criterion: fields[1], Sense: sense, Weight: 1}
		if len(fields) > 2 {
			if obj.Weight, err = strconv.ParseFloat(fields[2], 64); err != nil {
				return mosra.SettingsError("%s: invalid weight %q", key, fields[2])
			}
		}
		p.s.Objectives = append(p.s.Objectives, obj)
	}
	return nil
}

// optionZone splits "opt:zone".
func optionZone(spec string) (string, string) {
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

func (p *sectionParser) arealConstraint(key, value string) error {
	if !strings.HasPrefix(strings.ToUpper(key), "AREAL_CONS_") {
		return nil
	}
	fields := strings.Fields(value)
	if len(fields) != 4 {
		return mosra.SettingsError("%s: expected '<option[:zone]> <op> <value> <unit>'", key)
	}
	op, err := mosra.ComparisonFromString(fields[1])
	if err != nil {
		return mosra.SettingsError("%s: %v", key, err)
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return mosra.SettingsError("%s: invalid value %q", key, fields[2])
	}
	unit := strings.ToLower(fields[3])
	switch unit {
	case MapUnits, PercentOfTotal, PercentOfSelected, PercentOfZone:
	default:
		return mosra.SettingsError("%s: unknown area unit %q", key, fields[3])
	}
	opt, zone := optionZone(fields[0])
	p.s.ArealConstraints = append(p.s.ArealConstraints, ArealConstraint{
		Label: key + "_" + fields[0], Option: opt, Zone: zone, Op: op, Value: v, Unit: unit,
	})
	return nil
}

func (p *sectionParser) criterionConstraint(key, value string) error {
	if !strings.HasPrefix(strings.ToUpper(key), "CRI_CONS_") {
		return nil
	}
	fields := strings.Fields(value)
	if len(fields) < 5 {
		return mosra.SettingsError("%s: expected '<criterion> <option|total> <fields...> <op> <rhs>'", key)
	}
	n := len(fields)
	op, err := mosra.ComparisonFromString(fields[n-2])
	if err != nil {
		return mosra.SettingsError("%s: %v", key, err)
	}
	rhs, err := strconv.ParseFloat(fields[n-1], 64)
	if err != nil {
		return mosra.SettingsError("%s: invalid value %q", key, fields[n-1])
	}
	opt, zone := optionZone(fields[1])
	c := CriterionConstraint{Criterion: fields[0], Option: opt, Zone: zone,
		Fields: fields[2 : n-2], Op: op, RHS: rhs}
	c.Label = c.Criterion + "_" + fields[1] + "_" + op.Label()
	p.s.CriteriaConstraints = append(p.s.CriteriaConstraints, c)
	return nil
}

func (p *sectionParser) objectiveConstraint(key, value string) error {
	if !strings.HasPrefix(strings.ToUpper(key), "OBJ_CONS_") {
		return nil
	}
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return mosra.SettingsError("%s: expected '<criterion> <op> <value>'", key)
	}
	op, err := mosra.ComparisonFromString(fields[1])
	if err != nil {
		return mosra.SettingsError("%s: %v", key, err)
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return mosra.SettingsError("%s: invalid value %q", key, fields[2])
	}
	p.s.ObjectiveConstraints = append(p.s.ObjectiveConstraints, ObjectiveConstraint{
		Label: key + "_" + fields[0], Criterion: fields[0], Op: op, Value: v,
	})
	return nil
}

func (p *sectionParser) equation(key, value string) error {
	if value == "" {
		return mosra.SettingsError("equation %s is empty", key)
	}
	p.s.Equations[key] = value
	return nil
}

func (p *sectionParser) dimension(key, value string) error {
	if len(strings.Fields(value)) != 1 {
		return mosra.SettingsError("dimension %s: expected a single column, got %q", key, value)
	}
	p.s.Dimensions[key] = value
	return nil
}

func (p *sectionParser) parameter(key, value string) error {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return mosra.SettingsError("parameter %s has no columns", key)
	}
	par := p.s.Parameters[key]
	par.Name = key
	if par.Scale == 0 {
		par.Scale = 1
	}
	if v, err := strconv.ParseFloat(fields[0], 64); err == nil && len(fields) == 1 {
		par.Literal, par.HasLiteral = v, true
	} else {
		par.Columns = fields
	}
	p.s.Parameters[key] = par
	return nil
}

// scaling runs after the parameters section.
func (p *sectionParser) scaling(key, value string) error {
	par, ok := p.s.Parameters[key]
	if !ok {
		return mosra.SettingsError("scaling for unknown parameter %s", key)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return mosra.SettingsError("scaling of %s: invalid factor %q", key, value)
	}
	par.Scale = f
	p.s.Parameters[key] = par
	return nil
}

func (p *sectionParser) variable(key, value string) error {
	v := Variable{Name: key, Lower: 0, Upper: math.Inf(1), Type: DVReal}
	var bounds []float64
	for _, f := range strings.Fields(value) {
		switch strings.ToUpper(f) {
		case "REAL":
			v.Type = DVReal
			continue
		case "INT", "INTEGER":
			v.Type = DVInt
			continue
		case "BINARY":
			v.Type = DVBinary
			continue
		}
		if b, err := parseBound(f); err == nil {
			bounds = append(bounds, b)
		} else if len(bounds) == 0 {
			v.Dimensions = append(v.Dimensions, f)
		} else {
			return mosra.SettingsError("variable %s: unexpected %q after bounds", key, f)
		}
	}
	switch len(bounds) {
	case 0:
	case 2:
		v.Lower, v.Upper, v.HasBounds = bounds[0], bounds[1], true
	default:
		return mosra.SettingsError("variable %s: expected lower and upper bound", key)
	}
	if v.Type == DVBinary {
		v.Lower, v.Upper, v.HasBounds = 0, 1, true
	}
	p.s.Variables = append(p.s.Variables, v)
	return nil
}

func parseBound(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func (p *sectionParser) constraint(key, value string) error {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return mosra.SettingsError("constraint %s: expected '<equation> <op> <rhs>'", key)
	}
	op, err := mosra.ComparisonFromString(fields[1])
	if err != nil {
		return mosra.SettingsError("constraint %s: %v", key, err)
	}
	rhs, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return mosra.SettingsError("constraint %s: invalid value %q", key, fields[2])
	}
	p.s.Constraints = append(p.s.Constraints, Constraint{Name: key, Equation: fields[0], Op: op, RHS: rhs})
	return nil
}

func (p *sectionParser) eqnObjective(key, value string) error {
	fields := strings.Fields(value)
	if len(fields) < 2 || len(fields) > 3 {
		return mosra.SettingsError("objective %s: expected '<min|max> <equation> [weight]'", key)
	}
	sense, err := mosra.SenseFromString(fields[0])
	if err != nil {
		return mosra.SettingsError("objective %s: %v", key, err)
	}
	obj := EqnObjective{Name: key, Equation: fields[1], Sense: sense, Weight: 1}
	if len(fields) == 3 {
		if obj.Weight, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return mosra.SettingsError("objective %s: invalid weight %q", key, fields[2])
		}
	}
	p.s.EqnObjectives = append(p.s.EqnObjectives, obj)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Lookups ---------------------------------------------------------------

// OptionIndex returns the position of an option, ignoring case.
func (s *Settings) OptionIndex(name string) (int, bool) {
	for i, o := range s.Options {
		if strings.EqualFold(o, name) {
			return i, true
		}
	}
	return -1, false
}

// Variable returns a decision variable by name.
func (s *Settings) Variable(name string) (Variable, bool) {
	for _, v := range s.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// IsEquation is part of interface equation.Symbols.
func (s *Settings) IsEquation(name string) bool {
	_, ok := s.Equations[name]
	return ok
}

// IsParameter is part of interface equation.Symbols.
func (s *Settings) IsParameter(name string) bool {
	_, ok := s.Parameters[name]
	return ok
}

// VariableArity is part of interface equation.Symbols.
func (s *Settings) VariableArity(name string) (int, bool) {
	v, ok := s.Variable(name)
	return len(v.Dimensions), ok
}

// IsDimension is part of interface equation.Symbols.
func (s *Settings) IsDimension(name string) bool {
	_, ok := s.Dimensions[name]
	return ok
}
