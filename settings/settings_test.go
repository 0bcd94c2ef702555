package settings

import (
	"math"
	"testing"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func koanfSettings(t *testing.T, m map[string]interface{}) *Settings {
	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(m, "."), nil))
	s, err := FromKoanf(k)
	require.NoError(t, err)
	return s
}

var lumass = map[string]interface{}{
	"PROBLEM.DVTYPE":          "DVTYPE_CONTINUOUS",
	"PROBLEM.AREA_FIELD":      "area",
	"PROBLEM.LAND_USE_FIELD":  "landuse",
	"CRITERIA.NUM_OPTIONS":    2,
	"CRITERIA.OPTIONS":        "A B",
	"CRITERIA.CRI_1":          "REVENUE rev_A rev_B",
	"CRITERIA.CRI_2":          "EROSION ero_A ero_B",
	"OBJECTIVES.AGGR_METHOD":  "WSUM",
	"OBJECTIVES.OBJ_1":        "max REVENUE 0.7",
	"OBJECTIVES.OBJ_2":        "min EROSION 0.3",
	"AREAL_CONSTRAINTS.AREAL_CONS_1": "A:zone >= 40 percent_of_zone",
	"AREAL_CONSTRAINTS.AREAL_CONS_2": "B <= 100 map_units",
	"CRITERIA_CONSTRAINTS.CRI_CONS_1": "EROSION total ero_A ero_B <= 500",
	"CRITERIA_CONSTRAINTS.CRI_CONS_2": "REVENUE B rev_B >= 20",
	"OBJECTIVE_CONSTRAINTS.OBJ_CONS_1": "EROSION <= 450",
}

func TestFromKoanf(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.settings")
	defer teardown()
	//
	s := koanfSettings(t, lumass)
	assert.Equal(t, DVReal, s.DVType)
	assert.Equal(t, "area", s.AreaField)
	assert.Equal(t, DefaultIDField, s.IDField)
	assert.Equal(t, []string{"A", "B"}, s.Options)
	assert.Equal(t, []string{"rev_A", "rev_B"}, s.Criteria["REVENUE"])
	assert.Equal(t, WSum, s.AggrMethod)
	require.Len(t, s.Objectives, 2)
	assert.Equal(t, Objective{Label: "OBJ_1", Criterion: "REVENUE", Sense: mosra.Maximize, Weight: 0.7}, s.Objectives[0])
	require.Len(t, s.ArealConstraints, 2)
	ac := s.ArealConstraints[0]
	assert.Equal(t, "AREAL_CONS_1_A:zone", ac.Label)
	assert.Equal(t, "A", ac.Option)
	assert.Equal(t, "zone", ac.Zone)
	assert.Equal(t, mosra.GreaterEqual, ac.Op)
	assert.Equal(t, PercentOfZone, ac.Unit)
	require.Len(t, s.CriteriaConstraints, 2)
	cc := s.CriteriaConstraints[0]
	assert.True(t, cc.IsTotal())
	assert.Equal(t, "EROSION_total_upper", cc.Label)
	assert.Equal(t, []string{"ero_A", "ero_B"}, cc.Fields)
	assert.Equal(t, "REVENUE_B_lower", s.CriteriaConstraints[1].Label)
	require.Len(t, s.ObjectiveConstraints, 1)
	assert.Equal(t, "OBJ_CONS_1_EROSION", s.ObjectiveConstraints[0].Label)
	assert.Equal(t, "nm_id", s.Dimensions["SDU"], "SDU dimension defaults to the id field")
	assert.NoError(t, s.Validate(nil))
}

func TestEquationSections(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.settings")
	defer teardown()
	//
	s := koanfSettings(t, map[string]interface{}{
		"criteria.options":        []interface{}{"A", "B"},
		"equations.profit":        "sum{SDU}(sum{OPTIONS}(price[OPTIONS] * X[SDU][OPTIONS]))",
		"dimensions.REGION":       "region",
		"parameters.price":        "price_A price_B",
		"parameters.limit":        "120",
		"scaling.price":           0.001,
		"variables.X":             "SDU OPTIONS 0 inf REAL",
		"variables.Y":             "REGION BINARY",
		"constraints.cap":         "profit <= 1000",
		"eqn_objectives.best":     "max profit",
	})
	assert.True(t, s.IsEquation("profit"))
	assert.True(t, s.IsDimension("REGION"))
	price := s.Parameters["price"]
	assert.Equal(t, []string{"price_A", "price_B"}, price.Columns)
	assert.Equal(t, 0.001, price.Scale)
	limit := s.Parameters["limit"]
	assert.True(t, limit.HasLiteral)
	assert.Equal(t, 120.0, limit.Literal)
	assert.Equal(t, 1.0, limit.Scale)
	n, ok := s.VariableArity("X")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	x, _ := s.Variable("X")
	assert.True(t, x.HasBounds)
	assert.True(t, math.IsInf(x.Upper, 1))
	y, _ := s.Variable("Y")
	assert.Equal(t, DVBinary, y.Type)
	assert.Equal(t, 1.0, y.Upper)
	require.Len(t, s.Constraints, 1)
	assert.Equal(t, mosra.LessEqual, s.Constraints[0].Op)
	require.Len(t, s.EqnObjectives, 1)
	assert.Equal(t, mosra.Maximize, s.EqnObjectives[0].Sense)
	idx, ok := s.OptionIndex("b")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.NoError(t, s.Validate(nil))
}

func TestParseHCL(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.settings")
	defer teardown()
	//
	src := `
problem {
  DVTYPE     = "DVTYPE_INTEGER"
  AREA_FIELD = "area"
}
criteria {
  OPTIONS = ["A", "B"]
  CRI_1   = "REVENUE rev_A rev_B"
}
objectives {
  AGGR_METHOD = "INTERACTIVE"
  OBJ_1       = "max REVENUE"
}
equations {
  total = "sum{SDU}(X[SDU][A])"
}
variables {
  X = ["SDU", "OPTIONS"]
}
`
	s, err := ParseHCL([]byte(src), "test.hcl")
	require.NoError(t, err)
	assert.Equal(t, DVInt, s.DVType)
	assert.Equal(t, Interactive, s.AggrMethod)
	assert.Equal(t, []string{"A", "B"}, s.Options)
	assert.Equal(t, 1.0, s.Objectives[0].Weight)
	assert.Equal(t, "sum{SDU}(X[SDU][A])", s.Equations["total"])
	x, ok := s.Variable("X")
	require.True(t, ok)
	assert.Equal(t, []string{"SDU", "OPTIONS"}, x.Dimensions)
	assert.False(t, x.HasBounds)
	//
	_, err = ParseHCL([]byte("criteria {\n  OPTIONS = \n}"), "broken.hcl")
	assert.True(t, mosra.IsSettingsError(err))
}

func TestSettingsErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.settings")
	defer teardown()
	//
	inputs := []Sections{
		{"criteria": {"NUM_OPTIONS": "3", "OPTIONS": "A B"}},
		{"objectives": {"OBJ_1": "best REVENUE"}},
		{"areal_constraints": {"AREAL_CONS_1": "A >= 10 hectares"}},
		{"criteria_constraints": {"CRI_CONS_1": "REVENUE total rev_A rev_B ~ 10"}},
		{"variables": {"X": "SDU 0"}},
		{"constraints": {"c": "eq <= ten"}},
		{"scaling": {"nope": "2"}},
	}
	for i, input := range inputs {
		if _, err := Parse(input); !mosra.IsSettingsError(err) {
			t.Errorf("test %d: expected settings error, got %v", i, err)
		}
	}
}

func TestValidate(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.settings")
	defer teardown()
	//
	s := koanfSettings(t, lumass)
	columns := map[string]int{"nm_id": 0, "area": 1, "rev_A": 2, "rev_B": 3, "ero_A": 4, "ero_B": 5}
	exists := func(c string) int {
		if i, ok := columns[c]; ok {
			return i
		}
		return -1
	}
	err := s.Validate(exists)
	assert.True(t, mosra.IsSettingsError(err), "zone column is missing")
	columns["zone"] = 6
	assert.NoError(t, s.Validate(exists))
	s.Criteria["REVENUE"] = []string{"rev_A"}
	assert.True(t, mosra.IsSettingsError(s.Validate(exists)))
}
