package problem

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/lp"
	"github.com/npillmayer/mosra/settings"
	"github.com/npillmayer/mosra/table"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func landTable(t *testing.T) *table.SQLite {
	tbl, err := table.Memory("land",
		[]string{"nm_id", "area", "rev_A", "rev_B", "zone", "nm_hole"},
		[]mosra.ValueType{mosra.IntType, mosra.DoubleType, mosra.DoubleType, mosra.DoubleType,
			mosra.TextType, mosra.IntType},
		[]table.Row{
			{mosra.Int(1), mosra.Double(10), mosra.Double(2), mosra.Double(3), mosra.Text("A"), mosra.Int(0)},
			{mosra.Int(2), mosra.Double(20), mosra.Double(4), mosra.Double(5), mosra.Text("A B"), mosra.Int(0)},
			{mosra.Int(3), mosra.Double(99), mosra.Double(9), mosra.Double(9), mosra.Text("B"), mosra.Int(1)},
		})
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func landSettings(t *testing.T, extra settings.Sections) *settings.Settings {
	sections := settings.Sections{
		"problem":    {"DVTYPE": "DV_REAL", "AREA_FIELD": "area"},
		"criteria":   {"OPTIONS": "A B", "CRI_1": "REVENUE rev_A rev_B"},
		"objectives": {"AGGR_METHOD": "WSUM", "OBJ_1": "max REVENUE"},
	}
	for name, sec := range extra {
		if sections[name] == nil {
			sections[name] = make(map[string]string)
		}
		for k, v := range sec {
			sections[name][k] = v
		}
	}
	s, err := settings.Parse(sections)
	require.NoError(t, err)
	return s
}

func TestMakeLpClassic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	b := &Builder{Settings: landSettings(t, nil), Table: landTable(t)}
	m, err := b.MakeLp()
	require.NoError(t, err)
	names := make([]string, m.NumColumns())
	for i, c := range m.Columns() {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"X_1_1", "X_1_2", "X_2_1", "X_2_2", "b_1", "b_2"}, names)
	assert.Equal(t, lp.Binary, m.Columns()[4].Kind)
	obj, sense := m.Objective()
	assert.Equal(t, mosra.Maximize, sense)
	assert.Equal(t, map[int]float64{0: 2, 1: 3, 2: 4, 3: 5}, obj)
	//
	require.Len(t, m.Rows(), 4)
	rows := m.Rows()
	assert.Equal(t, "Feature_1a", rows[0].Name)
	assert.Equal(t, map[int]float64{0: 1, 1: 1, 4: -10}, rows[0].Coeffs)
	assert.Equal(t, lp.GE, rows[0].Op)
	assert.Equal(t, "Feature_2b", rows[3].Name)
	assert.Equal(t, map[int]float64{2: 1, 3: 1, 5: -20}, rows[3].Coeffs)
	assert.Equal(t, lp.LE, rows[3].Op)
}

func TestMakeLpConstraints(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	s := landSettings(t, settings.Sections{
		"areal_constraints": {
			"AREAL_CONS_1": "A >= 50 percent_of_total",
			"AREAL_CONS_2": "B:zone <= 100 percent_of_zone",
		},
		"criteria_constraints": {"CRI_CONS_1": "REVENUE total rev_A rev_B <= 200"},
	})
	b := &Builder{Settings: s, Table: landTable(t)}
	m, err := b.MakeLp()
	require.NoError(t, err)
	rows := m.Rows()
	require.Len(t, rows, 7)
	//
	assert.Equal(t, "AREAL_CONS_1_A", rows[0].Name)
	assert.Equal(t, map[int]float64{0: 1, 2: 1}, rows[0].Coeffs)
	assert.Equal(t, 15.0, rows[0].RHS)
	assert.Equal(t, "AREAL_CONS_2_B:zone_in", rows[1].Name)
	assert.Equal(t, map[int]float64{3: 1}, rows[1].Coeffs, "only units of zone B count")
	assert.Equal(t, 20.0, rows[1].RHS)
	assert.Equal(t, "REVENUE_total_upper", rows[2].Name)
	assert.Equal(t, map[int]float64{0: 2, 1: 3, 2: 4, 3: 5}, rows[2].Coeffs)
	//
	x := []float64{0, 10, 20, 0, 1, 1}
	assert.True(t, m.Feasible(x, 1e-9))
	assert.Equal(t, 110.0, m.ObjectiveValue(x))
	assert.False(t, m.Feasible([]float64{0, 10, 0, 0, 1, 0}, 1e-9))
}

func TestMakeLpEquations(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	s := landSettings(t, settings.Sections{
		"equations": {
			"cost":  "sum{SDU}(0.5 * Y[SDU])",
			"cover": "Y[SDU] - AREA",
		},
		"variables":      {"Y": "SDU 0 100"},
		"constraints":    {"cover_limit": "cover <= 0"},
		"eqn_objectives": {"min_cost": "min cost 2"},
	})
	b := &Builder{Settings: s, Table: landTable(t)}
	m, err := b.MakeLp()
	require.NoError(t, err)
	col, ok := m.Column("Y_2")
	require.True(t, ok)
	assert.Equal(t, 100.0, m.Columns()[col].Upper)
	obj, _ := m.Objective()
	assert.Equal(t, -1.0, obj[col], "minimized cost is negated and weighted")
	last := m.Rows()[len(m.Rows())-1]
	assert.Equal(t, "cover_limit_2", last.Name)
	assert.Equal(t, 20.0, last.RHS)
}

func TestMakeLpErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	s := landSettings(t, settings.Sections{
		"equations":   {"sq": "sum{SDU}(X[SDU][A] * X[SDU][B])"},
		"constraints": {"sq_limit": "sq <= 1"},
	})
	_, err := (&Builder{Settings: s, Table: landTable(t)}).MakeLp()
	assert.True(t, mosra.IsDimensionError(err), "products of variables are not linear")
	//
	s = landSettings(t, settings.Sections{"problem": {"AREA_FIELD": "surface"}})
	_, err = (&Builder{Settings: s, Table: landTable(t)}).MakeLp()
	assert.True(t, mosra.IsSettingsError(err))
	//
	s = landSettings(t, settings.Sections{"variables": {"X": "SDU"}})
	_, err = (&Builder{Settings: s, Table: landTable(t)}).MakeLp()
	assert.True(t, mosra.IsSettingsError(err), "X is reserved")
}

func TestMakeNL(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	dir := t.TempDir()
	require.NoError(t, mosra.Config().Load(confmap.Provider(map[string]interface{}{
		"nl.tempdir": dir,
	}, "."), nil))
	b := &Builder{Settings: landSettings(t, nil), Table: landTable(t)}
	var out bytes.Buffer
	stats, err := b.MakeNL(&out)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Variables)
	assert.Equal(t, 4, stats.Constraints)
	assert.Equal(t, 1, stats.Objectives)
	assert.Equal(t, 2, stats.Discrete)
	assert.Equal(t, 4, stats.GradientNZ, "objective refers to every areal variable")
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "g3 "))
	assert.Contains(t, text, "O0 1\n")
	assert.Contains(t, text, "G0 4\n")
	assert.Contains(t, text, "\nx6\n0 0\n1 0\n", "every variable starts at its initial guess")
}

func TestInitialGuess(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	inputs := [][2]float64{
		{0, math.Inf(1)},
		{2, 5},
		{-3, -1},
		{math.Inf(-1), math.Inf(1)},
	}
	outputs := []float64{0, 2, -1, 0}
	for i, in := range inputs {
		if x := initialGuess(in[0], in[1]); x != outputs[i] {
			t.Errorf("test %d: expected initial guess %g, got %g", i, outputs[i], x)
		}
	}
}

func TestConvertAreaUnits(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.problem")
	defer teardown()
	//
	b := &Builder{Settings: landSettings(t, nil), Table: landTable(t)}
	inputs := []struct {
		value        float64
		unit         string
		option, zone string
	}{
		{7, settings.MapUnits, "", ""},
		{50, settings.PercentOfTotal, "", ""},
		{10, settings.PercentOfSelected, "", ""},
		{50, settings.PercentOfZone, "A", "zone"},
		{50, settings.PercentOfZone, "B", "zone"},
		{50, settings.PercentOfZone, "B", ""},
	}
	outputs := []float64{7, 15, 3, 15, 10, 15}
	for i, in := range inputs {
		v, err := b.ConvertAreaUnits(in.value, in.unit, in.option, in.zone)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
		} else if v != outputs[i] {
			t.Errorf("test %d: expected %g, got %g", i, outputs[i], v)
		}
	}
	//
	b = &Builder{Settings: landSettings(t, settings.Sections{"problem": {"DVTYPE": "DV_INTEGER"}}), Table: landTable(t)}
	v, err := b.ConvertAreaUnits(33, settings.PercentOfTotal, "", "")
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
}
