package dimension

import (
	"testing"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/table"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridTable(t *testing.T, rows []table.Row) *table.SQLite {
	tbl, err := table.Memory("grid",
		[]string{"nm_id", "region", "soil", "nm_hole"},
		[]mosra.ValueType{mosra.IntType, mosra.TextType, mosra.IntType, mosra.IntType},
		rows)
	require.NoError(t, err)
	return tbl
}

func TestSelection(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.dimension")
	defer teardown()
	//
	tbl := gridTable(t, nil)
	defer tbl.Close()
	assert.Equal(t, `"nm_hole" = 0`, Selection(tbl, ""))
	assert.Equal(t, `"nm_hole" = 0 AND ("soil" > 1)`, Selection(tbl, " \"soil\" > 1"))
}

func TestLength(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.dimension")
	defer teardown()
	//
	tbl := gridTable(t, []table.Row{
		{mosra.Int(1), mosra.Text("east"), mosra.Int(1), mosra.Int(0)},
		{mosra.Int(2), mosra.Text("east"), mosra.Int(2), mosra.Int(0)},
		{mosra.Int(3), mosra.Text("west"), mosra.Int(1), mosra.Int(0)},
		{mosra.Int(4), mosra.Text("north"), mosra.Int(3), mosra.Int(1)},
	})
	defer tbl.Close()
	cat, err := NewCatalog(tbl, map[string]string{"SDU": "nm_id", "REGION": "region"},
		[]string{"A", "B", "C"}, Selection(tbl, ""))
	require.NoError(t, err)
	n, err := cat.Length("REGION")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "hole row must not count")
	n, err = cat.Length("SDU")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = cat.Length(Options)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	vals, err := cat.Values("REGION")
	require.NoError(t, err)
	assert.Equal(t, []mosra.Value{mosra.Text("east"), mosra.Text("west")}, vals)
	_, err = cat.Length("NOPE")
	assert.True(t, mosra.IsDimensionError(err))
	_, err = NewCatalog(tbl, map[string]string{"X": "nosuchcolumn"}, nil, "")
	assert.True(t, mosra.IsDimensionError(err))
}

func TestConditionalLengthGrid(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.dimension")
	defer teardown()
	//
	tbl := gridTable(t, []table.Row{
		{mosra.Int(1), mosra.Text("east"), mosra.Int(1), mosra.Int(0)},
		{mosra.Int(2), mosra.Text("east"), mosra.Int(2), mosra.Int(0)},
		{mosra.Int(3), mosra.Text("west"), mosra.Int(1), mosra.Int(0)},
		{mosra.Int(4), mosra.Text("west"), mosra.Int(2), mosra.Int(0)},
	})
	defer tbl.Close()
	cat, err := NewCatalog(tbl, map[string]string{"REGION": "region", "SOIL": "soil"}, []string{"A"}, "")
	require.NoError(t, err)
	for _, region := range []string{"east", "west"} {
		n, err := cat.ConditionalLength("SOIL", []Binding{{Dim: "REGION", Value: mosra.Text(region)}})
		require.NoError(t, err)
		assert.Equal(t, 2, n, region)
	}
}

func TestConditionalLengthUneven(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.dimension")
	defer teardown()
	//
	tbl := gridTable(t, []table.Row{
		{mosra.Int(1), mosra.Text("east"), mosra.Int(1), mosra.Int(0)},
		{mosra.Int(2), mosra.Text("east"), mosra.Int(2), mosra.Int(0)},
		{mosra.Int(3), mosra.Text("west"), mosra.Int(1), mosra.Int(0)},
	})
	defer tbl.Close()
	cat, err := NewCatalog(tbl, map[string]string{"REGION": "region", "SOIL": "soil", "SDU": "nm_id"},
		[]string{"A", "B"}, "")
	require.NoError(t, err)
	var lengths []int
	for _, region := range []string{"east", "west"} {
		outer := []Binding{{Dim: Options, Value: mosra.Int(0)}, {Dim: "REGION", Value: mosra.Text(region)}}
		n, err := cat.ConditionalLength("SOIL", outer)
		require.NoError(t, err)
		lengths = append(lengths, n)
	}
	assert.Equal(t, []int{2, 1}, lengths)
	//
	outer := []Binding{{Dim: "REGION", Value: mosra.Text("west")}, {Dim: "SOIL", Value: mosra.Int(1)}}
	n, err := cat.ConditionalLength("SDU", outer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	outer[1].Value = mosra.Int(2)
	n, err = cat.ConditionalLength("SDU", outer)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "tuple without rows")
	n, err = cat.ConditionalLength("SDU", []Binding{{Dim: "REGION", Value: mosra.Text("south")}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
