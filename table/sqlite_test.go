package table

import (
	"testing"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *SQLite {
	tbl, err := Memory("parcels",
		[]string{"id", "zone", "area", "landuse"},
		[]mosra.ValueType{mosra.IntType, mosra.TextType, mosra.DoubleType, mosra.TextType},
		[]Row{
			{mosra.Int(3), mosra.Text("north"), mosra.Double(2.5), mosra.Text("A B")},
			{mosra.Int(1), mosra.Text("south"), mosra.Double(1.0), nil},
			{mosra.Int(2), mosra.Text("north"), mosra.Double(4.0), mosra.Text("B")},
		})
	require.NoError(t, err)
	return tbl
}

func TestSQLiteColumns(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.table")
	defer teardown()
	//
	tbl := testTable(t)
	defer tbl.Close()
	assert.Equal(t, "parcels", tbl.Name())
	assert.Equal(t, 2, tbl.ColumnExists("area"))
	assert.Equal(t, -1, tbl.ColumnExists("nm_hole"))
	assert.Equal(t, []string{"id", "zone", "area", "landuse"}, tbl.Columns())
}

func TestSQLiteBulkGet(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.table")
	defer teardown()
	//
	tbl := testTable(t)
	defer tbl.Close()
	rows, err := ReadAll(tbl, []string{"id", "area", "landuse"}, `"zone" = 'north'`, []string{"id"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, mosra.Int(2), rows[0][0])
	assert.Equal(t, mosra.Double(4.0), rows[0][1])
	assert.Equal(t, mosra.Text("A B"), rows[1][2])
	//
	rows, err = ReadAll(tbl, []string{"landuse"}, "", []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, mosra.Text(""), rows[0][0], "NULL must read as empty text")
	//
	err = tbl.PrepareBulkGet([]string{"nosuchcolumn"}, "", nil)
	assert.True(t, mosra.IsLookupError(err))
	_, ok, err := tbl.DoBulkGet()
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestSQLiteTableDataFetch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.table")
	defer teardown()
	//
	tbl := testTable(t)
	defer tbl.Close()
	rows, err := tbl.TableDataFetch(`SELECT "zone", COUNT(*) FROM "parcels" GROUP BY "zone" ORDER BY "zone";`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{mosra.Text("north"), mosra.Int(2)}, rows[0])
	_, err = tbl.TableDataFetch("SELECT nonsense FROM nowhere;")
	assert.True(t, mosra.IsIOError(err))
}

func TestQuote(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.table")
	defer teardown()
	//
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
	assert.Equal(t, `'it''s'`, QuoteText("it's"))
	assert.Equal(t, `"x", "y"`, QuoteAll([]string{"x", "y"}))
}
