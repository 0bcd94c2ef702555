package eqindex

import (
	"testing"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/equation"
	"github.com/npillmayer/mosra/settings"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T, equations map[string]string) (*Index, error) {
	s, err := settings.Parse(settings.Sections{
		"criteria":   {"OPTIONS": "A B"},
		"dimensions": {"SDU": "nm_id", "REGION": "region"},
		"parameters": {"price": "price_A price_B", "area": "area"},
		"variables":  {"X": "SDU OPTIONS"},
		"equations":  equations,
	})
	require.NoError(t, err)
	c, err := equation.NewCompiler(nil, s, s.Equations)
	require.NoError(t, err)
	return Build(c, s)
}

func TestEntries(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.eqindex")
	defer teardown()
	//
	ix, err := testIndex(t, map[string]string{
		"profit": "sum{SDU}(sum{OPTIONS}(price[OPTIONS] * X[SDU][OPTIONS]))",
		"feat":   "sum{OPTIONS}(X[SDU][OPTIONS]) - area",
		"inner":  "sum{OPTIONS}(X[SDU][OPTIONS])",
		"outer":  "sum{REGION}(sum{SDU}(inner))",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"feat", "inner", "outer", "profit"}, ix.Names())
	//
	e, err := ix.Entry("profit")
	require.NoError(t, err)
	assert.Empty(t, e.FreeDims)
	assert.Equal(t, []string{"SDU"}, e.LoopDims)
	assert.Equal(t, []string{"nm_id", "price_A", "price_B"}, e.Columns)
	assert.Equal(t, []string{"price"}, e.Params)
	assert.Equal(t, []string{"X"}, e.Variables)
	assert.Equal(t, []string{"OPTIONS", "SDU"}, e.Dimensions)
	//
	e, _ = ix.Entry("feat")
	assert.Equal(t, []string{"SDU"}, e.FreeDims)
	assert.Empty(t, e.LoopDims)
	assert.Equal(t, []string{"area", "nm_id"}, e.Columns)
	//
	e, _ = ix.Entry("inner")
	assert.Equal(t, []string{"SDU"}, e.FreeDims)
	e, _ = ix.Entry("outer")
	assert.Empty(t, e.FreeDims, "SDU is bound by the referencing loop")
	assert.Equal(t, []string{"REGION", "SDU"}, e.LoopDims)
	assert.Equal(t, []string{"inner"}, e.Equations)
	assert.Equal(t, []string{"nm_id", "region"}, e.Columns)
	//
	_, err = ix.Entry("nope")
	assert.True(t, mosra.IsLookupError(err))
}

func TestIndexErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.eqindex")
	defer teardown()
	//
	_, err := testIndex(t, map[string]string{
		"a": "b + 1",
		"b": "a * 2",
	})
	assert.True(t, mosra.IsParseError(err), "cycle must be detected")
	_, err = testIndex(t, map[string]string{
		"loose": "price[OPTIONS] * 2",
	})
	assert.True(t, mosra.IsDimensionError(err))
}
