package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/lp"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.cli")
	defer teardown()
	//
	dir := t.TempDir()
	hcl := filepath.Join(dir, "land.hcl")
	require.NoError(t, os.WriteFile(hcl, []byte(`
criteria {
  OPTIONS = ["A", "B"]
  CRI_1   = "REVENUE rev_A rev_B"
}
`), 0o644))
	s, err := loadSettings(hcl)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Options)
	//
	js := filepath.Join(dir, "land.json")
	require.NoError(t, os.WriteFile(js, []byte(`{
  "criteria": { "OPTIONS": ["A", "B"], "CRI_1": "REVENUE rev_A rev_B" }
}`), 0o644))
	s, err = loadSettings(js)
	require.NoError(t, err)
	assert.Equal(t, []string{"rev_A", "rev_B"}, s.Criteria["REVENUE"])
	//
	_, err = loadSettings(filepath.Join(dir, "missing.json"))
	assert.True(t, mosra.IsSettingsError(err))
}

func TestResolve(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.cli")
	defer teardown()
	//
	assert.Equal(t, "/abs/land.hcl", resolve(configPaths, "/abs/land.hcl"))
	assert.Equal(t, "nowhere.hcl", resolve(nil, "nowhere.hcl"))
	//
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "land.hcl"), []byte("problem {}\n"), 0o644))
	saved := configPaths
	defer func() { configPaths = saved }()
	configPaths = tempPaths(dir)
	assert.Equal(t, filepath.Join(dir, "land.hcl"), resolve(configPaths, "land.hcl"))
	assert.Equal(t, "other.hcl", resolve(configPaths, "other.hcl"))
	//
	paths, _ := DefaultAppPaths("MOSRA")
	assert.Contains(t, strings.ToLower(paths.ConfigDir()), "mosra")
}

type tempPaths string

func (p tempPaths) ConfigDir() string { return string(p) }
func (p tempPaths) LogDir() string    { return string(p) }

func TestRenderMatrix(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.cli")
	defer teardown()
	//
	m := lp.NewMatrix()
	x, _ := m.AddColumn("X_1_1", lp.Real)
	b, _ := m.AddColumn("b_1", lp.Binary)
	m.SetBounds(b, 0, 1)
	m.SetObjective(map[int]float64{x: 2}, mosra.Maximize)
	_, err := m.AddRow("Feature_1a", map[int]float64{x: 1, b: -10}, lp.GE, 0)
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, renderMatrix(m, &out))
	text := out.String()
	assert.Contains(t, text, "X_1_1")
	assert.Contains(t, text, "Feature_1a")
	assert.Contains(t, text, "inf")
}
