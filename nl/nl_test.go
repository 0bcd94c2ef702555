package nl

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.nl")
	defer teardown()
	//
	inputs := []float64{3, -2, 0.1, 1e-7, 12345.678}
	outputs := []string{"3", "-2", "0.1", "0.0000001", "12345.678"}
	for i, v := range inputs {
		if s := Number(v); s != outputs[i] {
			t.Errorf("test %d: expected %s, got %s", i, outputs[i], s)
		}
	}
}

func TestWriter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.nl")
	defer teardown()
	//
	dir := t.TempDir()
	stale := filepath.Join(dir, "prob.old.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("left over"), 0o644))
	w, err := NewWriter(dir, "prob")
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale segment file must be removed")
	//
	w.Objective(0, mosra.Maximize) // objectives may come first
	w.Op(2)
	w.Num(3)
	w.Var(0)
	w.Gradient(0, []int{0})
	w.Constraint(0)
	w.Op(0)
	w.Var(1)
	w.Var(0)
	w.Jacobian(0, []int{1, 0})
	w.Range(mosra.LessEqual, 10)
	w.Bounds(0, math.Inf(1))
	w.Bounds(0, 1)
	w.Initial(1, 0.5)
	var out bytes.Buffer
	stats, err := w.Finish(&out)
	require.NoError(t, err)
	assert.Equal(t, Stats{Variables: 2, Constraints: 1, Objectives: 1, JacobianNZ: 2, GradientNZ: 1}, stats)
	//
	lines := strings.Split(out.String(), "\n")
	require.True(t, len(lines) > 10)
	assert.True(t, strings.HasPrefix(lines[0], "g3 1 1 0"))
	assert.True(t, strings.HasPrefix(lines[1], " 2 1 1 0 0 0"))
	assert.True(t, strings.HasPrefix(lines[7], " 2 1"))
	body := strings.Join(lines[10:], "\n")
	want := `C0
o0
v1
v0
O0 1
o2
n3
v0
x1
1 0.5
r
1 10
b
2 0
0 0 1
k1
1
J0 2
0 0
1 0
G0 1
0 0
`
	assert.Equal(t, want, body)
	tmps, _ := filepath.Glob(filepath.Join(dir, "prob.*.tmp"))
	assert.Empty(t, tmps, "temporaries must be removed")
}

func TestExpressionOutsideSegment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mosra.nl")
	defer teardown()
	//
	w, err := NewWriter(t.TempDir(), "bad")
	require.NoError(t, err)
	w.Var(0)
	_, err = w.Finish(&bytes.Buffer{})
	assert.True(t, mosra.IsIOError(err))
}
