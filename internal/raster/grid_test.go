package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(t *testing.T) *Grid {
	t.Helper()
	// 4x3 grid over [0,4]x[0,3], cell size 1, top-left origin (0,3).
	values := []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, -9999, 12,
	}
	g, err := NewGrid(0, 3, 1, 1, 4, 3, -9999, values)
	require.NoError(t, err)
	return g
}

func TestNewGrid_Validation(t *testing.T) {
	_, err := NewGrid(0, 0, 0, 1, 2, 2, -9999, make([]float64, 4))
	assert.Error(t, err)

	_, err = NewGrid(0, 0, 1, 1, 0, 2, -9999, nil)
	assert.Error(t, err)

	_, err = NewGrid(0, 0, 1, 1, 2, 2, -9999, make([]float64, 3))
	assert.Error(t, err)
}

func TestGridValue(t *testing.T) {
	g := testGrid(t)
	assert.Equal(t, 1.0, g.Value(0, 0))
	assert.Equal(t, 8.0, g.Value(1, 3))
	assert.Equal(t, 12.0, g.Value(2, 3))

	// Out of range returns the sentinel.
	assert.Equal(t, -9999.0, g.Value(-1, 0))
	assert.Equal(t, -9999.0, g.Value(0, 4))
	assert.Equal(t, -9999.0, g.Value(3, 0))
}

func TestGridIsNoData(t *testing.T) {
	g := testGrid(t)
	assert.True(t, g.IsNoData(-9999))
	assert.False(t, g.IsNoData(0))

	nan, err := NewGrid(0, 1, 1, 1, 1, 1, math.NaN(), []float64{math.NaN()})
	require.NoError(t, err)
	assert.True(t, nan.IsNoData(math.NaN()))
	assert.False(t, nan.IsNoData(0))
}

func TestGridExtent(t *testing.T) {
	g := testGrid(t)
	minX, minY, maxX, maxY := g.Extent()
	assert.Equal(t, 0.0, minX)
	assert.Equal(t, 0.0, minY)
	assert.Equal(t, 4.0, maxX)
	assert.Equal(t, 3.0, maxY)
}

func TestGridCellBounds(t *testing.T) {
	g := testGrid(t)
	minX, minY, maxX, maxY := g.CellBounds(0, 0)
	assert.Equal(t, 0.0, minX)
	assert.Equal(t, 2.0, minY)
	assert.Equal(t, 1.0, maxX)
	assert.Equal(t, 3.0, maxY)

	minX, minY, maxX, maxY = g.CellBounds(2, 3)
	assert.Equal(t, 3.0, minX)
	assert.Equal(t, 0.0, minY)
	assert.Equal(t, 4.0, maxX)
	assert.Equal(t, 1.0, maxY)
}

func TestWindowFor(t *testing.T) {
	g := testGrid(t)

	// Whole extent.
	win, ok := g.WindowFor(0, 0, 4, 3)
	require.True(t, ok)
	assert.Equal(t, Window{Row0: 0, Col0: 0, Rows: 3, Cols: 4}, win)

	// Interior box touching cell interiors only.
	win, ok = g.WindowFor(0.5, 0.5, 1.5, 1.5)
	require.True(t, ok)
	assert.Equal(t, Window{Row0: 1, Col0: 0, Rows: 2, Cols: 2}, win)

	// Overhanging box clips to the grid.
	win, ok = g.WindowFor(-10, -10, 1, 1)
	require.True(t, ok)
	assert.Equal(t, Window{Row0: 2, Col0: 0, Rows: 1, Cols: 1}, win)

	// Disjoint box.
	_, ok = g.WindowFor(10, 10, 11, 11)
	assert.False(t, ok)

	// Box touching only the outer edge.
	_, ok = g.WindowFor(4, 0, 5, 3)
	assert.False(t, ok)
}

func TestValidSum(t *testing.T) {
	g := testGrid(t)
	// All values minus the one no-data cell.
	assert.InDelta(t, 67.0, g.ValidSum(), 1e-12)
}
