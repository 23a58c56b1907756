package model

import (
	"testing"

	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestToPolygol_Polygon(t *testing.T) {
	pg, err := ToPolygol(unitSquare(t))
	require.NoError(t, err)
	require.Len(t, pg, 1)
	require.Len(t, pg[0], 1)
	// Ring arrives closed.
	ring := pg[0][0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.InDelta(t, 1.0, PolygolArea(pg), 1e-12)
}

func TestToPolygol_RejectsNonAreal(t *testing.T) {
	_, err := ToPolygol(geom.NewPointFlat(geom.XY, []float64{0, 0}))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidGeometryKind))
}

func TestFromPolygol_RoundTrip(t *testing.T) {
	pg, err := ToPolygol(unitSquare(t))
	require.NoError(t, err)

	mp, err := FromPolygol(pg)
	require.NoError(t, err)
	require.Equal(t, 1, mp.NumPolygons())

	back, err := ToPolygol(mp)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, PolygolArea(back), 1e-12)
}

func TestFromPolygol_DropsDegenerateRings(t *testing.T) {
	pg := polygol.Geom{
		{{{0, 0}, {1, 0}}}, // two vertices, dropped
		{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
	}
	mp, err := FromPolygol(pg)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestFromPolygol_Empty(t *testing.T) {
	mp, err := FromPolygol(polygol.Geom{})
	require.NoError(t, err)
	assert.Equal(t, 0, mp.NumPolygons())
}

func TestPolygolArea_Hole(t *testing.T) {
	pg := polygol.Geom{{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	}}
	assert.InDelta(t, 12.0, PolygolArea(pg), 1e-12)
}

func TestRingArea_Winding(t *testing.T) {
	ccw := [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	cw := [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	assert.InDelta(t, 1.0, RingArea(ccw), 1e-12)
	assert.InDelta(t, -1.0, RingArea(cw), 1e-12)

	// Closed and open forms agree.
	closed := append(append([][]float64{}, ccw...), []float64{0, 0})
	assert.Equal(t, RingArea(ccw), RingArea(closed))
}

func TestAsMultiPolygon(t *testing.T) {
	mp, err := AsMultiPolygon(unitSquare(t))
	require.NoError(t, err)
	assert.Equal(t, 1, mp.NumPolygons())

	same, err := AsMultiPolygon(mp)
	require.NoError(t, err)
	assert.Same(t, mp, same)

	_, err = AsMultiPolygon(geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}))
	require.Error(t, err)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Empty(polygol.Geom{}))
	pg, err := ToPolygol(unitSquare(t))
	require.NoError(t, err)
	assert.False(t, Empty(pg))
}
