package geoio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// renameDBF moves the attribute table to <name>.dbf: the go-shp writer
// names it <name>dbf, dot omitted, and the reader only looks for .dbf.
func renameDBF(t *testing.T, shpPath string) {
	t.Helper()
	base := strings.TrimSuffix(shpPath, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

// writeHazardShapefile builds a two-record polygon shapefile with DBF
// field names truncated to 10 characters, as real files carry them.
func writeHazardShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hazards.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("ID_climate", 20),
		shp.FloatField("buffer_dis", 16, 4),
	})

	// Shapefile shells wind clockwise.
	shapes := [][][]shp.Point{
		{{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}},
		{{{X: 5, Y: 5}, {X: 5, Y: 7}, {X: 7, Y: 7}, {X: 7, Y: 5}, {X: 5, Y: 5}}},
	}
	ids := []string{"flood-1", "flood-2"}
	dists := []float64{500, 0}
	for i, rings := range shapes {
		w.Write((*shp.Polygon)(shp.NewPolyLine(rings)))
		w.WriteAttribute(i, 0, ids[i])
		w.WriteAttribute(i, 1, dists[i])
	}
	w.Close()
	renameDBF(t, path)
	return path
}

func TestLoadHazards_Shapefile(t *testing.T) {
	path := writeHazardShapefile(t)

	hazards, err := LoadHazards(path)
	require.NoError(t, err)
	require.Len(t, hazards, 2)

	assert.Equal(t, "flood-1", hazards[0].ID)
	assert.Equal(t, 500.0, hazards[0].BufferDist)
	assert.Equal(t, "flood-2", hazards[1].ID)
	assert.Equal(t, 0.0, hazards[1].BufferDist)

	mp, ok := hazards[0].Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 1, mp.NumPolygons())
	b := mp.Bounds()
	assert.Equal(t, 0.0, b.Min(0))
	assert.Equal(t, 1.0, b.Max(0))
}

func TestLoadUnits_Shapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("ID_spatial", 20),
	})
	w.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0}},
	})))
	w.WriteAttribute(0, 0, "county-9")
	w.Close()
	renameDBF(t, path)

	units, err := LoadUnits(path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "county-9", units[0].ID)
	_, ok := units[0].Geometry.(*geom.MultiPolygon)
	assert.True(t, ok)
}

func TestLoadHazards_ShapefileMissingBufferField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("ID_climate", 20),
	})
	w.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}},
	})))
	w.WriteAttribute(0, 0, "h1")
	w.Close()
	renameDBF(t, path)

	_, err = LoadHazards(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer_dist")
}

func TestPolygonToMultiPolygon_HoleGrouping(t *testing.T) {
	// CW shell followed by a CCW hole groups into one polygon with a ring
	// pair; a second CW shell starts a new polygon.
	pl := shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0}}, // shell (CW)
		{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1}}, // hole (CCW)
		{{X: 10, Y: 0}, {X: 10, Y: 1}, {X: 11, Y: 1}, {X: 11, Y: 0}, {X: 10, Y: 0}}, // shell (CW)
	})

	g := polygonToMultiPolygon(pl)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())
}
