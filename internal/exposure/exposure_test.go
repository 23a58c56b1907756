package exposure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/exposure-cli/internal/model"
	"github.com/sells-group/exposure-cli/internal/raster"
)

// degreeGrid spans [0,1]x[0,1] degrees near the equator with 0.1-degree
// cells, 10 people per cell, 1000 total.
func degreeGrid(t *testing.T) *raster.Grid {
	t.Helper()
	values := make([]float64, 100)
	for i := range values {
		values[i] = 10
	}
	g, err := raster.NewGrid(0, 1, 0.1, 0.1, 10, 10, -9999, values)
	require.NoError(t, err)
	return g
}

func squareHazard(t *testing.T, id string, x1, y1, x2, y2 float64) model.Hazard {
	t.Helper()
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{
		{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}, {x1, y1}},
	})
	require.NoError(t, err)
	return model.Hazard{ID: id, Geometry: poly, BufferDist: 0}
}

func TestFindPeopleAffected_SingleHazard(t *testing.T) {
	grid := degreeGrid(t)
	hazards := []model.Hazard{squareHazard(t, "h1", 0.2, 0.2, 0.4, 0.4)}

	tables, err := FindPeopleAffected(context.Background(), hazards, grid, Options{})
	require.NoError(t, err)
	require.Empty(t, tables.Errors)
	require.Len(t, tables.Rows, 1)

	row := tables.Rows[0]
	assert.Equal(t, "h1", row.Label)
	assert.Empty(t, row.UnitID)
	assert.InDelta(t, 40.0, row.Population, 0.1)
	assert.False(t, row.NoDataOnly)
}

func TestFindPeopleAffected_CumulativeVsUnique(t *testing.T) {
	grid := degreeGrid(t)
	hazards := []model.Hazard{
		squareHazard(t, "h1", 0.2, 0.2, 0.4, 0.4),
		squareHazard(t, "h2", 0.2, 0.2, 0.4, 0.4),
	}

	// Unique mode: residents in the shared zone count once per hazard.
	unique, err := FindPeopleAffected(context.Background(), hazards, grid, Options{ByUniqueHazard: true})
	require.NoError(t, err)
	require.Len(t, unique.Rows, 2)
	assert.Equal(t, "h1", unique.Rows[0].Label)
	assert.Equal(t, "h2", unique.Rows[1].Label)
	assert.InDelta(t, 40.0, unique.Rows[0].Population, 0.1)
	assert.InDelta(t, 40.0, unique.Rows[1].Population, 0.1)

	// Cumulative mode: the overlap dissolves into one group counted once.
	cumulative, err := FindPeopleAffected(context.Background(), hazards, grid, Options{})
	require.NoError(t, err)
	require.Len(t, cumulative.Rows, 1)
	assert.Equal(t, "h1___h2", cumulative.Rows[0].Label)
	assert.InDelta(t, 40.0, cumulative.Rows[0].Population, 0.1)
}

func TestFindPeopleAffected_PartialFailure(t *testing.T) {
	grid := degreeGrid(t)
	bad := squareHazard(t, "bad", 0.2, 0.2, 0.4, 0.4)
	bad.BufferDist = -10
	hazards := []model.Hazard{
		squareHazard(t, "good", 0.5, 0.5, 0.7, 0.7),
		bad,
	}

	tables, err := FindPeopleAffected(context.Background(), hazards, grid, Options{})
	require.NoError(t, err)
	require.Len(t, tables.Rows, 1)
	assert.Equal(t, "good", tables.Rows[0].Label)
	require.Len(t, tables.Errors, 1)
	assert.Equal(t, "bad", tables.Errors[0].Label)
	assert.Equal(t, "buffer", tables.Errors[0].Stage)
}

func TestFindPeopleAffected_AllFail(t *testing.T) {
	grid := degreeGrid(t)
	bad := squareHazard(t, "bad", 0.2, 0.2, 0.4, 0.4)
	bad.BufferDist = -10

	tables, err := FindPeopleAffected(context.Background(), []model.Hazard{bad}, grid, Options{})
	require.Error(t, err)
	assert.Empty(t, tables.Rows)
	assert.Len(t, tables.Errors, 1)
}

func TestFindPeopleAffected_NoInput(t *testing.T) {
	tables, err := FindPeopleAffected(context.Background(), nil, degreeGrid(t), Options{})
	require.NoError(t, err)
	assert.Empty(t, tables.Rows)
	assert.Empty(t, tables.Errors)
}

func TestFindPeopleAffectedByGeo(t *testing.T) {
	grid := degreeGrid(t)
	hazards := []model.Hazard{squareHazard(t, "h1", 0.2, 0.2, 0.4, 0.4)}
	units := []model.SpatialUnit{
		{ID: "west", Geometry: squareHazard(t, "", 0, 0, 0.3, 1).Geometry},
		{ID: "east", Geometry: squareHazard(t, "", 0.3, 0, 1, 1).Geometry},
		{ID: "far", Geometry: squareHazard(t, "", 5, 5, 6, 6).Geometry},
	}

	tables, err := FindPeopleAffectedByGeo(context.Background(), hazards, units, grid, Options{})
	require.NoError(t, err)
	require.Empty(t, tables.Errors)
	require.Len(t, tables.Rows, 2)

	var total float64
	for _, row := range tables.Rows {
		assert.Equal(t, "h1", row.Label)
		assert.InDelta(t, 20.0, row.Population, 0.1)
		total += row.Population
	}
	// Per-unit rows add back to the whole-hazard total.
	assert.InDelta(t, 40.0, total, 0.1)
}

func TestFindPeopleAffectedByGeo_InvalidUnit(t *testing.T) {
	grid := degreeGrid(t)
	hazards := []model.Hazard{squareHazard(t, "h1", 0.2, 0.2, 0.4, 0.4)}
	units := []model.SpatialUnit{
		{ID: "pt", Geometry: geom.NewPointFlat(geom.XY, []float64{0.3, 0.3})},
	}

	tables, err := FindPeopleAffectedByGeo(context.Background(), hazards, units, grid, Options{})
	require.NoError(t, err)
	assert.Empty(t, tables.Rows)
	require.Len(t, tables.Errors, 1)
	assert.Equal(t, "pt", tables.Errors[0].Label)
	assert.Equal(t, "validate", tables.Errors[0].Stage)
}

func TestFindPeopleAffectedByGeo_EmptyRowsIsNotFailure(t *testing.T) {
	// A hazard that processes cleanly but joins no unit leaves the row
	// table empty; only all records failing makes the call error.
	grid := degreeGrid(t)
	hazards := []model.Hazard{squareHazard(t, "h1", 0.2, 0.2, 0.4, 0.4)}
	units := []model.SpatialUnit{
		{ID: "far", Geometry: squareHazard(t, "", 5, 5, 6, 6).Geometry},
	}

	tables, err := FindPeopleAffectedByGeo(context.Background(), hazards, units, grid, Options{})
	require.NoError(t, err)
	assert.Empty(t, tables.Rows)
	assert.Empty(t, tables.Errors)
}

func TestFindPeopleAffectedByGeo_AllRecordsFail(t *testing.T) {
	grid := degreeGrid(t)
	bad := squareHazard(t, "bad", 0.2, 0.2, 0.4, 0.4)
	bad.BufferDist = -10
	units := []model.SpatialUnit{
		{ID: "pt", Geometry: geom.NewPointFlat(geom.XY, []float64{0.3, 0.3})},
	}

	tables, err := FindPeopleAffectedByGeo(context.Background(), []model.Hazard{bad}, units, grid, Options{})
	require.Error(t, err)
	assert.Empty(t, tables.Rows)
	assert.Len(t, tables.Errors, 2)
}

func TestFindPeopleResidingByGeo(t *testing.T) {
	grid := degreeGrid(t)
	units := []model.SpatialUnit{
		{ID: "u1", Geometry: squareHazard(t, "", 0, 0.5, 0.5, 1).Geometry},
		{ID: "outside", Geometry: squareHazard(t, "", 5, 5, 6, 6).Geometry},
	}

	tables, err := FindPeopleResidingByGeo(context.Background(), units, grid, Options{})
	require.NoError(t, err)
	require.Empty(t, tables.Errors)
	require.Len(t, tables.Rows, 2)

	assert.Equal(t, "u1", tables.Rows[0].UnitID)
	assert.Empty(t, tables.Rows[0].Label)
	assert.InDelta(t, 250.0, tables.Rows[0].Population, 1e-9)

	// A unit outside the raster extent still gets a row, at zero.
	assert.Equal(t, "outside", tables.Rows[1].UnitID)
	assert.Zero(t, tables.Rows[1].Population)
	assert.False(t, tables.Rows[1].NoDataOnly)
}

func TestFindPeopleResidingByGeo_SeparatorAllowedInUnitID(t *testing.T) {
	// Only hazard ids feed group labels; unit ids pass through untouched.
	grid := degreeGrid(t)
	units := []model.SpatialUnit{
		{ID: "a___b", Geometry: squareHazard(t, "", 0, 0, 0.1, 0.1).Geometry},
	}

	tables, err := FindPeopleResidingByGeo(context.Background(), units, grid, Options{})
	require.NoError(t, err)
	require.Len(t, tables.Rows, 1)
	assert.Equal(t, "a___b", tables.Rows[0].UnitID)
}

func TestFindPeopleAffected_SeparatorInHazardID(t *testing.T) {
	grid := degreeGrid(t)
	hazards := []model.Hazard{squareHazard(t, "a___b", 0.2, 0.2, 0.4, 0.4)}

	tables, err := FindPeopleAffected(context.Background(), hazards, grid, Options{})
	require.Error(t, err)
	require.Len(t, tables.Errors, 1)
	assert.Equal(t, "buffer", tables.Errors[0].Stage)
}
