package coverage

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/exposure-cli/internal/raster"
)

// Result is one polygon's zonal sum. NoDataOnly is set when the polygon
// covered cells but every one of them carried the no-data sentinel,
// distinguishing "no valid data" from a genuinely zero population.
type Result struct {
	Population float64
	Covered    int
	Valid      int
	NoDataOnly bool
}

// Aggregate computes Σ fraction × value over a coverage set, skipping
// no-data cells. An empty set yields population 0, not an error.
func Aggregate(pixels []Pixel, g *raster.Grid) Result {
	var res Result
	for _, px := range pixels {
		res.Covered++
		v := g.Value(px.Row, px.Col)
		if g.IsNoData(v) {
			continue
		}
		res.Valid++
		res.Population += px.Fraction * v
	}
	res.NoDataOnly = res.Covered > 0 && res.Valid == 0
	return res
}

// AggregatePolygon runs the rasterizer and aggregator in one streaming
// pass over a polygon, never holding the coverage set.
func AggregatePolygon(mp *geom.MultiPolygon, g *raster.Grid) Result {
	var res Result
	eachCell(mp, g, func(row, col int, fraction float64) {
		res.Covered++
		v := g.Value(row, col)
		if g.IsNoData(v) {
			return
		}
		res.Valid++
		res.Population += fraction * v
	})
	res.NoDataOnly = res.Covered > 0 && res.Valid == 0
	return res
}
