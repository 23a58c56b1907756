package geoio

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/exposure-cli/internal/model"
)

func hazardsFromShapefile(path string) ([]model.Hazard, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := fieldIndex(reader)
	idIdx := firstField(fieldIdx, hazardIDKeys)
	distIdx := firstField(fieldIdx, []string{bufferKey})
	if distIdx < 0 {
		return nil, eris.Errorf("geoio: shapefile %s missing %s field", path, bufferKey)
	}

	var hazards []model.Hazard
	var skipped int
	record := 0
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			record++
			continue
		}

		id := strconv.Itoa(record)
		if idIdx >= 0 {
			id = attr(reader, idIdx)
		}
		dist, err := strconv.ParseFloat(attr(reader, distIdx), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "geoio: %s for hazard %s in %s", bufferKey, id, path)
		}
		hazards = append(hazards, model.Hazard{ID: id, Geometry: g, BufferDist: dist})
		record++
	}

	if skipped > 0 {
		zap.L().Debug("geoio: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return hazards, nil
}

func unitsFromShapefile(path string) ([]model.SpatialUnit, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := fieldIndex(reader)
	idIdx := firstField(fieldIdx, unitIDKeys)

	var units []model.SpatialUnit
	record := 0
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			record++
			continue
		}
		id := strconv.Itoa(record)
		if idIdx >= 0 {
			id = attr(reader, idIdx)
		}
		units = append(units, model.SpatialUnit{ID: id, Geometry: g})
		record++
	}
	return units, nil
}

func fieldIndex(reader *shp.Reader) map[string]int {
	fields := reader.Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		idx[strings.ToLower(name)] = i
	}
	return idx
}

// firstField resolves the first matching attribute column. DBF caps field
// names at 10 characters, so truncated forms of the longer keys match too.
func firstField(idx map[string]int, keys []string) int {
	for _, k := range keys {
		k = strings.ToLower(k)
		if i, ok := idx[k]; ok {
			return i
		}
		if len(k) > 10 {
			if i, ok := idx[k[:10]]; ok {
				return i
			}
		}
	}
	return -1
}

func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// shapeToGeom converts a go-shp shape into the go-geom model. Unsupported
// or nil shapes return nil.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon((*shp.PolyLine)(s))
	default:
		return nil
	}
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}
	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		coords := partCoords(pl, i)
		ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
		if err != nil {
			zap.L().Debug("geoio: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("geoio: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon groups shapefile rings into polygons following the
// winding convention: clockwise rings open a new shell, counter-clockwise
// rings are holes in the preceding shell.
func polygonToMultiPolygon(p *shp.PolyLine) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}
	var polys [][][]geom.Coord
	for i := int32(0); i < p.NumParts; i++ {
		coords := partCoords(p, i)
		if len(coords) < 4 {
			zap.L().Debug("geoio: skipping short polygon ring", zap.Int32("part", i))
			continue
		}
		if ringWindsClockwise(coords) || len(polys) == 0 {
			polys = append(polys, [][]geom.Coord{coords})
		} else {
			polys[len(polys)-1] = append(polys[len(polys)-1], coords)
		}
	}
	if len(polys) == 0 {
		return nil
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		zap.L().Debug("geoio: skipping malformed polygon", zap.Error(err))
		return nil
	}
	return mp
}

func ringWindsClockwise(coords []geom.Coord) bool {
	var sum float64
	for i := 0; i+1 < len(coords); i++ {
		sum += coords[i][0]*coords[i+1][1] - coords[i+1][0]*coords[i][1]
	}
	return sum < 0
}

func partCoords(pl *shp.PolyLine, part int32) []geom.Coord {
	start := pl.Parts[part]
	end := int32(len(pl.Points))
	if part+1 < pl.NumParts {
		end = pl.Parts[part+1]
	}
	coords := make([]geom.Coord, 0, end-start)
	for j := start; j < end; j++ {
		coords = append(coords, geom.Coord{pl.Points[j].X, pl.Points[j].Y})
	}
	return coords
}
