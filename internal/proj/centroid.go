package proj

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/exposure-cli/internal/model"
)

// Centroid returns the (lon, lat) centroid of a geometry. Polygons use the
// area-weighted centroid, lines the length-weighted centroid, and point
// sets the vertex mean. Degenerate inputs (zero area or length) fall back
// to the vertex mean so zone selection still resolves.
func Centroid(g geom.T) (float64, float64, error) {
	switch s := g.(type) {
	case *geom.Point:
		c := s.Coords()
		return c[0], c[1], nil
	case *geom.MultiPoint:
		return vertexMean(g)
	case *geom.LineString, *geom.MultiLineString:
		x, y, ok := lineCentroid(g)
		if !ok {
			return vertexMean(g)
		}
		return x, y, nil
	case *geom.Polygon, *geom.MultiPolygon:
		x, y, ok := areaCentroid(g)
		if !ok {
			return vertexMean(g)
		}
		return x, y, nil
	default:
		return 0, 0, eris.Wrapf(model.ErrInvalidGeometryKind, "proj: centroid of %T", g)
	}
}

func vertexMean(g geom.T) (float64, float64, error) {
	flat := g.FlatCoords()
	stride := g.Stride()
	if len(flat) < stride || stride < 2 {
		return 0, 0, eris.Wrap(model.ErrProjectionFailure, "proj: empty geometry")
	}
	var sx, sy float64
	n := 0
	for i := 0; i+1 < len(flat); i += stride {
		sx += flat[i]
		sy += flat[i+1]
		n++
	}
	return sx / float64(n), sy / float64(n), nil
}

// lineCentroid computes the length-weighted centroid over every segment.
func lineCentroid(g geom.T) (float64, float64, bool) {
	flat := g.FlatCoords()
	stride := g.Stride()
	var sx, sy, total float64
	forEachPart(g, func(start, end int) {
		for i := start; i+2*stride <= end; i += stride {
			x1, y1 := flat[i], flat[i+1]
			x2, y2 := flat[i+stride], flat[i+stride+1]
			l := math.Hypot(x2-x1, y2-y1)
			sx += l * (x1 + x2) / 2
			sy += l * (y1 + y2) / 2
			total += l
		}
	})
	if total == 0 {
		return 0, 0, false
	}
	return sx / total, sy / total, true
}

// areaCentroid computes the area-weighted centroid over every ring. Hole
// rings carry opposite winding and subtract themselves naturally.
func areaCentroid(g geom.T) (float64, float64, bool) {
	flat := g.FlatCoords()
	stride := g.Stride()
	var sx, sy, total float64
	forEachPart(g, func(start, end int) {
		var a, cx, cy float64
		for i := start; i+2*stride <= end; i += stride {
			x1, y1 := flat[i], flat[i+1]
			x2, y2 := flat[i+stride], flat[i+stride+1]
			cross := x1*y2 - x2*y1
			a += cross
			cx += (x1 + x2) * cross
			cy += (y1 + y2) * cross
		}
		a /= 2
		if a != 0 {
			sx += cx / 6
			sy += cy / 6
			total += a
		}
	})
	if total == 0 {
		return 0, 0, false
	}
	return sx / total, sy / total, true
}

// forEachPart invokes fn with the [start, end) flat-coordinate range of
// every linear part (line, ring) of the geometry.
func forEachPart(g geom.T, fn func(start, end int)) {
	flat := g.FlatCoords()
	switch {
	case len(g.Endss()) > 0:
		start := 0
		for _, ends := range g.Endss() {
			for _, end := range ends {
				fn(start, end)
				start = end
			}
		}
	case len(g.Ends()) > 0:
		start := 0
		for _, end := range g.Ends() {
			fn(start, end)
			start = end
		}
	default:
		fn(0, len(flat))
	}
}
