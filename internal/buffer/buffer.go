// Package buffer expands hazard geometries by their assigned distance in a
// locally accurate projected frame.
//
// The expansion is a disc sweep: the union of the source area, one
// rectangle per edge offset perpendicular by the distance, and one
// approximated circle per vertex. That reproduces round joins and caps and
// reduces every input kind (point, line, areal) to areal output.
package buffer

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/exposure-cli/internal/model"
	"github.com/sells-group/exposure-cli/internal/proj"
)

// DefaultQuadSegs is the number of circle segments per quarter turn.
const DefaultQuadSegs = 8

// Buffer expands one hazard by its buffer distance, working in the
// projected frame and returning geographic coordinates. A zero distance
// round-trips the geometry unchanged in shape; a negative distance is a
// per-record failure.
func Buffer(h model.Hazard, tr *proj.Transform, quadSegs int) (model.BufferedHazard, error) {
	if h.BufferDist < 0 {
		return model.BufferedHazard{}, eris.Wrapf(model.ErrInvalidBufferDistance, "hazard %s: %f", h.ID, h.BufferDist)
	}
	if quadSegs < 1 {
		quadSegs = DefaultQuadSegs
	}

	projected, err := tr.Forward(h.Geometry)
	if err != nil {
		return model.BufferedHazard{}, eris.Wrapf(err, "buffer: project hazard %s", h.ID)
	}

	var buffered polygol.Geom
	if h.BufferDist == 0 {
		buffered, err = zeroBuffer(projected)
	} else {
		buffered, err = sweep(projected, h.BufferDist, quadSegs)
	}
	if err != nil {
		return model.BufferedHazard{}, eris.Wrapf(err, "buffer: hazard %s", h.ID)
	}

	mp, err := model.FromPolygol(buffered)
	if err != nil {
		return model.BufferedHazard{}, eris.Wrapf(err, "buffer: hazard %s", h.ID)
	}
	back, err := tr.Inverse(mp)
	if err != nil {
		return model.BufferedHazard{}, eris.Wrapf(err, "buffer: unproject hazard %s", h.ID)
	}
	return model.BufferedHazard{IDs: []string{h.ID}, Geometry: back.(*geom.MultiPolygon)}, nil
}

// zeroBuffer keeps areal geometry as-is; point and line inputs have no
// area and yield an empty result.
func zeroBuffer(g geom.T) (polygol.Geom, error) {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return model.ToPolygol(g)
	default:
		return polygol.Geom{}, nil
	}
}

// sweep unions the source area with edge rectangles and vertex circles.
func sweep(g geom.T, dist float64, quadSegs int) (polygol.Geom, error) {
	var pieces []polygol.Geom

	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		area, err := model.ToPolygol(g)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, area)
	}

	flat := g.FlatCoords()
	stride := g.Stride()
	segments := hasSegments(g)
	eachPart(g, func(start, end int) {
		if segments {
			for i := start; i+2*stride <= end; i += stride {
				if rect := edgeRect(flat[i], flat[i+1], flat[i+stride], flat[i+stride+1], dist); rect != nil {
					pieces = append(pieces, rect)
				}
			}
		}
		for i := start; i+1 < end; i += stride {
			pieces = append(pieces, circle(flat[i], flat[i+1], dist, quadSegs))
		}
	})

	if len(pieces) == 0 {
		return polygol.Geom{}, nil
	}
	out, err := polygol.Union(pieces[0], pieces[1:]...)
	if err != nil {
		return nil, eris.Wrap(err, "buffer: union sweep pieces")
	}
	return out, nil
}

// edgeRect is the segment swept perpendicular by dist. Nil for degenerate
// segments; the vertex circles cover those.
func edgeRect(x1, y1, x2, y2, dist float64) polygol.Geom {
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*dist, dx/l*dist
	ring := [][]float64{
		{x1 + nx, y1 + ny},
		{x2 + nx, y2 + ny},
		{x2 - nx, y2 - ny},
		{x1 - nx, y1 - ny},
		{x1 + nx, y1 + ny},
	}
	return polygol.Geom{{ring}}
}

// circle approximates a disc with 4×quadSegs vertices.
func circle(cx, cy, r float64, quadSegs int) polygol.Geom {
	n := 4 * quadSegs
	ring := make([][]float64, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, []float64{cx + r*math.Cos(a), cy + r*math.Sin(a)})
	}
	ring = append(ring, []float64{ring[0][0], ring[0][1]})
	return polygol.Geom{{ring}}
}

// hasSegments reports whether the geometry's parts are connected paths
// rather than bare point sets.
func hasSegments(g geom.T) bool {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint:
		return false
	default:
		return true
	}
}

func eachPart(g geom.T, fn func(start, end int)) {
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
