// Package coverage computes exact partial-pixel overlay of polygon
// geometry against a raster grid, and the population sums weighted by it.
//
// For every grid cell intersecting a polygon's bounding window the cell's
// axis-aligned square is clipped against the polygon rings and the true
// intersection area is taken as the weight. No point sampling or sub-pixel
// approximation is involved; the clipped area is the accuracy guarantee.
package coverage

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/exposure-cli/internal/raster"
)

// Pixel is one cell's covered fraction. Ephemeral: produced and consumed
// within a single polygon's pass.
type Pixel struct {
	Row      int
	Col      int
	Fraction float64
}

// fractionEps discards numerically zero slivers left by clipping.
const fractionEps = 1e-12

// Coverage computes the covered fraction of every grid cell intersecting
// the polygon, restricted to the polygon's bounding window. Cells fully
// inside get fraction 1; cells fully outside are not emitted. The result
// is sparse and belongs to this polygon only.
func Coverage(mp *geom.MultiPolygon, g *raster.Grid) []Pixel {
	var pixels []Pixel
	eachCell(mp, g, func(row, col int, fraction float64) {
		pixels = append(pixels, Pixel{Row: row, Col: col, Fraction: fraction})
	})
	return pixels
}

// eachCell streams (row, col, fraction) for all covered cells without
// materializing coverage for more than the polygon's own window.
func eachCell(mp *geom.MultiPolygon, g *raster.Grid, fn func(row, col int, fraction float64)) {
	rings := orientedRings(mp)
	if len(rings) == 0 {
		return
	}

	b := mp.Bounds()
	win, ok := g.WindowFor(b.Min(0), b.Min(1), b.Max(0), b.Max(1))
	if !ok {
		return
	}

	// Window-sized accumulator: each ring adds its signed clipped area,
	// shells positive, holes negative.
	acc := make([]float64, win.Rows*win.Cols)
	for _, ring := range rings {
		accumulateRing(ring, g, win, acc)
	}

	cellArea := g.CellArea()
	for r := 0; r < win.Rows; r++ {
		for c := 0; c < win.Cols; c++ {
			f := acc[r*win.Cols+c] / cellArea
			if f <= fractionEps {
				continue
			}
			if f > 1 {
				f = 1
			}
			fn(win.Row0+r, win.Col0+c, f)
		}
	}
}

// accumulateRing clips one oriented ring against every cell of the window
// and adds the signed intersection areas into acc. Rows are clipped to a
// horizontal band first so the per-cell pass works on the reduced ring.
func accumulateRing(ring [][2]float64, g *raster.Grid, win raster.Window, acc []float64) {
	for r := 0; r < win.Rows; r++ {
		_, yMin, _, yMax := g.CellBounds(win.Row0+r, win.Col0)
		band := clipBelow(clipAbove(ring, yMax), yMin)
		if len(band) < 3 {
			continue
		}
		for c := 0; c < win.Cols; c++ {
			xMin, _, xMax, _ := g.CellBounds(win.Row0+r, win.Col0+c)
			piece := clipRight(clipLeft(band, xMin), xMax)
			if len(piece) < 3 {
				continue
			}
			acc[r*win.Cols+c] += signedArea(piece)
		}
	}
}

// orientedRings flattens the multipolygon into rings normalized so shells
// wind counter-clockwise (positive area) and holes clockwise (negative).
func orientedRings(mp *geom.MultiPolygon) [][][2]float64 {
	var rings [][][2]float64
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j, ringCoords := range poly.Coords() {
			ring := make([][2]float64, 0, len(ringCoords))
			for _, c := range ringCoords {
				ring = append(ring, [2]float64{c[0], c[1]})
			}
			ring = dropClosing(ring)
			if len(ring) < 3 {
				continue
			}
			a := signedArea(ring)
			if a == 0 {
				continue
			}
			shell := j == 0
			if (shell && a < 0) || (!shell && a > 0) {
				reverse(ring)
			}
			rings = append(rings, ring)
		}
	}
	return rings
}

// Sutherland–Hodgman half-plane clips. The clip window is convex, so the
// clipped area is exact; degenerate bridge edges introduced when a ring
// splits contribute zero area.

func clipAbove(pts [][2]float64, yMax float64) [][2]float64 {
	return clipHalfPlane(pts,
		func(p [2]float64) bool { return p[1] <= yMax },
		func(p, q [2]float64) [2]float64 {
			t := (yMax - p[1]) / (q[1] - p[1])
			return [2]float64{p[0] + t*(q[0]-p[0]), yMax}
		})
}

func clipBelow(pts [][2]float64, yMin float64) [][2]float64 {
	return clipHalfPlane(pts,
		func(p [2]float64) bool { return p[1] >= yMin },
		func(p, q [2]float64) [2]float64 {
			t := (yMin - p[1]) / (q[1] - p[1])
			return [2]float64{p[0] + t*(q[0]-p[0]), yMin}
		})
}

func clipLeft(pts [][2]float64, xMin float64) [][2]float64 {
	return clipHalfPlane(pts,
		func(p [2]float64) bool { return p[0] >= xMin },
		func(p, q [2]float64) [2]float64 {
			t := (xMin - p[0]) / (q[0] - p[0])
			return [2]float64{xMin, p[1] + t*(q[1]-p[1])}
		})
}

func clipRight(pts [][2]float64, xMax float64) [][2]float64 {
	return clipHalfPlane(pts,
		func(p [2]float64) bool { return p[0] <= xMax },
		func(p, q [2]float64) [2]float64 {
			t := (xMax - p[0]) / (q[0] - p[0])
			return [2]float64{xMax, p[1] + t*(q[1]-p[1])}
		})
}

func clipHalfPlane(pts [][2]float64, inside func([2]float64) bool, cross func(p, q [2]float64) [2]float64) [][2]float64 {
	if len(pts) == 0 {
		return nil
	}
	out := make([][2]float64, 0, len(pts)+4)
	prev := pts[len(pts)-1]
	prevIn := inside(prev)
	for _, cur := range pts {
		curIn := inside(cur)
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, cross(prev, cur), cur)
		case !curIn && prevIn:
			out = append(out, cross(prev, cur))
		}
		prev, prevIn = cur, curIn
	}
	return out
}

// signedArea returns the shoelace area of an open ring; positive for
// counter-clockwise winding.
func signedArea(pts [][2]float64) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return sum / 2
}

func dropClosing(ring [][2]float64) [][2]float64 {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		return ring[:n-1]
	}
	return ring
}

func reverse(pts [][2]float64) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
