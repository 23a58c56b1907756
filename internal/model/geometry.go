package model

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ToPolygol converts areal geometry into the nested-slice multipolygon form
// the overlay library operates on. Rings are closed on the way in.
func ToPolygol(g geom.T) (polygol.Geom, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygol.Geom{polygonCoords(t.Coords())}, nil
	case *geom.MultiPolygon:
		out := make(polygol.Geom, 0, t.NumPolygons())
		for _, p := range t.Coords() {
			out = append(out, polygonCoords(p))
		}
		return out, nil
	default:
		return nil, eris.Wrapf(ErrInvalidGeometryKind, "overlay requires areal geometry, got %T", g)
	}
}

// FromPolygol converts overlay output back into a go-geom MultiPolygon.
// Degenerate rings (fewer than three distinct vertices) are dropped.
func FromPolygol(pg polygol.Geom) (*geom.MultiPolygon, error) {
	coords := make([][][]geom.Coord, 0, len(pg))
	for _, poly := range pg {
		rings := make([][]geom.Coord, 0, len(poly))
		for _, ring := range poly {
			ring = closeRing(ring)
			if len(ring) < 4 {
				continue
			}
			rc := make([]geom.Coord, 0, len(ring))
			for _, pt := range ring {
				rc = append(rc, geom.Coord{pt[0], pt[1]})
			}
			rings = append(rings, rc)
		}
		if len(rings) > 0 {
			coords = append(coords, rings)
		}
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, eris.Wrap(err, "model: rebuild multipolygon")
	}
	return mp, nil
}

// AsMultiPolygon normalizes areal geometry to a MultiPolygon.
func AsMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY)
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "model: wrap polygon")
		}
		return mp, nil
	default:
		return nil, eris.Wrapf(ErrInvalidGeometryKind, "expected areal geometry, got %T", g)
	}
}

// PolygolArea returns the total area of a nested-slice multipolygon,
// counting the first ring of each polygon as the shell and the rest as holes.
func PolygolArea(pg polygol.Geom) float64 {
	var total float64
	for _, poly := range pg {
		for i, ring := range poly {
			a := math.Abs(RingArea(ring))
			if i == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// RingArea returns the signed shoelace area of a ring. The ring may be
// open or closed; positive means counter-clockwise winding.
func RingArea(ring [][]float64) float64 {
	n := len(ring)
	if n > 1 && ring[0][0] == ring[n-1][0] && ring[0][1] == ring[n-1][1] {
		n--
	}
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}

// Empty reports whether a nested-slice multipolygon has no area.
func Empty(pg polygol.Geom) bool {
	if len(pg) == 0 {
		return true
	}
	return PolygolArea(pg) == 0
}

func polygonCoords(rings [][]geom.Coord) [][][]float64 {
	out := make([][][]float64, 0, len(rings))
	for _, ring := range rings {
		rc := make([][]float64, 0, len(ring)+1)
		for _, c := range ring {
			rc = append(rc, []float64{c[0], c[1]})
		}
		out = append(out, closeRing(rc))
	}
	return out
}

func closeRing(ring [][]float64) [][]float64 {
	if len(ring) == 0 {
		return ring
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		ring = append(ring, []float64{first[0], first[1]})
	}
	return ring
}
