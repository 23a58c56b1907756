// Package proj selects a locally accurate UTM frame for a geometry and
// transforms coordinates between geographic (WGS84 lon/lat) and that frame.
package proj

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"

	"github.com/sells-group/exposure-cli/internal/model"
)

// Transform is a forward/inverse coordinate-transform pair between
// geographic coordinates and one UTM zone. It is a pure function of the
// source geometry's centroid and is safe for concurrent use.
type Transform struct {
	Zone     int
	Northern bool
	forward  wgs84.Func
	inverse  wgs84.Func
}

// Zone returns the UTM zone containing the given longitude. The boundary
// meridian belongs to the zone having it as its lower edge; lon 180 wraps
// into zone 60.
func Zone(lon float64) int {
	z := int(math.Floor((lon+180)/6)) + 1
	if z < 1 {
		z = 1
	}
	if z > 60 {
		z = 60
	}
	return z
}

// ForGeometry picks the UTM zone whose central meridian best matches the
// geometry's centroid and returns the transform pair for it. Fails for
// geometry kinds outside the supported set and for degenerate centroids.
func ForGeometry(g geom.T) (*Transform, error) {
	if g == nil || !model.SupportedGeometry(g) {
		return nil, eris.Wrap(model.ErrInvalidGeometryKind, "proj: unsupported geometry")
	}
	lon, lat, err := Centroid(g)
	if err != nil {
		return nil, err
	}
	if !isFinite(lon) || !isFinite(lat) || lon < -180 || lon > 180 || math.Abs(lat) > 89.9 {
		return nil, eris.Wrapf(model.ErrProjectionFailure, "proj: degenerate centroid (%f, %f)", lon, lat)
	}

	zone := Zone(lon)
	northern := lat >= 0
	utm := wgs84.UTM(float64(zone), northern)
	return &Transform{
		Zone:     zone,
		Northern: northern,
		forward:  wgs84.LonLat().To(utm),
		inverse:  utm.To(wgs84.LonLat()),
	}, nil
}

// Forward transforms a geographic geometry into the projected frame.
func (t *Transform) Forward(g geom.T) (geom.T, error) {
	return apply(g, func(x, y float64) (float64, float64) {
		e, n, _ := t.forward(x, y, 0)
		return e, n
	})
}

// Inverse transforms a projected geometry back to geographic coordinates.
func (t *Transform) Inverse(g geom.T) (geom.T, error) {
	return apply(g, t.invert)
}

// invert recovers geographic coordinates for one projected vertex. The
// series inverse is only accurate to a few microdegrees at mid latitudes,
// so it seeds Newton iterations against the forward transform, which
// converge to floating-point level within two or three steps.
func (t *Transform) invert(e, n float64) (float64, float64) {
	lon, lat, _ := t.inverse(e, n, 0)
	for i := 0; i < 4; i++ {
		fe, fn, _ := t.forward(lon, lat, 0)
		de, dn := e-fe, n-fn
		if math.Abs(de) < 1e-9 && math.Abs(dn) < 1e-9 {
			break
		}
		// Jacobian of the forward transform by finite differences.
		const h = 1e-7
		ae, an, _ := t.forward(lon+h, lat, 0)
		be, bn, _ := t.forward(lon, lat+h, 0)
		j11, j21 := (ae-fe)/h, (an-fn)/h
		j12, j22 := (be-fe)/h, (bn-fn)/h
		det := j11*j22 - j12*j21
		if det == 0 || !isFinite(det) {
			break
		}
		lon += (de*j22 - dn*j12) / det
		lat += (dn*j11 - de*j21) / det
	}
	return lon, lat
}

// apply runs f over every vertex of a copy of g. The input is never mutated.
func apply(g geom.T, f func(x, y float64) (float64, float64)) (geom.T, error) {
	flat := append([]float64(nil), g.FlatCoords()...)
	stride := g.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		x, y := f(flat[i], flat[i+1])
		if !isFinite(x) || !isFinite(y) {
			return nil, eris.Wrapf(model.ErrProjectionFailure, "proj: vertex (%f, %f)", flat[i], flat[i+1])
		}
		flat[i], flat[i+1] = x, y
	}

	switch s := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(s.Layout(), flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(s.Layout(), flat), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(s.Layout(), flat, s.Ends()), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(s.Layout(), flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(s.Layout(), flat, s.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(s.Layout(), flat, s.Endss()), nil
	default:
		return nil, eris.Wrapf(model.ErrInvalidGeometryKind, "proj: %T", g)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
