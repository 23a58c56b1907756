package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// GroupSeparator joins member hazard ids into a group label. Input ids
// containing the separator are rejected so labels stay unambiguous.
const GroupSeparator = "___"

// Sentinel errors for per-record failures. Callers match with eris.Is;
// each failed record is reported alongside the partial result set rather
// than aborting the run.
var (
	ErrInvalidGeometryKind   = eris.New("model: invalid geometry kind")
	ErrInvalidBufferDistance = eris.New("model: negative buffer distance")
	ErrProjectionFailure     = eris.New("model: projection failure")
	ErrSeparatorInID         = eris.New("model: id contains group separator")
)

// Hazard is one exposure source geometry with its buffer distance in meters.
// Constructed from input rows, immutable thereafter.
type Hazard struct {
	ID         string  `json:"id"`
	Geometry   geom.T  `json:"-"`
	BufferDist float64 `json:"buffer_dist"`
}

// BufferedHazard is the buffered form of one input hazard, back in
// geographic coordinates. IDs carries the source hazard id (plural after
// grouping merges).
type BufferedHazard struct {
	IDs      []string
	Geometry *geom.MultiPolygon
}

// HazardGroup is a connected component of overlapping buffered hazards.
// IDs preserve caller input order; Geometry is the union of the members.
type HazardGroup struct {
	IDs      []string
	Geometry *geom.MultiPolygon
}

// Label returns the group identity for output rows: the single member id,
// or member ids joined by GroupSeparator in stable order.
func (g HazardGroup) Label() string {
	return strings.Join(g.IDs, GroupSeparator)
}

// SpatialUnit is an auxiliary polygon (county, ZCTA, tract) used to
// disaggregate exposure output.
type SpatialUnit struct {
	ID       string `json:"id"`
	Geometry geom.T `json:"-"`
}

// ExposureRow is one output record: population within a hazard group,
// optionally restricted to one spatial unit. NoDataOnly distinguishes a
// region where every covered cell was the raster's no-data sentinel from a
// genuinely zero population.
type ExposureRow struct {
	Label      string  `json:"label"`
	UnitID     string  `json:"unit_id,omitempty"`
	Population float64 `json:"population"`
	NoDataOnly bool    `json:"no_data_only,omitempty"`
}

// UnitError records an independent per-unit failure. Sibling units keep
// processing; the run fails outright only when every unit fails.
type UnitError struct {
	Label string `json:"label"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

// Message returns the wrapped error text for serialization.
func (e UnitError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// SupportedGeometry reports whether g is one of the closed set of geometry
// kinds the pipeline accepts. Geometry collections are excluded.
func SupportedGeometry(g geom.T) bool {
	switch g.(type) {
	case *geom.Point, *geom.LineString, *geom.Polygon,
		*geom.MultiPoint, *geom.MultiLineString, *geom.MultiPolygon:
		return true
	default:
		return false
	}
}

// ValidateHazard checks one input hazard record: supported geometry kind,
// non-negative buffer distance, and a label-safe id.
func ValidateHazard(h Hazard) error {
	if h.Geometry == nil || !SupportedGeometry(h.Geometry) {
		return eris.Wrapf(ErrInvalidGeometryKind, "hazard %s", h.ID)
	}
	if h.BufferDist < 0 {
		return eris.Wrapf(ErrInvalidBufferDistance, "hazard %s: %f", h.ID, h.BufferDist)
	}
	if strings.Contains(h.ID, GroupSeparator) {
		return eris.Wrapf(ErrSeparatorInID, "hazard %s", h.ID)
	}
	return nil
}

// ValidateUnit checks one spatial unit record. Units take part in polygon
// overlay, so only areal geometry kinds are accepted.
func ValidateUnit(u SpatialUnit) error {
	switch u.Geometry.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return nil
	default:
		return eris.Wrapf(ErrInvalidGeometryKind, "spatial unit %s", u.ID)
	}
}
