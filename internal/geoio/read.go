// Package geoio loads hazard and spatial-unit vector files and writes
// result tables. The compute core never touches files; everything here
// feeds or drains it.
package geoio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/exposure-cli/internal/model"
)

// Property names follow the original dataset conventions, with a plain
// "id" fallback.
var (
	hazardIDKeys = []string{"ID_climate_hazard", "id"}
	unitIDKeys   = []string{"ID_spatial_unit", "id"}
	bufferKey    = "buffer_dist"
)

// LoadHazards reads hazard records from a .geojson or .shp file.
func LoadHazards(path string) ([]model.Hazard, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return hazardsFromGeoJSON(path)
	case ".shp":
		return hazardsFromShapefile(path)
	default:
		return nil, eris.Errorf("geoio: unsupported hazard file type %s", path)
	}
}

// LoadUnits reads spatial-unit records from a .geojson or .shp file.
func LoadUnits(path string) ([]model.SpatialUnit, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return unitsFromGeoJSON(path)
	case ".shp":
		return unitsFromShapefile(path)
	default:
		return nil, eris.Errorf("geoio: unsupported spatial-unit file type %s", path)
	}
}

func hazardsFromGeoJSON(path string) ([]model.Hazard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: read %s", path)
	}
	return ParseHazards(data)
}

func unitsFromGeoJSON(path string) ([]model.SpatialUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: read %s", path)
	}
	return ParseUnits(data)
}

// ParseHazards decodes hazard records from GeoJSON FeatureCollection bytes.
// Features without geometry are skipped; a missing buffer_dist property is
// an error.
func ParseHazards(data []byte) ([]model.Hazard, error) {
	fc, err := parseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	hazards := make([]model.Hazard, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil || len(f.Geometry.FlatCoords()) == 0 {
			continue
		}
		id := featureID(f, hazardIDKeys, i)
		dist, err := propFloat(f.Properties, bufferKey)
		if err != nil {
			return nil, eris.Wrapf(err, "geoio: hazard %s", id)
		}
		hazards = append(hazards, model.Hazard{ID: id, Geometry: f.Geometry, BufferDist: dist})
	}
	return hazards, nil
}

// ParseUnits decodes spatial-unit records from GeoJSON FeatureCollection
// bytes.
func ParseUnits(data []byte) ([]model.SpatialUnit, error) {
	fc, err := parseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	units := make([]model.SpatialUnit, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil || len(f.Geometry.FlatCoords()) == 0 {
			continue
		}
		units = append(units, model.SpatialUnit{ID: featureID(f, unitIDKeys, i), Geometry: f.Geometry})
	}
	return units, nil
}

func parseFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "geoio: parse feature collection")
	}
	return &fc, nil
}

// featureID resolves a feature's id from its properties, falling back to
// the feature id and finally the record index.
func featureID(f *geojson.Feature, keys []string, index int) string {
	for _, k := range keys {
		if v, ok := f.Properties[k]; ok {
			return propString(v)
		}
	}
	if f.ID != "" {
		return f.ID
	}
	return strconv.Itoa(index)
}

func propString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func propFloat(props map[string]any, key string) (float64, error) {
	v, ok := props[key]
	if !ok {
		return 0, eris.Errorf("geoio: missing property %q", key)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "geoio: property %q", key)
		}
		return f, nil
	default:
		return 0, eris.Errorf("geoio: property %q has type %T", key, v)
	}
}
