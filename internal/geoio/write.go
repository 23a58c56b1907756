package geoio

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/exposure-cli/internal/exposure"
)

// Format selects the result table serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

var resultHeader = []string{"hazard_label", "spatial_unit_id", "population", "no_data_only"}

// WriteResults serializes a result table to path in the requested format.
func WriteResults(t exposure.Tables, path string, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(t, path)
	case FormatYAML:
		return writeYAML(t, path)
	case FormatXLSX:
		return writeXLSX(t, path)
	default:
		return eris.Errorf("geoio: unknown output format %q", format)
	}
}

func writeCSV(t exposure.Tables, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "geoio: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(resultHeader); err != nil {
		return eris.Wrap(err, "geoio: write csv header")
	}
	for _, row := range t.Rows {
		rec := []string{
			row.Label,
			row.UnitID,
			strconv.FormatFloat(row.Population, 'f', -1, 64),
			strconv.FormatBool(row.NoDataOnly),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "geoio: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "geoio: flush csv")
	}
	return nil
}

// yamlDoc is the on-disk YAML shape: results plus the per-unit errors so a
// run's partial failures travel with its output.
type yamlDoc struct {
	Results []yamlRow   `yaml:"results"`
	Errors  []yamlError `yaml:"errors,omitempty"`
}

type yamlRow struct {
	Label      string  `yaml:"hazard_label,omitempty"`
	UnitID     string  `yaml:"spatial_unit_id,omitempty"`
	Population float64 `yaml:"population"`
	NoDataOnly bool    `yaml:"no_data_only,omitempty"`
}

type yamlError struct {
	Label   string `yaml:"label"`
	Stage   string `yaml:"stage"`
	Message string `yaml:"message"`
}

func writeYAML(t exposure.Tables, path string) error {
	doc := yamlDoc{Results: make([]yamlRow, 0, len(t.Rows))}
	for _, row := range t.Rows {
		doc.Results = append(doc.Results, yamlRow(row))
	}
	for _, ue := range t.Errors {
		doc.Errors = append(doc.Errors, yamlError{Label: ue.Label, Stage: ue.Stage, Message: ue.Message()})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "geoio: marshal yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "geoio: write %s", path)
	}
	return nil
}

func writeXLSX(t exposure.Tables, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "geoio: add results sheet")
	}

	header := sheet.AddRow()
	for _, h := range resultHeader {
		header.AddCell().Value = h
	}
	for _, row := range t.Rows {
		r := sheet.AddRow()
		r.AddCell().Value = row.Label
		r.AddCell().Value = row.UnitID
		r.AddCell().SetFloat(row.Population)
		r.AddCell().SetBool(row.NoDataOnly)
	}

	if len(t.Errors) > 0 {
		errSheet, err := file.AddSheet("Errors")
		if err != nil {
			return eris.Wrap(err, "geoio: add errors sheet")
		}
		header := errSheet.AddRow()
		for _, h := range []string{"label", "stage", "message"} {
			header.AddCell().Value = h
		}
		for _, ue := range t.Errors {
			r := errSheet.AddRow()
			r.AddCell().Value = ue.Label
			r.AddCell().Value = ue.Stage
			r.AddCell().Value = ue.Message()
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "geoio: save %s", path)
	}
	return nil
}

// FormatFromString validates a --format flag value.
func FormatFromString(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatYAML, FormatXLSX:
		return Format(s), nil
	default:
		return "", eris.Errorf("geoio: unknown output format %q", s)
	}
}
