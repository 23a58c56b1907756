package geoio

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/exposure-cli/internal/exposure"
	"github.com/sells-group/exposure-cli/internal/model"
)

func sampleTables() exposure.Tables {
	return exposure.Tables{
		Rows: []model.ExposureRow{
			{Label: "h1", UnitID: "u1", Population: 123.5},
			{Label: "h2___h3", Population: 0, NoDataOnly: true},
		},
		Errors: []model.UnitError{
			{Label: "h4", Stage: "buffer", Err: eris.New("negative buffer")},
		},
	}
}

func TestWriteResults_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteResults(sampleTables(), path, FormatCSV))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"hazard_label", "spatial_unit_id", "population", "no_data_only"}, records[0])
	assert.Equal(t, []string{"h1", "u1", "123.5", "false"}, records[1])
	assert.Equal(t, []string{"h2___h3", "", "0", "true"}, records[2])
}

func TestWriteResults_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteResults(sampleTables(), path, FormatYAML))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Results []map[string]any `yaml:"results"`
		Errors  []map[string]any `yaml:"errors"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Results, 2)
	assert.Equal(t, "h1", doc.Results[0]["hazard_label"])
	assert.Equal(t, 123.5, doc.Results[0]["population"])
	assert.Equal(t, true, doc.Results[1]["no_data_only"])

	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "buffer", doc.Errors[0]["stage"])
}

func TestWriteResults_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteResults(sampleTables(), path, FormatXLSX))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestWriteResults_UnknownFormat(t *testing.T) {
	err := WriteResults(sampleTables(), filepath.Join(t.TempDir(), "out.bin"), Format("bin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestWriteResults_EmptyTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteResults(exposure.Tables{}, path, FormatCSV))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1) // header only
}

func TestFormatFromString(t *testing.T) {
	for _, s := range []string{"csv", "yaml", "xlsx"} {
		f, err := FormatFromString(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}

	_, err := FormatFromString("parquet")
	assert.Error(t, err)
}
