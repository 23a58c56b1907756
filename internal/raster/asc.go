package raster

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// defaultNoData matches the ESRI ASCII grid convention when the header
// omits NODATA_value.
const defaultNoData = -9999

// ReadASC loads an ESRI ASCII grid (.asc). The header carries
// ncols/nrows/xllcorner/yllcorner/cellsize and an optional NODATA_value;
// data rows follow north to south.
func ReadASC(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	noData := float64(defaultNoData)
	var values []float64

	// Header keys alternate with values until the first bare number.
	for sc.Scan() {
		tok := sc.Text()
		if v, numErr := strconv.ParseFloat(tok, 64); numErr == nil {
			values = append(values, v)
			break
		}
		key := strings.ToLower(tok)
		if !sc.Scan() {
			return nil, eris.Errorf("raster: header key %q missing value in %s", tok, path)
		}
		v, parseErr := strconv.ParseFloat(sc.Text(), 64)
		if parseErr != nil {
			return nil, eris.Wrapf(parseErr, "raster: header value for %q in %s", tok, path)
		}
		if key == "nodata_value" {
			noData = v
		} else {
			header[key] = v
		}
	}

	for sc.Scan() {
		v, parseErr := strconv.ParseFloat(sc.Text(), 64)
		if parseErr != nil {
			return nil, eris.Wrapf(parseErr, "raster: data token %q in %s", sc.Text(), path)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}

	for _, key := range []string{"ncols", "nrows", "cellsize", "xllcorner", "yllcorner"} {
		if _, ok := header[key]; !ok {
			return nil, eris.Errorf("raster: header missing %s in %s", key, path)
		}
	}

	width := int(header["ncols"])
	height := int(header["nrows"])
	cell := header["cellsize"]
	originX := header["xllcorner"]
	originY := header["yllcorner"] + float64(height)*cell

	grid, err := NewGrid(originX, originY, cell, cell, width, height, noData, values)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: %s", path)
	}
	grid.CRS = "EPSG:4326"
	return grid, nil
}
