// Package raster provides the read-only gridded population surface the
// overlay pipeline samples. A Grid is value-loaded once and accessed
// concurrently without locking.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grid is a 2-D numeric surface with an axis-aligned affine transform.
// OriginX/OriginY locate the outer corner of the top-left cell; rows
// advance southward. Values are row-major, top row first.
type Grid struct {
	OriginX    float64
	OriginY    float64
	CellWidth  float64
	CellHeight float64
	Width      int
	Height     int
	NoData     float64
	CRS        string

	values []float64
}

// Window is a rectangular sub-region of a grid, expressed in cell indices.
type Window struct {
	Row0, Col0 int
	Rows, Cols int
}

// NewGrid builds a grid from row-major values (top row first).
func NewGrid(originX, originY, cellWidth, cellHeight float64, width, height int, noData float64, values []float64) (*Grid, error) {
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, eris.Errorf("raster: non-positive cell size %fx%f", cellWidth, cellHeight)
	}
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("raster: non-positive dimensions %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, eris.Errorf("raster: %d values for %dx%d grid", len(values), width, height)
	}
	return &Grid{
		OriginX:    originX,
		OriginY:    originY,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
		Width:      width,
		Height:     height,
		NoData:     noData,
		values:     values,
	}, nil
}

// Value returns the cell value at (row, col). Out-of-range indices return
// the no-data sentinel.
func (g *Grid) Value(row, col int) float64 {
	if row < 0 || row >= g.Height || col < 0 || col >= g.Width {
		return g.NoData
	}
	return g.values[row*g.Width+col]
}

// IsNoData reports whether v is the grid's no-data sentinel.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(g.NoData) {
		return math.IsNaN(v)
	}
	return v == g.NoData
}

// Extent returns the grid's outer bounds as (minX, minY, maxX, maxY).
func (g *Grid) Extent() (float64, float64, float64, float64) {
	minX := g.OriginX
	maxY := g.OriginY
	maxX := g.OriginX + float64(g.Width)*g.CellWidth
	minY := g.OriginY - float64(g.Height)*g.CellHeight
	return minX, minY, maxX, maxY
}

// CellBounds returns the axis-aligned square of one cell.
func (g *Grid) CellBounds(row, col int) (float64, float64, float64, float64) {
	minX := g.OriginX + float64(col)*g.CellWidth
	maxY := g.OriginY - float64(row)*g.CellHeight
	return minX, maxY - g.CellHeight, minX + g.CellWidth, maxY
}

// CellArea returns the area of one cell in coordinate units.
func (g *Grid) CellArea() float64 {
	return g.CellWidth * g.CellHeight
}

// WindowFor returns the cell window covering the given bounds, clipped to
// the grid extent. ok is false when the bounds fall entirely outside the
// grid; per-unit work is restricted to this window to bound memory.
func (g *Grid) WindowFor(minX, minY, maxX, maxY float64) (Window, bool) {
	gMinX, gMinY, gMaxX, gMaxY := g.Extent()
	if maxX <= gMinX || minX >= gMaxX || maxY <= gMinY || minY >= gMaxY {
		return Window{}, false
	}

	col0 := int(math.Floor((minX - g.OriginX) / g.CellWidth))
	col1 := int(math.Ceil((maxX - g.OriginX) / g.CellWidth))
	row0 := int(math.Floor((g.OriginY - maxY) / g.CellHeight))
	row1 := int(math.Ceil((g.OriginY - minY) / g.CellHeight))

	col0 = clamp(col0, 0, g.Width)
	col1 = clamp(col1, 0, g.Width)
	row0 = clamp(row0, 0, g.Height)
	row1 = clamp(row1, 0, g.Height)
	if col1 <= col0 || row1 <= row0 {
		return Window{}, false
	}
	return Window{Row0: row0, Col0: col0, Rows: row1 - row0, Cols: col1 - col0}, true
}

// ValidSum returns the sum of all non-no-data cell values.
func (g *Grid) ValidSum() float64 {
	var sum float64
	for _, v := range g.values {
		if !g.IsNoData(v) {
			sum += v
		}
	}
	return sum
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
