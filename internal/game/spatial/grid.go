// Package spatial provides the broad-phase index used for bullet-player
// collision checks.
//
// The grid stores entity indices (not pointers) in preallocated cells so a
// rebuild every tick does not allocate once capacity has settled.
package spatial

import "math"

// Grid buckets entities into fixed-size square cells. Cells are stored in
// row-major order (cells[row*cols+col]).
type Grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]int
	scratch     []int
}

// NewGrid creates a grid covering [0,width] x [0,height]. Positions outside
// the bounds are clamped into the border cells.
func NewGrid(width, height, cellSize float64) *Grid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]int, 0, 32),
	}
}

// Clear empties every cell but keeps capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds entity id at (x, y).
func (g *Grid) Insert(id int, x, y float64) {
	col := g.clampCol(int(math.Floor(x * g.invCellSize)))
	row := g.clampRow(int(math.Floor(y * g.invCellSize)))
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
}

// QueryRadius returns every entity whose cell overlaps the square around
// (cx, cy) of half-size radius. Candidates may lie outside the radius; the
// caller does the exact distance check. Each entity appears at most once.
//
// The returned slice is reused by the next call.
func (g *Grid) QueryRadius(cx, cy, radius float64) []int {
	g.scratch = g.scratch[:0]

	minCol := g.clampCol(int(math.Floor((cx - radius) * g.invCellSize)))
	maxCol := g.clampCol(int(math.Floor((cx + radius) * g.invCellSize)))
	minRow := g.clampRow(int(math.Floor((cy - radius) * g.invCellSize)))
	maxRow := g.clampRow(int(math.Floor((cy + radius) * g.invCellSize)))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

func (g *Grid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Dimensions returns the grid dimensions.
func (g *Grid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
