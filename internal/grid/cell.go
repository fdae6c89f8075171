package grid

import (
	"fmt"

	"github.com/ctessum/geom"
)

// Cell is the quadrilateral bounded by four adjacent calibration nodes.
// Corners are ordered top-left, top-right, bottom-right, bottom-left.
// A cell is closed only when all four corners were calibrated; open cells
// contain nothing.
type Cell struct {
	id      int
	row     int
	col     int
	corners [4]*Point
	polygon geom.Polygon
}

func newCell(id, row, col int, tl, tr, br, bl *Point) *Cell {
	c := &Cell{
		id:      id,
		row:     row,
		col:     col,
		corners: [4]*Point{tl, tr, br, bl},
	}
	if c.Closed() {
		path := make(geom.Path, 0, 5)
		for _, p := range c.corners {
			path = append(path, geom.Point{X: p.X, Y: p.Y})
		}
		path = append(path, path[0])
		c.polygon = geom.Polygon{path}
	}
	return c
}

// ID returns the cell index in row-major order over the node matrix
// (row*nodeCols + col).
func (c *Cell) ID() int { return c.id }

// Row returns the cell's row index.
func (c *Cell) Row() int { return c.row }

// Col returns the cell's column index.
func (c *Cell) Col() int { return c.col }

// Closed reports whether all four corners are present.
func (c *Cell) Closed() bool {
	for _, p := range c.corners {
		if p == nil {
			return false
		}
	}
	return true
}

// Corners returns the tl, tr, br, bl corners. Absent corners are nil.
func (c *Cell) Corners() (tl, tr, br, bl *Point) {
	return c.corners[0], c.corners[1], c.corners[2], c.corners[3]
}

// Contains reports whether p lies inside the cell or on its boundary.
func (c *Cell) Contains(p Point) bool {
	if c.polygon == nil {
		return false
	}
	switch (geom.Point{X: p.X, Y: p.Y}).Within(c.polygon) {
	case geom.Inside, geom.OnEdge:
		return true
	}
	// Points a rounding error away from a side still count as on it.
	for _, s := range []Segment{c.Top(), c.Right(), c.Bottom(), c.Left()} {
		if s.Distance(p) <= edgeTolerance {
			return true
		}
	}
	return false
}

const edgeTolerance = 1e-9

// Top returns the top side oriented left to right.
func (c *Cell) Top() Segment { return Segment{A: *c.corners[0], B: *c.corners[1]} }

// Bottom returns the bottom side oriented left to right.
func (c *Cell) Bottom() Segment { return Segment{A: *c.corners[3], B: *c.corners[2]} }

// Left returns the left side oriented top to bottom.
func (c *Cell) Left() Segment { return Segment{A: *c.corners[0], B: *c.corners[3]} }

// Right returns the right side oriented top to bottom.
func (c *Cell) Right() Segment { return Segment{A: *c.corners[1], B: *c.corners[2]} }

// String formats the cell as "cell(row,col)".
func (c *Cell) String() string {
	return fmt.Sprintf("cell(%d,%d)", c.row, c.col)
}
