// Package grid models the calibrated node grid laid over a fixed camera view.
//
// A Layout is built once from a calibration and is immutable afterwards, so a
// single Layout may be shared by any number of goroutines.
package grid

import (
	"errors"
	"fmt"

	"github.com/ayusman/acedistance/internal/calibration"
)

// ErrOutOfGrid is returned when a point does not fall inside any closed cell.
var ErrOutOfGrid = errors.New("position out of grid")

// Layout is the node matrix of a calibration together with its cells.
type Layout struct {
	name     string
	nodes    [][]*Point
	spacing  float64
	cells    []*Cell
	cellRows int
	cellCols int
}

// NewLayout validates cal and builds every cell of its node matrix.
func NewLayout(cal *calibration.Calibration) (*Layout, error) {
	if cal == nil {
		return nil, fmt.Errorf("%w: nil calibration", calibration.ErrConfiguration)
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	rows, cols := cal.Rows(), cal.Cols()
	nodes := make([][]*Point, rows)
	for i, row := range cal.Nodes {
		nodes[i] = make([]*Point, cols)
		for j, n := range row {
			if n != nil {
				nodes[i][j] = &Point{X: n.X, Y: n.Y}
			}
		}
	}

	l := &Layout{
		name:     cal.Name,
		nodes:    nodes,
		spacing:  cal.DistanceBetweenNodes,
		cellRows: rows - 1,
		cellCols: cols - 1,
	}

	l.cells = make([]*Cell, 0, l.cellRows*l.cellCols)
	for r := 0; r < l.cellRows; r++ {
		for c := 0; c < l.cellCols; c++ {
			l.cells = append(l.cells, newCell(
				r*cols+c, r, c,
				nodes[r][c], nodes[r][c+1], nodes[r+1][c+1], nodes[r+1][c],
			))
		}
	}

	return l, nil
}

// Load reads the calibration of layout id under dir and builds its Layout.
func Load(dir, id string) (*Layout, error) {
	cal, err := calibration.LoadLayout(dir, id)
	if err != nil {
		return nil, err
	}
	return NewLayout(cal)
}

// Name returns the layout name.
func (l *Layout) Name() string { return l.name }

// DistanceBetweenNodes returns the physical spacing, in meters, between two
// adjacent nodes along either axis.
func (l *Layout) DistanceBetweenNodes() float64 { return l.spacing }

// Rows returns the number of node rows.
func (l *Layout) Rows() int { return len(l.nodes) }

// Cols returns the number of node columns.
func (l *Layout) Cols() int { return l.cellCols + 1 }

// Node returns the node at (row, col), or nil when it is absent or out of range.
func (l *Layout) Node(row, col int) *Point {
	if row < 0 || row >= len(l.nodes) || col < 0 || col >= len(l.nodes[row]) {
		return nil
	}
	return l.nodes[row][col]
}

// Nodes returns a copy of the node matrix.
func (l *Layout) Nodes() [][]*Point {
	out := make([][]*Point, len(l.nodes))
	for i, row := range l.nodes {
		out[i] = make([]*Point, len(row))
		for j, p := range row {
			if p != nil {
				cp := *p
				out[i][j] = &cp
			}
		}
	}
	return out
}

// Cells returns all cells in row-major order.
func (l *Layout) Cells() []*Cell {
	out := make([]*Cell, len(l.cells))
	copy(out, l.cells)
	return out
}

// ClosedCells returns the number of cells with all four corners present.
func (l *Layout) ClosedCells() int {
	n := 0
	for _, c := range l.cells {
		if c.Closed() {
			n++
		}
	}
	return n
}

// ContainingCell returns the first cell, in row-major order, that covers p.
// Points on a shared edge or node therefore resolve to the lowest row, then
// the lowest column.
func (l *Layout) ContainingCell(p Point) (*Cell, bool) {
	for _, c := range l.cells {
		if c.Contains(p) {
			return c, true
		}
	}
	return nil, false
}

// DistanceInCells returns the number of whole cells strictly between the cells
// containing p1 and p2 along each axis. The two cells holding the points are
// not counted.
func (l *Layout) DistanceInCells(p1, p2 Point) (dx, dy int, err error) {
	c1, ok := l.ContainingCell(p1)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutOfGrid, p1)
	}
	c2, ok := l.ContainingCell(p2)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutOfGrid, p2)
	}
	dx, dy = Hops(c1, c2)
	return dx, dy, nil
}

// Hops returns the number of whole cells strictly between c1 and c2 along
// each axis.
func Hops(c1, c2 *Cell) (dx, dy int) {
	dx = max(0, abs(c1.Col()-c2.Col())-1)
	dy = max(0, abs(c1.Row()-c2.Row())-1)
	return dx, dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
