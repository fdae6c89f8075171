// Package estimate converts two pixel coordinates into a physical distance
// over a calibrated grid layout.
//
// The distance along each axis is decomposed into whole cells strictly
// between the two points plus the fractional offsets ("residuals") of each
// point inside its own cell. Residuals are measured from the point to the
// side of its cell that faces the other point, so that hops and residuals
// tile the gap between the points without overlap.
package estimate

import (
	"fmt"
	"math"

	"github.com/ayusman/acedistance/internal/grid"
)

// Estimator computes distances over a single layout. It holds no mutable
// state and is safe for concurrent use.
type Estimator struct {
	layout *grid.Layout
}

// New creates an Estimator for layout.
func New(layout *grid.Layout) *Estimator {
	return &Estimator{layout: layout}
}

// Layout returns the layout the estimator measures over.
func (e *Estimator) Layout() *grid.Layout {
	return e.layout
}

// Axis holds the per-axis components of an estimate, in meters.
type Axis struct {
	ResidualLeft  float64 `json:"residual_left"`
	ResidualRight float64 `json:"residual_right"`
	Residual      float64 `json:"residual"`
	Cells         int     `json:"cells"`
	Total         float64 `json:"total"`
}

// CellRef identifies a cell of the layout.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Breakdown records every intermediate value of an estimate.
type Breakdown struct {
	Left      grid.Point `json:"left"`
	Right     grid.Point `json:"right"`
	LeftCell  CellRef    `json:"left_cell"`
	RightCell CellRef    `json:"right_cell"`
	SameRow   bool       `json:"same_row"`
	SameCol   bool       `json:"same_col"`
	X         Axis       `json:"x"`
	Y         Axis       `json:"y"`
}

// Result is the outcome of an estimate. Determined is false when either input
// was not detected; Distance is meaningful only when Determined is true.
type Result struct {
	Distance   float64    `json:"distance"`
	Determined bool       `json:"determined"`
	Breakdown  *Breakdown `json:"breakdown,omitempty"`
}

// Undetermined is the result for a missing input.
var Undetermined = Result{}

// Estimate returns the distance in meters between ball and hole, rounded to
// centimeters. A nil input yields an undetermined result and no error. An
// input outside every closed cell yields an error wrapping grid.ErrOutOfGrid.
func (e *Estimator) Estimate(ball, hole *grid.Point) (Result, error) {
	if ball == nil || hole == nil {
		return Undetermined, nil
	}
	return e.Between(*ball, *hole)
}

// Between returns the distance between two present points. Its result does
// not depend on argument order.
func (e *Estimator) Between(p, q grid.Point) (Result, error) {
	left, right := canonical(p, q)

	leftCell, ok := e.layout.ContainingCell(left)
	if !ok {
		return Result{}, fmt.Errorf("%w: %v", grid.ErrOutOfGrid, left)
	}
	rightCell, ok := e.layout.ContainingCell(right)
	if !ok {
		return Result{}, fmt.Errorf("%w: %v", grid.ErrOutOfGrid, right)
	}

	d := e.layout.DistanceBetweenNodes()
	b := &Breakdown{
		Left:      left,
		Right:     right,
		LeftCell:  CellRef{Row: leftCell.Row(), Col: leftCell.Col()},
		RightCell: CellRef{Row: rightCell.Row(), Col: rightCell.Col()},
		SameRow:   leftCell.Row() == rightCell.Row(),
		SameCol:   leftCell.Col() == rightCell.Col(),
	}

	b.X.ResidualLeft = d * horizontalProgress(leftCell, left, facingRight)
	b.X.ResidualRight = d * horizontalProgress(rightCell, right, facingLeft)

	ryLeft := d * verticalProgress(leftCell, left)
	ryRight := d * verticalProgress(rightCell, right)
	// Raw vertical residuals run top to bottom. The upper point needs the
	// remainder down to its bottom edge instead.
	if upperIsLeft(leftCell, rightCell, left, right) {
		ryLeft = d - ryLeft
	} else {
		ryRight = d - ryRight
	}
	b.Y.ResidualLeft = ryLeft
	b.Y.ResidualRight = ryRight

	b.X.Residual = b.X.ResidualLeft + b.X.ResidualRight
	b.Y.Residual = b.Y.ResidualLeft + b.Y.ResidualRight
	// Both points share one gap along an axis when they share the lane.
	if b.SameRow {
		b.Y.Residual = math.Abs(b.Y.ResidualLeft - (d - b.Y.ResidualRight))
	}
	if b.SameCol {
		b.X.Residual = math.Abs(b.X.ResidualLeft - (d - b.X.ResidualRight))
	}

	b.X.Cells, b.Y.Cells = grid.Hops(leftCell, rightCell)
	b.X.Total = float64(b.X.Cells)*d + b.X.Residual
	b.Y.Total = float64(b.Y.Cells)*d + b.Y.Residual

	return Result{
		Distance:   Round(math.Hypot(b.X.Total, b.Y.Total), 2),
		Determined: true,
		Breakdown:  b,
	}, nil
}

// canonical orders p and q by x, breaking ties by y.
func canonical(p, q grid.Point) (left, right grid.Point) {
	if q.X < p.X || (q.X == p.X && q.Y < p.Y) {
		return q, p
	}
	return p, q
}

// upperIsLeft reports whether the left point is the upper one. Cells on
// different rows decide by row index; within a row the pixel y decides and
// a tie goes to the left point.
func upperIsLeft(leftCell, rightCell *grid.Cell, left, right grid.Point) bool {
	if leftCell.Row() != rightCell.Row() {
		return leftCell.Row() < rightCell.Row()
	}
	return left.Y <= right.Y
}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
