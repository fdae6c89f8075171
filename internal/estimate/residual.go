package estimate

import "github.com/ayusman/acedistance/internal/grid"

// facing names the side of its cell a point looks toward.
type facing int

const (
	facingRight facing = iota
	facingLeft
)

// horizontalProgress returns the fraction, in [0,1], of the cell width that
// lies between p and the side of its cell facing the other point. The left
// point of a pair faces right, so its fraction runs from the right edge
// back to p. The right point faces left, so its fraction runs from the left
// edge up to p. The projection is taken on whichever horizontal side of the
// cell is closer to p.
func horizontalProgress(c *grid.Cell, p grid.Point, f facing) float64 {
	side := c.Top()
	if bottom := c.Bottom(); bottom.Distance(p) < side.Distance(p) {
		side = bottom
	}
	if f == facingRight {
		side = grid.Segment{A: side.B, B: side.A}
	}
	return side.Project(p)
}

// verticalProgress returns the fraction, in [0,1], of the cell height from its
// top edge down to p. The horizontal line through p is intersected with the
// closer vertical side and the intersection is projected onto that side. A
// horizontal side has no intersection, and p itself is projected instead.
func verticalProgress(c *grid.Cell, p grid.Point) float64 {
	side := c.Left()
	if right := c.Right(); right.Distance(p) < side.Distance(p) {
		side = right
	}
	if x, ok := side.HorizontalIntersection(p); ok {
		return side.Project(x)
	}
	return side.Project(p)
}
