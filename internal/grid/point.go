package grid

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a pixel coordinate in image space. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// FromImage converts an integer image point.
func FromImage(p image.Point) Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

// Image rounds p to the nearest integer image point.
func (p Point) Image() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// String formats p as "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func fromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Segment is the directed line segment from A to B.
type Segment struct {
	A Point
	B Point
}

// Project returns the parameter t in [0,1] of the orthogonal projection of p
// onto s. A degenerate segment projects every point to t = 0.
func (s Segment) Project(p Point) float64 {
	ab := r2.Sub(s.B.vec(), s.A.vec())
	den := r2.Dot(ab, ab)
	if den == 0 {
		return 0
	}
	t := r2.Dot(r2.Sub(p.vec(), s.A.vec()), ab) / den
	return clamp01(t)
}

// At returns the point at parameter t along s.
func (s Segment) At(t float64) Point {
	ab := r2.Sub(s.B.vec(), s.A.vec())
	return fromVec(r2.Add(s.A.vec(), r2.Scale(t, ab)))
}

// Distance returns the shortest distance from p to s.
func (s Segment) Distance(p Point) float64 {
	return r2.Norm(r2.Sub(p.vec(), s.At(s.Project(p)).vec()))
}

// HorizontalIntersection intersects the horizontal line through p with the
// line carrying s. It returns false when s is horizontal, since the two lines
// are then parallel or coincident.
func (s Segment) HorizontalIntersection(p Point) (Point, bool) {
	dy := s.B.Y - s.A.Y
	if dy == 0 {
		return Point{}, false
	}
	u := (p.Y - s.A.Y) / dy
	return Point{X: s.A.X + u*(s.B.X-s.A.X), Y: p.Y}, true
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
