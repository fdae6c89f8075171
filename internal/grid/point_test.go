package grid

import (
	"image"
	"math"
	"testing"
)

func TestSegment_Project(t *testing.T) {
	s := Segment{A: Pt(0, 0), B: Pt(10, 0)}

	tests := []struct {
		p    Point
		want float64
	}{
		{Pt(0, 0), 0},
		{Pt(10, 0), 1},
		{Pt(5, 3), 0.5},
		{Pt(2.5, -4), 0.25},
		{Pt(-5, 0), 0},
		{Pt(15, 2), 1},
	}

	for _, tt := range tests {
		if got := s.Project(tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Project(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	degenerate := Segment{A: Pt(3, 3), B: Pt(3, 3)}
	if got := degenerate.Project(Pt(10, 10)); got != 0 {
		t.Errorf("degenerate Project() = %v, want 0", got)
	}
}

func TestSegment_Distance(t *testing.T) {
	s := Segment{A: Pt(0, 0), B: Pt(10, 0)}

	if got := s.Distance(Pt(5, 3)); math.Abs(got-3) > 1e-12 {
		t.Errorf("Distance to interior = %v, want 3", got)
	}
	if got := s.Distance(Pt(13, 4)); math.Abs(got-5) > 1e-12 {
		t.Errorf("Distance past endpoint = %v, want 5", got)
	}
}

func TestSegment_HorizontalIntersection(t *testing.T) {
	slanted := Segment{A: Pt(0, 0), B: Pt(4, 10)}

	got, ok := slanted.HorizontalIntersection(Pt(100, 5))
	if !ok {
		t.Fatal("expected intersection with slanted segment")
	}
	if got != Pt(2, 5) {
		t.Errorf("HorizontalIntersection() = %v, want (2, 5)", got)
	}

	flat := Segment{A: Pt(0, 0), B: Pt(10, 0)}
	if _, ok := flat.HorizontalIntersection(Pt(5, 5)); ok {
		t.Error("horizontal segment should have no intersection")
	}
}

func TestPoint_ImageRoundTrip(t *testing.T) {
	p := FromImage(image.Pt(12, 34))
	if p != Pt(12, 34) {
		t.Errorf("FromImage() = %v", p)
	}
	if got := Pt(1.6, 2.4).Image(); got != image.Pt(2, 2) {
		t.Errorf("Image() = %v, want (2,2)", got)
	}
}
