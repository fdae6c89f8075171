package estimate

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/acedistance/internal/grid"
	"github.com/ayusman/acedistance/internal/grid/gridtest"
)

func newScenarioEstimator(t *testing.T) *Estimator {
	t.Helper()
	return New(gridtest.Layout(t, gridtest.Scenario()))
}

func ptr(x, y float64) *grid.Point {
	p := grid.Pt(x, y)
	return &p
}

func TestEstimate_Scenario(t *testing.T) {
	e := newScenarioEstimator(t)

	res, err := e.Estimate(ptr(5, 5), ptr(25, 25))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if !res.Determined {
		t.Fatal("expected determined result")
	}
	if res.Distance != 5.66 {
		t.Errorf("Distance = %v, want 5.66", res.Distance)
	}

	want := &Breakdown{
		Left:      grid.Pt(5, 5),
		Right:     grid.Pt(25, 25),
		LeftCell:  CellRef{Row: 0, Col: 0},
		RightCell: CellRef{Row: 2, Col: 2},
		X:         Axis{ResidualLeft: 1, ResidualRight: 1, Residual: 2, Cells: 1, Total: 4},
		Y:         Axis{ResidualLeft: 1, ResidualRight: 1, Residual: 2, Cells: 1, Total: 4},
	}
	if diff := cmp.Diff(want, res.Breakdown, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimate_Undetermined(t *testing.T) {
	e := newScenarioEstimator(t)

	tests := []struct {
		name       string
		ball, hole *grid.Point
	}{
		{"no ball", nil, ptr(25, 25)},
		{"no hole", ptr(5, 5), nil},
		{"neither", nil, nil},
		{"no ball, hole off grid", nil, ptr(900, 900)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Estimate(tt.ball, tt.hole)
			if err != nil {
				t.Fatalf("Estimate() error = %v, want nil", err)
			}
			if res.Determined {
				t.Errorf("expected undetermined result, got %+v", res)
			}
		})
	}
}

func TestEstimate_OutOfGrid(t *testing.T) {
	e := newScenarioEstimator(t)

	tests := []struct {
		name       string
		ball, hole *grid.Point
	}{
		{"ball off grid", ptr(-40, 5), ptr(25, 25)},
		{"hole off grid", ptr(5, 5), ptr(25, 400)},
		{"both off grid", ptr(-1, -1), ptr(31, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Estimate(tt.ball, tt.hole)
			if !errors.Is(err, grid.ErrOutOfGrid) {
				t.Fatalf("expected ErrOutOfGrid, got %v", err)
			}
			if res.Determined {
				t.Error("out of grid result must not be determined")
			}
		})
	}
}

func TestEstimate_SameRowCorrection(t *testing.T) {
	e := newScenarioEstimator(t)

	res, err := e.Estimate(ptr(2, 3), ptr(25, 7))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	b := res.Breakdown
	if !b.SameRow {
		t.Fatal("expected both points in the same row")
	}

	naive := b.Y.ResidualLeft + b.Y.ResidualRight
	if math.Abs(b.Y.Residual-naive) < 1e-9 {
		t.Errorf("same-row total %v should differ from naive sum %v", b.Y.Residual, naive)
	}
	if math.Abs(b.Y.Residual-0.8) > 1e-9 {
		t.Errorf("same-row vertical residual = %v, want 0.8", b.Y.Residual)
	}
	if math.Abs(b.X.Total-4.6) > 1e-9 {
		t.Errorf("horizontal total = %v, want 4.6", b.X.Total)
	}
	if res.Distance != 4.67 {
		t.Errorf("Distance = %v, want 4.67", res.Distance)
	}
}

func TestEstimate_SameColumnCorrection(t *testing.T) {
	e := newScenarioEstimator(t)

	res, err := e.Estimate(ptr(3, 2), ptr(7, 25))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	b := res.Breakdown
	if !b.SameCol {
		t.Fatal("expected both points in the same column")
	}
	if math.Abs(b.X.Residual-0.8) > 1e-9 {
		t.Errorf("same-column horizontal residual = %v, want 0.8", b.X.Residual)
	}
	if res.Distance != 4.67 {
		t.Errorf("Distance = %v, want 4.67", res.Distance)
	}
}

func TestEstimate_ZeroDistance(t *testing.T) {
	e := New(gridtest.Layout(t, gridtest.Uniform(5, 5, 10, 2)))

	for _, p := range []grid.Point{
		grid.Pt(0, 0), grid.Pt(5, 5), grid.Pt(12.5, 31), grid.Pt(40, 40), grid.Pt(20, 10),
	} {
		res, err := e.Between(p, p)
		if err != nil {
			t.Fatalf("Between(%v, %v) error = %v", p, p, err)
		}
		if res.Distance != 0 {
			t.Errorf("Between(%v, %v) = %v, want 0", p, p, res.Distance)
		}
	}
}

func TestEstimate_GridNodeExactness(t *testing.T) {
	const (
		rows, cols = 5, 6
		spacing    = 10.0
		d          = 2.0
	)
	l := gridtest.Layout(t, gridtest.Uniform(rows, cols, spacing, d))
	e := New(l)

	for r1 := 0; r1 < rows; r1++ {
		for c1 := 0; c1 < cols; c1++ {
			for r2 := 0; r2 < rows; r2++ {
				for c2 := 0; c2 < cols; c2++ {
					p, q := *l.Node(r1, c1), *l.Node(r2, c2)
					res, err := e.Between(p, q)
					if err != nil {
						t.Fatalf("Between(%v, %v) error = %v", p, q, err)
					}
					want := math.Hypot(float64(r1-r2)*d, float64(c1-c2)*d)
					if math.Abs(res.Distance-want) > 0.006 {
						t.Errorf("nodes (%d,%d)-(%d,%d): distance = %v, want %.4f",
							r1, c1, r2, c2, res.Distance, want)
					}
				}
			}
		}
	}
}

func TestEstimate_MatchesEuclideanOnUniformGrid(t *testing.T) {
	const scale = 2.0 / 10.0
	e := New(gridtest.Layout(t, gridtest.Uniform(6, 8, 10, 2)))
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 2000; i++ {
		p := grid.Pt(rng.Float64()*70, rng.Float64()*50)
		q := grid.Pt(rng.Float64()*70, rng.Float64()*50)

		res, err := e.Between(p, q)
		if err != nil {
			t.Fatalf("Between(%v, %v) error = %v", p, q, err)
		}
		want := math.Hypot(p.X-q.X, p.Y-q.Y) * scale
		if math.Abs(res.Distance-want) > 0.0051 {
			t.Fatalf("Between(%v, %v) = %v, want %.4f (breakdown %+v)", p, q, res.Distance, want, res.Breakdown)
		}
	}
}

func TestEstimate_SwapInvariance(t *testing.T) {
	cal := gridtest.Uniform(5, 5, 10, 2)
	// Shear the grid so cells are not axis aligned.
	for r, row := range cal.Nodes {
		for _, n := range row {
			n.X += float64(r) * 1.5
			n.Y += n.X * 0.05
		}
	}
	l := gridtest.Layout(t, cal)
	e := New(l)
	rng := rand.New(rand.NewPCG(7, 11))

	checked := 0
	for checked < 500 {
		p := grid.Pt(rng.Float64()*46, rng.Float64()*44)
		q := grid.Pt(rng.Float64()*46, rng.Float64()*44)
		if _, ok := l.ContainingCell(p); !ok {
			continue
		}
		if _, ok := l.ContainingCell(q); !ok {
			continue
		}

		a, err := e.Between(p, q)
		if err != nil {
			t.Fatalf("Between(%v, %v) error = %v", p, q, err)
		}
		b, err := e.Between(q, p)
		if err != nil {
			t.Fatalf("Between(%v, %v) error = %v", q, p, err)
		}
		if a.Distance != b.Distance {
			t.Errorf("Between(%v, %v) = %v but swapped = %v", p, q, a.Distance, b.Distance)
		}
		checked++
	}
}

func TestEstimate_SwapInvarianceOnSharedX(t *testing.T) {
	e := newScenarioEstimator(t)

	a, err := e.Estimate(ptr(15, 4), ptr(15, 27))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	b, err := e.Estimate(ptr(15, 27), ptr(15, 4))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("swapped estimate differs (-a +b):\n%s", diff)
	}
	if a.Distance != 4.6 {
		t.Errorf("Distance = %v, want 4.6", a.Distance)
	}
}

func TestEstimate_ContinuityWithinCell(t *testing.T) {
	e := newScenarioEstimator(t)
	hole := grid.Pt(25, 25)

	const step = 0.05
	prev, err := e.Between(grid.Pt(0.5, 4), hole)
	if err != nil {
		t.Fatalf("Between() error = %v", err)
	}
	for x := 0.5 + step; x < 9.5; x += step {
		res, err := e.Between(grid.Pt(x, 4), hole)
		if err != nil {
			t.Fatalf("Between() error = %v", err)
		}
		// One step moves 0.01 m at most, plus one unit of rounding.
		if math.Abs(res.Distance-prev.Distance) > 0.021 {
			t.Fatalf("jump at x=%.2f: %v -> %v", x, prev.Distance, res.Distance)
		}
		prev = res
	}
}

func TestEstimate_Concurrent(t *testing.T) {
	e := newScenarioEstimator(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				res, err := e.Estimate(ptr(5, 5), ptr(25, 25))
				if err != nil || res.Distance != 5.66 {
					t.Errorf("concurrent Estimate() = %v, %v", res.Distance, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestVerticalProgress_SkewedCell(t *testing.T) {
	cal := gridtest.Uniform(2, 2, 10, 2)
	cal.Nodes[1][0].X = 2
	cal.Nodes[1][1].X = 12
	l := gridtest.Layout(t, cal)

	c, ok := l.ContainingCell(grid.Pt(4, 5))
	if !ok {
		t.Fatal("expected point inside skewed cell")
	}
	// The horizontal line y=5 crosses the left side halfway down, while an
	// orthogonal projection of the point would land further along it.
	if got := verticalProgress(c, grid.Pt(4, 5)); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("verticalProgress() = %v, want 0.5", got)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{5.656854, 5.66},
		{4.6690, 4.67},
		{0.004, 0},
		{2.346, 2.35},
		{10, 10},
	}
	for _, tt := range tests {
		if got := Round(tt.v, 2); got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
