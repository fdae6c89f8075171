package grid_test

import (
	"errors"
	"testing"

	"github.com/ayusman/acedistance/internal/calibration"
	"github.com/ayusman/acedistance/internal/grid"
	"github.com/ayusman/acedistance/internal/grid/gridtest"
)

func TestNewLayout_BuildsCells(t *testing.T) {
	l := gridtest.Layout(t, gridtest.Scenario())

	if l.Rows() != 4 || l.Cols() != 4 {
		t.Fatalf("expected 4x4 nodes, got %dx%d", l.Rows(), l.Cols())
	}
	cells := l.Cells()
	if len(cells) != 9 {
		t.Fatalf("expected 9 cells, got %d", len(cells))
	}
	if l.ClosedCells() != 9 {
		t.Errorf("expected 9 closed cells, got %d", l.ClosedCells())
	}

	// Cells are stored in row-major order.
	for i, c := range cells {
		if c.Row() != i/3 || c.Col() != i%3 {
			t.Errorf("cell %d at (%d,%d), want (%d,%d)", i, c.Row(), c.Col(), i/3, i%3)
		}
		if c.ID() != c.Row()*4+c.Col() {
			t.Errorf("cell (%d,%d) id = %d, want %d", c.Row(), c.Col(), c.ID(), c.Row()*4+c.Col())
		}
	}

	tl, tr, br, bl := cells[4].Corners()
	want := [4]grid.Point{grid.Pt(10, 10), grid.Pt(20, 10), grid.Pt(20, 20), grid.Pt(10, 20)}
	for i, got := range []*grid.Point{tl, tr, br, bl} {
		if got == nil || *got != want[i] {
			t.Errorf("corner %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestNewLayout_InvalidCalibration(t *testing.T) {
	cal := gridtest.Scenario()
	cal.DistanceBetweenNodes = 0

	if _, err := grid.NewLayout(cal); !errors.Is(err, calibration.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if _, err := grid.NewLayout(nil); !errors.Is(err, calibration.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for nil calibration, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := gridtest.WriteLayout(t, t.TempDir(), "range", gridtest.Uniform(3, 5, 20, 2.5))

	l, err := grid.Load(dir, "range")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Rows() != 3 || l.Cols() != 5 {
		t.Errorf("expected 3x5 nodes, got %dx%d", l.Rows(), l.Cols())
	}
	if l.DistanceBetweenNodes() != 2.5 {
		t.Errorf("expected spacing 2.5, got %v", l.DistanceBetweenNodes())
	}

	if _, err := grid.Load(dir, "missing"); !errors.Is(err, calibration.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing layout, got %v", err)
	}
}

func TestContainingCell(t *testing.T) {
	l := gridtest.Layout(t, gridtest.Scenario())

	tests := []struct {
		name    string
		p       grid.Point
		row     int
		col     int
		outside bool
	}{
		{name: "interior", p: grid.Pt(5, 5), row: 0, col: 0},
		{name: "interior far cell", p: grid.Pt(25, 25), row: 2, col: 2},
		{name: "grid corner", p: grid.Pt(0, 0), row: 0, col: 0},
		{name: "far grid corner", p: grid.Pt(30, 30), row: 2, col: 2},
		{name: "shared vertical edge picks lower column", p: grid.Pt(10, 5), row: 0, col: 0},
		{name: "shared horizontal edge picks lower row", p: grid.Pt(15, 10), row: 0, col: 1},
		{name: "shared node picks first cell", p: grid.Pt(20, 20), row: 1, col: 1},
		{name: "left of grid", p: grid.Pt(-1, 5), outside: true},
		{name: "below grid", p: grid.Pt(5, 30.5), outside: true},
		{name: "far away", p: grid.Pt(1000, 1000), outside: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := l.ContainingCell(tt.p)
			if tt.outside {
				if ok {
					t.Errorf("expected %v outside grid, got %v", tt.p, c)
				}
				return
			}
			if !ok {
				t.Fatalf("expected %v inside grid", tt.p)
			}
			if c.Row() != tt.row || c.Col() != tt.col {
				t.Errorf("ContainingCell(%v) = (%d,%d), want (%d,%d)", tt.p, c.Row(), c.Col(), tt.row, tt.col)
			}
		})
	}
}

func TestContainingCell_SkipsOpenCells(t *testing.T) {
	cal := gridtest.Scenario()
	cal.Nodes[1][1] = nil
	l := gridtest.Layout(t, cal)

	if l.ClosedCells() != 5 {
		t.Errorf("expected 5 closed cells with one node missing, got %d", l.ClosedCells())
	}
	// (5,5) lies in cell (0,0), which is open now.
	if c, ok := l.ContainingCell(grid.Pt(5, 5)); ok {
		t.Errorf("point in open cell should be outside grid, got %v", c)
	}
	if _, ok := l.ContainingCell(grid.Pt(25, 25)); !ok {
		t.Error("point in closed cell (2,2) should be found")
	}
}

func TestDistanceInCells(t *testing.T) {
	l := gridtest.Layout(t, gridtest.Uniform(6, 6, 10, 2))

	tests := []struct {
		name   string
		p1, p2 grid.Point
		dx, dy int
	}{
		{"same cell", grid.Pt(5, 5), grid.Pt(6, 7), 0, 0},
		{"adjacent columns", grid.Pt(5, 5), grid.Pt(15, 5), 0, 0},
		{"two apart diagonal", grid.Pt(5, 5), grid.Pt(25, 25), 1, 1},
		{"far apart", grid.Pt(5, 45), grid.Pt(45, 5), 3, 3},
		{"symmetric", grid.Pt(45, 5), grid.Pt(5, 45), 3, 3},
		{"row only", grid.Pt(5, 5), grid.Pt(5, 35), 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy, err := l.DistanceInCells(tt.p1, tt.p2)
			if err != nil {
				t.Fatalf("DistanceInCells() error = %v", err)
			}
			if dx != tt.dx || dy != tt.dy {
				t.Errorf("DistanceInCells() = (%d,%d), want (%d,%d)", dx, dy, tt.dx, tt.dy)
			}
		})
	}
}

func TestDistanceInCells_OutOfGrid(t *testing.T) {
	l := gridtest.Layout(t, gridtest.Scenario())

	if _, _, err := l.DistanceInCells(grid.Pt(5, 5), grid.Pt(500, 5)); !errors.Is(err, grid.ErrOutOfGrid) {
		t.Errorf("expected ErrOutOfGrid, got %v", err)
	}
	if _, _, err := l.DistanceInCells(grid.Pt(-50, -50), grid.Pt(5, 5)); !errors.Is(err, grid.ErrOutOfGrid) {
		t.Errorf("expected ErrOutOfGrid, got %v", err)
	}
}

func TestLayout_NodesIsACopy(t *testing.T) {
	l := gridtest.Layout(t, gridtest.Scenario())

	nodes := l.Nodes()
	nodes[0][0].X = 999

	if got := l.Node(0, 0); got.X != 0 {
		t.Errorf("mutating Nodes() result changed the layout: node (0,0) = %v", got)
	}
	if l.Node(10, 10) != nil {
		t.Error("out of range node should be nil")
	}
}
