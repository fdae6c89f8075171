// Package gridtest builds synthetic calibrations for tests.
package gridtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/acedistance/internal/calibration"
	"github.com/ayusman/acedistance/internal/grid"
)

// Uniform returns a rows x cols calibration with nodes at
// (col*spacing, row*spacing) pixels and d meters between adjacent nodes.
func Uniform(rows, cols int, spacing, d float64) *calibration.Calibration {
	nodes := make([][]*calibration.Node, rows)
	for r := range nodes {
		nodes[r] = make([]*calibration.Node, cols)
		for c := range nodes[r] {
			nodes[r][c] = &calibration.Node{X: float64(c) * spacing, Y: float64(r) * spacing}
		}
	}
	return &calibration.Calibration{
		Name:                 "uniform",
		Nodes:                nodes,
		DistanceBetweenNodes: d,
	}
}

// Scenario returns the 4x4 calibration with nodes 10 px apart and 2 m spacing.
func Scenario() *calibration.Calibration {
	return Uniform(4, 4, 10, 2.0)
}

// Layout builds a Layout from cal, failing the test on error.
func Layout(t testing.TB, cal *calibration.Calibration) *grid.Layout {
	t.Helper()
	l, err := grid.NewLayout(cal)
	if err != nil {
		t.Fatalf("grid.NewLayout() error = %v", err)
	}
	return l
}

// WriteLayout stores cal as <dir>/<id>/grid.json and returns dir.
func WriteLayout(t testing.TB, dir, id string, cal *calibration.Calibration) string {
	t.Helper()
	layoutDir := filepath.Join(dir, id)
	if err := os.MkdirAll(layoutDir, 0o755); err != nil {
		t.Fatalf("failed to create layout dir: %v", err)
	}
	data, err := json.Marshal(cal)
	if err != nil {
		t.Fatalf("failed to marshal calibration: %v", err)
	}
	if err := os.WriteFile(filepath.Join(layoutDir, calibration.FileName), data, 0o644); err != nil {
		t.Fatalf("failed to write calibration: %v", err)
	}
	return dir
}
