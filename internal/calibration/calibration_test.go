package calibration

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const layoutsDir = "testdata/layouts"

func TestLoadLayout_Uniform(t *testing.T) {
	c, err := LoadLayout(layoutsDir, "uniform")
	if err != nil {
		t.Fatalf("LoadLayout() error = %v", err)
	}

	if c.Rows() != 4 || c.Cols() != 4 {
		t.Errorf("expected 4x4 nodes, got %dx%d", c.Rows(), c.Cols())
	}
	if c.DistanceBetweenNodes != 2.0 {
		t.Errorf("expected distance_between_nodes 2.0, got %v", c.DistanceBetweenNodes)
	}
	if got := c.Nodes[2][3]; got == nil || *got != (Node{X: 30, Y: 20}) {
		t.Errorf("node (2,3) = %v, want {30 20}", got)
	}

	wantBall := BallMask{
		Crop:      Rect{X0: 0, Y0: 0, X1: 40, Y1: 40},
		Threshold: Threshold{Min: 190, Max: 255, Fallback: 160},
	}
	if diff := cmp.Diff(wantBall, c.Mask.Ball); diff != "" {
		t.Errorf("ball mask mismatch (-want +got):\n%s", diff)
	}
	if len(c.Mask.FieldBorder) != 4 {
		t.Errorf("expected 4 field border points, got %d", len(c.Mask.FieldBorder))
	}
}

func TestLoadLayout_SparseNodes(t *testing.T) {
	c, err := LoadLayout(layoutsDir, "sparse")
	if err != nil {
		t.Fatalf("LoadLayout() error = %v", err)
	}

	if c.Name != "sparse" {
		t.Errorf("expected name to default to layout id, got %q", c.Name)
	}
	if c.Nodes[0][2] != nil {
		t.Errorf("node (0,2) encoded as [] should be absent, got %v", c.Nodes[0][2])
	}
	if c.Nodes[2][0] != nil {
		t.Errorf("node (2,0) encoded as null should be absent, got %v", c.Nodes[2][0])
	}
	if c.Nodes[1][1] == nil {
		t.Error("node (1,1) should be present")
	}
	// Top-level field_border is accepted for older layouts.
	if len(c.Mask.FieldBorder) != 4 {
		t.Errorf("expected legacy field border to be carried, got %d points", len(c.Mask.FieldBorder))
	}
}

func TestLoadLayout_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"missing layout", "does-not-exist"},
		{"malformed json", "broken"},
		{"empty id", ""},
		{"path traversal", "../layouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLayout(layoutsDir, tt.id)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "zero spacing",
			input:   `{"distance_between_nodes": 0, "nodes": [[[0,0],[1,0]],[[0,1],[1,1]]]}`,
			wantMsg: "DistanceBetweenNodes",
		},
		{
			name:    "negative spacing",
			input:   `{"distance_between_nodes": -2, "nodes": [[[0,0],[1,0]],[[0,1],[1,1]]]}`,
			wantMsg: "DistanceBetweenNodes",
		},
		{
			name:    "single row",
			input:   `{"distance_between_nodes": 2, "nodes": [[[0,0],[1,0]]]}`,
			wantMsg: "at least 2 rows",
		},
		{
			name:    "single column",
			input:   `{"distance_between_nodes": 2, "nodes": [[[0,0]],[[0,1]]]}`,
			wantMsg: "at least 2 columns",
		},
		{
			name:    "ragged rows",
			input:   `{"distance_between_nodes": 2, "nodes": [[[0,0],[1,0]],[[0,1]]]}`,
			wantMsg: "row 1 has 1 columns",
		},
		{
			name:    "node with three coordinates",
			input:   `{"distance_between_nodes": 2, "nodes": [[[0,0,0],[1,0]],[[0,1],[1,1]]]}`,
			wantMsg: "3 coordinates",
		},
		{
			name:    "missing nodes",
			input:   `{"distance_between_nodes": 2}`,
			wantMsg: "at least 2 rows",
		},
		{
			name: "inverted crop",
			input: `{"distance_between_nodes": 2, "nodes": [[[0,0],[1,0]],[[0,1],[1,1]]],
				"mask": {"hole": {"crop": {"x0": 10, "y0": 0, "x1": 5, "y1": 10}}}}`,
			wantMsg: "mask.hole.crop",
		},
		{
			name: "threshold out of range",
			input: `{"distance_between_nodes": 2, "nodes": [[[0,0],[1,0]],[[0,1],[1,1]]],
				"mask": {"ball": {"threshold": {"min": 10, "max": 300, "fallback": 5}}}}`,
			wantMsg: "Max",
		},
		{
			name: "short field border",
			input: `{"distance_between_nodes": 2, "nodes": [[[0,0],[1,0]],[[0,1],[1,1]]],
				"mask": {"field_border": [[0,0],[1,1]]}}`,
			wantMsg: "FieldBorder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestListLayouts(t *testing.T) {
	ids, err := ListLayouts(layoutsDir)
	if err != nil {
		t.Fatalf("ListLayouts() error = %v", err)
	}

	want := []string{"broken", "sparse", "uniform"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("ListLayouts() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ListLayouts(filepath.Join(layoutsDir, "nope")); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing dir, got %v", err)
	}
}

func TestMarshalJSON_KeepsAbsentNodes(t *testing.T) {
	c, err := LoadLayout(layoutsDir, "sparse")
	if err != nil {
		t.Fatalf("LoadLayout() error = %v", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	back, err := Parse(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("Parse() of marshalled calibration error = %v", err)
	}
	if diff := cmp.Diff(c.Nodes, back.Nodes); diff != "" {
		t.Errorf("nodes changed after marshal (-want +got):\n%s", diff)
	}
}
