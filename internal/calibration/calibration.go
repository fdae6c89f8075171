// Package calibration loads and validates the grid calibration resource of a
// camera layout.
//
// A layout lives in its own directory under a layouts root and carries a
// grid.json file describing the pixel positions of the calibrated reference
// nodes, the physical spacing between adjacent nodes, and the detection
// parameters consumed by the object detector.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// FileName is the name of the calibration file inside a layout directory.
const FileName = "grid.json"

// ErrConfiguration is returned when a calibration resource is missing or malformed.
var ErrConfiguration = errors.New("configuration error")

// Node is the pixel coordinate of a calibrated reference point. A nil *Node
// in the node matrix marks a position that was not calibrated.
type Node struct {
	X float64
	Y float64
}

// Rect is a crop rectangle in pixel space. The zero Rect means "no crop".
type Rect struct {
	X0 int `json:"x0" validate:"gte=0"`
	Y0 int `json:"y0" validate:"gte=0"`
	X1 int `json:"x1" validate:"gte=0"`
	Y1 int `json:"y1" validate:"gte=0"`
}

// IsZero reports whether r is the zero rectangle.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// Threshold holds the binary threshold range used to isolate the ball.
// Fallback replaces Min when the first pass finds no contours.
type Threshold struct {
	Min      float64 `json:"min" validate:"gte=0,lte=255"`
	Max      float64 `json:"max" validate:"gte=0,lte=255"`
	Fallback float64 `json:"fallback" validate:"gte=0,lte=255"`
}

// HoleMask holds the hole detection parameters.
type HoleMask struct {
	Crop Rect `json:"crop"`
}

// BallMask holds the ball detection parameters.
type BallMask struct {
	Crop      Rect      `json:"crop"`
	Threshold Threshold `json:"threshold"`
}

// Mask groups the detection parameters carried by a calibration. They are
// opaque to the distance engine and passed through to the detector.
type Mask struct {
	ImgDimensions []int        `json:"img_dimensions,omitempty" validate:"omitempty,len=2,dive,gt=0"`
	FieldBorder   [][2]float64 `json:"field_border,omitempty" validate:"omitempty,min=3"`
	Hole          HoleMask     `json:"hole"`
	Ball          BallMask     `json:"ball"`
}

// Calibration is the typed form of a layout's grid.json.
type Calibration struct {
	Name                 string    `json:"name,omitempty"`
	Description          string    `json:"description,omitempty"`
	Nodes                [][]*Node `json:"-"`
	DistanceBetweenNodes float64   `json:"distance_between_nodes" validate:"gt=0"`
	Mask                 Mask      `json:"mask"`
}

// rawCalibration mirrors the file layout. Nodes are decoded as raw numbers so
// that absent nodes ([] or null) and malformed entries can be told apart.
type rawCalibration struct {
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Nodes                [][][]float64 `json:"nodes"`
	DistanceBetweenNodes float64       `json:"distance_between_nodes"`
	Mask                 Mask          `json:"mask"`
	FieldBorder          [][2]float64  `json:"field_border"`
}

// Parse decodes and validates a calibration from r.
func Parse(r io.Reader) (*Calibration, error) {
	var raw rawCalibration
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode calibration: %v", ErrConfiguration, err)
	}

	nodes := make([][]*Node, len(raw.Nodes))
	for i, row := range raw.Nodes {
		nodes[i] = make([]*Node, len(row))
		for j, n := range row {
			switch len(n) {
			case 0:
				nodes[i][j] = nil
			case 2:
				nodes[i][j] = &Node{X: n[0], Y: n[1]}
			default:
				return nil, fmt.Errorf("%w: node (%d,%d) has %d coordinates, want 0 or 2", ErrConfiguration, i, j, len(n))
			}
		}
	}

	c := &Calibration{
		Name:                 raw.Name,
		Description:          raw.Description,
		Nodes:                nodes,
		DistanceBetweenNodes: raw.DistanceBetweenNodes,
		Mask:                 raw.Mask,
	}
	// Older layouts carry the field border at the top level.
	if len(c.Mask.FieldBorder) == 0 && len(raw.FieldBorder) > 0 {
		c.Mask.FieldBorder = raw.FieldBorder
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and validates the calibration file at path.
func Load(path string) (*Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfiguration, path, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadLayout reads the calibration of layout id stored under dir.
func LoadLayout(dir, id string) (*Calibration, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: invalid layout name %q", ErrConfiguration, id)
	}
	c, err := Load(filepath.Join(dir, id, FileName))
	if err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = id
	}
	return c, nil
}

// ListLayouts returns the sorted ids of the layouts under dir that carry a
// calibration file.
func ListLayouts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read layouts dir: %v", ErrConfiguration, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), FileName)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Rows returns the number of node rows.
func (c *Calibration) Rows() int {
	return len(c.Nodes)
}

// Cols returns the number of node columns.
func (c *Calibration) Cols() int {
	if len(c.Nodes) == 0 {
		return 0
	}
	return len(c.Nodes[0])
}

// MarshalJSON writes the calibration back in file form, with absent nodes as [].
func (c *Calibration) MarshalJSON() ([]byte, error) {
	nodes := make([][][]float64, len(c.Nodes))
	for i, row := range c.Nodes {
		nodes[i] = make([][]float64, len(row))
		for j, n := range row {
			if n == nil {
				nodes[i][j] = []float64{}
				continue
			}
			nodes[i][j] = []float64{n.X, n.Y}
		}
	}
	return json.Marshal(struct {
		Name                 string        `json:"name,omitempty"`
		Description          string        `json:"description,omitempty"`
		Nodes                [][][]float64 `json:"nodes"`
		DistanceBetweenNodes float64       `json:"distance_between_nodes"`
		Mask                 Mask          `json:"mask"`
	}{c.Name, c.Description, nodes, c.DistanceBetweenNodes, c.Mask})
}
