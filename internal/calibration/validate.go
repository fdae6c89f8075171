package calibration

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the calibration invariants: a rectangular node matrix of at
// least 2x2, a positive finite node spacing, finite node coordinates, and
// well-formed detection parameters.
func (c *Calibration) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if math.IsInf(c.DistanceBetweenNodes, 0) || math.IsNaN(c.DistanceBetweenNodes) {
		return fmt.Errorf("%w: distance_between_nodes must be finite", ErrConfiguration)
	}

	rows := len(c.Nodes)
	if rows < 2 {
		return fmt.Errorf("%w: node matrix needs at least 2 rows, got %d", ErrConfiguration, rows)
	}
	cols := len(c.Nodes[0])
	if cols < 2 {
		return fmt.Errorf("%w: node matrix needs at least 2 columns, got %d", ErrConfiguration, cols)
	}
	for i, row := range c.Nodes {
		if len(row) != cols {
			return fmt.Errorf("%w: node row %d has %d columns, want %d", ErrConfiguration, i, len(row), cols)
		}
		for j, n := range row {
			if n == nil {
				continue
			}
			if !finite(n.X) || !finite(n.Y) {
				return fmt.Errorf("%w: node (%d,%d) has non-finite coordinates", ErrConfiguration, i, j)
			}
		}
	}

	if err := checkCrop("mask.hole.crop", c.Mask.Hole.Crop); err != nil {
		return err
	}
	if err := checkCrop("mask.ball.crop", c.Mask.Ball.Crop); err != nil {
		return err
	}
	if t := c.Mask.Ball.Threshold; t.Max < t.Min {
		return fmt.Errorf("%w: mask.ball.threshold max %v is below min %v", ErrConfiguration, t.Max, t.Min)
	}

	return nil
}

func checkCrop(name string, r Rect) error {
	if r.IsZero() {
		return nil
	}
	if r.X0 >= r.X1 || r.Y0 >= r.Y1 {
		return fmt.Errorf("%w: %s must satisfy x0 < x1 and y0 < y1, got %+v", ErrConfiguration, name, r)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
