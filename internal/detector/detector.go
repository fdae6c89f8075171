// Package detector locates the ball and the hole in before/after photographs
// of a calibrated camera view.
package detector

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/ayusman/acedistance/internal/grid"
)

// ErrImageNotFound is returned when an input image does not exist or cannot be decoded.
var ErrImageNotFound = errors.New("image not found")

// Detector defines the interface for ball and hole detection implementations.
type Detector interface {
	// FindHole locates the hole in the after image.
	// Returns nil if no hole is detected.
	FindHole(after gocv.Mat) (*grid.Point, error)

	// FindBall locates the ball that appears in after but not in before.
	// Returns nil if no ball is detected.
	FindBall(before, after gocv.Mat) (*grid.Point, error)

	// Close releases any resources held by the detector.
	Close() error
}

// LoadImage reads a color image from path. The caller must Close the result.
func LoadImage(path string) (gocv.Mat, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrImageNotFound, path)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: cannot decode %s", ErrImageNotFound, path)
	}
	return img, nil
}
