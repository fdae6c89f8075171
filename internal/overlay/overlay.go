// Package overlay renders estimation results and grid diagnostics.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/acedistance/internal/grid"
)

// Label placement relative to the midpoint between ball and hole.
const (
	labelOffsetX = -75
	labelOffsetY = -25
)

var (
	resultColor = color.RGBA{B: 255, A: 255}
	holeColor   = color.RGBA{R: 255, A: 255}
)

// Label formats a distance the way it is printed on result images.
func Label(distance float64) string {
	return strconv.FormatFloat(distance, 'f', -1, 64) + "m"
}

// LabelOrigin returns the bottom-left corner of the distance label.
func LabelOrigin(ball, hole image.Point) image.Point {
	return image.Pt((ball.X+hole.X)/2+labelOffsetX, (ball.Y+hole.Y)/2+labelOffsetY)
}

// DrawResult draws a line from ball to hole on img and labels it with distance.
func DrawResult(img *gocv.Mat, ball, hole grid.Point, distance float64) {
	b, h := ball.Image(), hole.Image()
	gocv.Line(img, b, h, resultColor, 1)
	gocv.PutText(img, Label(distance), LabelOrigin(b, h), gocv.FontHersheySimplex, 1, resultColor, 2)
}

// DrawHole marks a detected hole position on img.
func DrawHole(img *gocv.Mat, hole grid.Point) {
	gocv.Circle(img, hole.Image(), 2, holeColor, 2)
}

// DrawNodes draws every present node of layout on img, one color per row,
// with its (row,col) index next to it.
func DrawNodes(img *gocv.Mat, layout *grid.Layout) {
	rng := rand.New(rand.NewPCG(uint64(layout.Rows()), uint64(layout.Cols())))
	for r, row := range layout.Nodes() {
		c := color.RGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255}
		for col, n := range row {
			if n == nil {
				continue
			}
			p := n.Image()
			gocv.Circle(img, p, 4, c, -1)
			gocv.PutText(img, fmt.Sprintf("%d,%d", r, col), p.Add(image.Pt(5, -5)), gocv.FontHersheyPlain, 0.8, c, 1)
		}
	}
}

// WriteImage encodes img to path.
func WriteImage(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write image %s", path)
	}
	return nil
}
