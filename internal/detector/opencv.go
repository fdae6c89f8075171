package detector

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/acedistance/internal/calibration"
	"github.com/ayusman/acedistance/internal/grid"
)

// Contour filtering constants.
const (
	// holeMinArea drops contours too small to be the hole.
	holeMinArea = 100
	// holeEdgeMargin is the horizontal margin, in pixels, in which a contour
	// cannot be the hole.
	holeEdgeMargin = 50
	// holeBottomMargin is the margin above the crop's bottom edge below which
	// a contour cannot be the hole.
	holeBottomMargin = 15
	// holeMinRatio is the minimum height/width ratio of the hole contour.
	holeMinRatio = 2
	// holeLift is how far above the lowest contour row the hole point sits.
	holeLift = 5

	ballMinArea   = 3
	ballMaxArea   = 30
	ballMaxExtent = 10
	ballMinMeanX  = 100
	ballMinMeanY  = 5
)

// Config holds configuration options for the OpenCV detector.
type Config struct {
	// Mask carries the crop and threshold parameters of the layout.
	Mask calibration.Mask

	// DebugDir, when set, receives the intermediate images of each stage
	// under DebugDir/hole and DebugDir/ball.
	DebugDir string

	// Logger receives debug output. Defaults to log.Default().
	Logger *log.Logger
}

// OpenCVDetector detects the ball and the hole with classic thresholding and
// morphology.
type OpenCVDetector struct {
	config Config
	logger *log.Logger
	mu     sync.Mutex
}

// NewOpenCVDetector creates a detector for the given configuration.
func NewOpenCVDetector(config Config) (*OpenCVDetector, error) {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	if config.DebugDir != "" {
		for _, sub := range []string{"hole", "ball"} {
			if err := os.MkdirAll(filepath.Join(config.DebugDir, sub), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create debug dir: %w", err)
			}
		}
	}

	return &OpenCVDetector{config: config, logger: logger}, nil
}

// FindHole locates the hole flag base in the after image.
func (d *OpenCVDetector) FindHole(after gocv.Mat) (*grid.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if after.Empty() {
		return nil, fmt.Errorf("%w: empty after image", ErrImageNotFound)
	}

	crop := cropRect(d.config.Mask.Hole.Crop, after)
	cropped := after.Region(crop)
	defer cropped.Close()
	d.dump("hole", "0image_cropped.jpg", cropped)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(cropped, &gray, gocv.ColorBGRToGray)
	d.dump("hole", "1gray.jpg", gray)

	erodeKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer erodeKernel.Close()
	eroded := gocv.NewMat()
	defer eroded.Close()
	gocv.Erode(gray, &eroded, erodeKernel)
	d.dump("hole", "2erode.jpg", eroded)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(eroded, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 37, 10)
	d.dump("hole", "3tresh.jpg", thresh)

	openKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(1, 6))
	defer openKernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyExWithParams(thresh, &opened, gocv.MorphOpen, openKernel, 2, gocv.BorderConstant)
	d.dump("hole", "4morph.jpg", opened)

	dilateKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(2, 4))
	defer dilateKernel.Close()
	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(opened, &dilated, dilateKernel)
	d.dump("hole", "5dilate.jpg", dilated)

	eraseContours(&dilated, gocv.ChainApproxSimple, func(pts []image.Point, area float64) bool {
		return area < holeMinArea
	})
	d.dump("hole", "6contour.jpg", dilated)

	contours := gocv.FindContours(dilated, gocv.RetrievalTree, gocv.ChainApproxNone)
	defer contours.Close()

	var selected []image.Point
	maxArea := 0.0
	cropW, cropH := crop.Dx(), crop.Dy()
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		area := gocv.ContourArea(pv)
		pts := pv.ToPoints()
		if area <= maxArea || len(pts) == 0 {
			continue
		}

		b := bounds(pts)
		meanX, _ := mean(pts)
		ratio := math.Inf(1)
		if b.Dx() > 0 {
			ratio = float64(b.Dy()) / float64(b.Dx())
		}
		if meanX < holeEdgeMargin || meanX > float64(cropW-holeEdgeMargin) ||
			b.Min.Y > cropH-holeBottomMargin || ratio < holeMinRatio {
			continue
		}

		selected = pts
		maxArea = area
	}

	if selected == nil {
		d.logger.Debug("no hole contour found")
		return nil, nil
	}

	p := holeAnchor(selected, crop.Min)
	d.logger.Debug("hole detected", "x", p.X, "y", p.Y, "area", maxArea)
	d.dumpMarker("hole", "7result.jpg", after, p)
	return &p, nil
}

// FindBall locates the ball that is present in after but not in before.
func (d *OpenCVDetector) FindBall(before, after gocv.Mat) (*grid.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if before.Empty() || after.Empty() {
		return nil, fmt.Errorf("%w: empty input image", ErrImageNotFound)
	}

	crop := cropRect(d.config.Mask.Ball.Crop, after)
	afterCropped := after.Region(crop)
	defer afterCropped.Close()
	d.dump("ball", "0image_after_cropped.jpg", afterCropped)

	beforeCrop := crop.Intersect(image.Rect(0, 0, before.Cols(), before.Rows()))
	if beforeCrop != crop {
		return nil, fmt.Errorf("before image is %dx%d, smaller than the ball crop %v", before.Cols(), before.Rows(), crop)
	}
	beforeCropped := before.Region(crop)
	defer beforeCropped.Close()
	d.dump("ball", "0image_before_cropped.jpg", beforeCropped)

	beforeMask := d.ballThreshold(beforeCropped)
	defer beforeMask.Close()
	d.dump("ball", "3a_contours_before.jpg", beforeMask)

	k44 := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(4, 4))
	defer k44.Close()
	beforeDilated := gocv.NewMat()
	defer beforeDilated.Close()
	gocv.Dilate(beforeMask, &beforeDilated, k44)
	d.dump("ball", "3a_contours_before_dilate.jpg", beforeDilated)

	afterMask := d.ballThreshold(afterCropped)
	defer afterMask.Close()
	d.dump("ball", "3b_contours_after.jpg", afterMask)

	k32 := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(2, 3))
	defer k32.Close()
	afterDilated := gocv.NewMat()
	defer afterDilated.Close()
	gocv.Dilate(afterMask, &afterDilated, k32)
	d.dump("ball", "3b_contours_after_dilate.jpg", afterDilated)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(afterDilated, beforeDilated, &diff)
	d.dump("ball", "3c_contours_substract.jpg", diff)

	k22 := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(2, 2))
	defer k22.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyExWithParams(diff, &opened, gocv.MorphOpen, k22, 1, gocv.BorderConstant)
	d.dump("ball", "4morph.jpg", opened)

	eraseContours(&opened, gocv.ChainApproxSimple, func(pts []image.Point, area float64) bool {
		b := bounds(pts)
		mx, my := mean(pts)
		return area < ballMinArea || area > ballMaxArea ||
			b.Dx() > ballMaxExtent || b.Dy() > ballMaxExtent ||
			mx < ballMinMeanX || my < ballMinMeanY
	})
	d.dump("ball", "5contour.jpg", opened)

	contours := gocv.FindContours(opened, gocv.RetrievalTree, gocv.ChainApproxNone)
	defer contours.Close()

	var selected []image.Point
	maxRadius := float32(0)
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		_, _, radius := gocv.MinEnclosingCircle(pv)
		if radius > maxRadius {
			selected = pv.ToPoints()
			maxRadius = radius
		}
	}

	if len(selected) == 0 {
		d.logger.Debug("no ball contour found")
		return nil, nil
	}

	mx, my := mean(selected)
	p := grid.Pt(math.Ceil(mx+float64(crop.Min.X)), math.Ceil(my+float64(crop.Min.Y)))
	d.logger.Debug("ball detected", "x", p.X, "y", p.Y, "radius", maxRadius)
	d.dumpMarker("ball", "6result.jpg", after, p)
	return &p, nil
}

// Close is a no-op; the detector holds no native resources between calls.
func (d *OpenCVDetector) Close() error {
	return nil
}

// ballThreshold returns the binary mask of bright pixels in img. When the
// configured range isolates nothing, the fallback lower bound is tried.
func (d *OpenCVDetector) ballThreshold(img gocv.Mat) gocv.Mat {
	t := d.config.Mask.Ball.Threshold

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	d.dump("ball", "1gray.jpg", gray)

	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, float32(t.Min), float32(t.Max), gocv.ThresholdBinary)

	contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
	found := contours.Size() > 0
	contours.Close()

	if !found {
		d.logger.Debug("no contours at threshold, using fallback", "min", t.Min, "fallback", t.Fallback)
		gocv.Threshold(gray, &mask, float32(t.Fallback), float32(t.Max), gocv.ThresholdBinary)
	}
	return mask
}

// dump writes an intermediate image when debug output is enabled.
func (d *OpenCVDetector) dump(stage, name string, img gocv.Mat) {
	if d.config.DebugDir == "" {
		return
	}
	path := filepath.Join(d.config.DebugDir, stage, name)
	if ok := gocv.IMWrite(path, img); !ok {
		d.logger.Warn("failed to write debug image", "path", path)
	}
}

func (d *OpenCVDetector) dumpMarker(stage, name string, img gocv.Mat, p grid.Point) {
	if d.config.DebugDir == "" {
		return
	}
	marked := img.Clone()
	defer marked.Close()
	gocv.Circle(&marked, p.Image(), 2, color.RGBA{R: 255, A: 255}, 2)
	d.dump(stage, name, marked)
}

// eraseContours fills every contour of img for which drop returns true with black.
func eraseContours(img *gocv.Mat, method gocv.ContourApproximationMode, drop func(pts []image.Point, area float64) bool) {
	contours := gocv.FindContours(*img, gocv.RetrievalTree, method)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		pts := pv.ToPoints()
		if len(pts) == 0 {
			continue
		}
		if drop(pts, gocv.ContourArea(pv)) {
			gocv.DrawContours(img, contours, i, color.RGBA{}, -1)
		}
	}
}

// cropRect clamps r to the bounds of img. A zero r selects the whole image.
func cropRect(r calibration.Rect, img gocv.Mat) image.Rectangle {
	full := image.Rect(0, 0, img.Cols(), img.Rows())
	if r.IsZero() {
		return full
	}
	c := image.Rect(r.X0, r.Y0, r.X1, r.Y1).Intersect(full)
	if c.Empty() {
		return full
	}
	return c
}

// holeAnchor returns the point holeLift pixels above the lowest row of pts,
// centered on the contour pixels of that row, in full-image coordinates.
func holeAnchor(pts []image.Point, offset image.Point) grid.Point {
	maxY := pts[0].Y
	for _, p := range pts {
		maxY = max(maxY, p.Y)
	}

	y := maxY - holeLift
	var row []image.Point
	for _, p := range pts {
		if p.Y == y {
			row = append(row, p)
		}
	}
	if len(row) == 0 {
		y = maxY
		for _, p := range pts {
			if p.Y == maxY {
				row = append(row, p)
			}
		}
	}

	mx, _ := mean(row)
	return grid.Pt(math.Trunc(mx)+float64(offset.X), float64(y+offset.Y))
}

func bounds(pts []image.Point) image.Rectangle {
	b := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
	}
	return b
}

func mean(pts []image.Point) (x, y float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	for _, p := range pts {
		x += float64(p.X)
		y += float64(p.Y)
	}
	n := float64(len(pts))
	return x / n, y / n
}
