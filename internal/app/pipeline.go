package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/acedistance/internal/detector"
	"github.com/ayusman/acedistance/internal/grid"
	"github.com/ayusman/acedistance/internal/overlay"
	"github.com/ayusman/acedistance/internal/store"
)

// ErrHoleNotDetected is returned when a cache refresh finds no hole.
var ErrHoleNotDetected = errors.New("hole was not detected on the provided image")

// Request describes one estimation run.
type Request struct {
	BeforePath string `json:"img_before_path"`
	AfterPath  string `json:"img_after_path"`
	// OutDir defaults to <DefaultOutDir>/<after image name>.
	OutDir string `json:"out_dir,omitempty"`
	// Layout defaults to the configured layout.
	Layout string `json:"layout_name,omitempty"`
	// Debug exports the intermediate detection images under OutDir.
	Debug bool `json:"debug,omitempty"`
}

// Output is the result of a run, as printed and written to results.json.
type Output struct {
	RunID          string   `json:"run_id,omitempty"`
	Version        string   `json:"version"`
	Distance       *float64 `json:"distance"`
	LayoutName     string   `json:"layout_name"`
	IsHoleDetected *bool    `json:"is_hole_detected"`
	IsBallDetected *bool    `json:"is_ball_detected"`
	ResultsPath    string   `json:"results_path"`
	ImgBeforePath  string   `json:"img_before_path"`
	ImgAfterPath   string   `json:"img_after_path"`
	Error          string   `json:"error"`
}

// positions are the detected inputs of a run.
type positions struct {
	hole, ball *grid.Point
}

// Run executes the pipeline for req. Missing images and positions outside
// the grid are reported through Output.Error with a nil error. Any other
// failure is reported both ways. results.json is always written to the
// output directory.
func (r *Runner) Run(ctx context.Context, req Request) (Output, error) {
	req = r.withDefaults(req)

	out := Output{
		Version:       r.config.Version,
		LayoutName:    req.Layout,
		ResultsPath:   absPath(req.OutDir),
		ImgBeforePath: req.BeforePath,
		ImgAfterPath:  req.AfterPath,
	}

	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		err = fmt.Errorf("failed to create output dir: %w", err)
		out.Error = err.Error()
		return out, err
	}

	pos, err := r.run(ctx, req, &out)
	if err != nil {
		out.Error = err.Error()
		r.logger.Error("run failed", "layout", req.Layout, "err", err)
	}

	if saveErr := r.save(req, pos, &out); saveErr != nil {
		r.logger.Error("failed to save run", "err", saveErr)
		err = errors.Join(err, saveErr)
	}

	return out, err
}

func (r *Runner) withDefaults(req Request) Request {
	if req.Layout == "" {
		req.Layout = r.config.DefaultLayout
	}
	if req.OutDir == "" {
		name := strings.TrimSuffix(filepath.Base(req.AfterPath), filepath.Ext(req.AfterPath))
		req.OutDir = filepath.Join(r.config.DefaultOutDir, name)
	}
	return req
}

func (r *Runner) run(ctx context.Context, req Request, out *Output) (positions, error) {
	var pos positions

	if !isFile(req.BeforePath) {
		out.Error = imageNotFound("before", req.BeforePath)
		return pos, nil
	}
	if !isFile(req.AfterPath) {
		out.Error = imageNotFound("after", req.AfterPath)
		return pos, nil
	}

	entry, err := r.layouts.Get(req.Layout)
	if err != nil {
		return pos, err
	}

	before, err := detector.LoadImage(req.BeforePath)
	if err != nil {
		return pos, err
	}
	defer before.Close()

	after, err := detector.LoadImage(req.AfterPath)
	if err != nil {
		return pos, err
	}
	defer after.Close()

	var debugDir string
	if req.Debug {
		debugDir = req.OutDir
	}
	det, err := r.config.NewDetector(entry.Calibration.Mask, debugDir)
	if err != nil {
		return pos, fmt.Errorf("failed to create detector: %w", err)
	}
	defer det.Close()

	if err := ctx.Err(); err != nil {
		return pos, err
	}

	pos.hole, err = r.locateHole(req.Layout, det, after)
	if err != nil {
		return pos, fmt.Errorf("hole detection failed: %w", err)
	}
	out.IsHoleDetected = boolPtr(pos.hole != nil)

	if err := ctx.Err(); err != nil {
		return pos, err
	}

	pos.ball, err = det.FindBall(before, after)
	if err != nil {
		return pos, fmt.Errorf("ball detection failed: %w", err)
	}
	out.IsBallDetected = boolPtr(pos.ball != nil)

	r.logger.Debug("detection done", "hole", pos.hole, "ball", pos.ball)

	res, err := entry.Estimator.Estimate(pos.ball, pos.hole)
	if errors.Is(err, grid.ErrOutOfGrid) {
		r.logger.Warn("position out of grid", "layout", req.Layout, "err", err)
		out.Error = outOfGridMsg
		return pos, nil
	}
	if err != nil {
		return pos, err
	}
	if !res.Determined {
		return pos, nil
	}

	r.logger.Debug("estimate", "distance", res.Distance, "breakdown", res.Breakdown)

	distance := res.Distance
	out.Distance = &distance

	resultPath := filepath.Join(req.OutDir, ResultImage)
	overlay.DrawResult(&after, *pos.ball, *pos.hole, distance)
	if err := overlay.WriteImage(resultPath, after); err != nil {
		return pos, err
	}
	out.ResultsPath = absPath(resultPath)

	return pos, nil
}

// locateHole prefers the active cache entry of layout over detection.
func (r *Runner) locateHole(layout string, det detector.Detector, after gocv.Mat) (*grid.Point, error) {
	if s := r.config.Store; s != nil {
		e, err := s.HoleCache().Active(layout)
		switch {
		case err == nil:
			r.logger.Debug("hole from cache", "layout", layout, "id", e.ID)
			p := e.Position
			return &p, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	return det.FindHole(after)
}

func (r *Runner) save(req Request, pos positions, out *Output) error {
	if s := r.config.Store; s != nil {
		run := &store.Run{
			Version:        out.Version,
			Layout:         out.LayoutName,
			Distance:       out.Distance,
			IsBallDetected: out.IsBallDetected,
			Hole:           pos.hole,
			Ball:           pos.ball,
			ResultsPath:    out.ResultsPath,
			ImgBeforePath:  out.ImgBeforePath,
			ImgAfterPath:   out.ImgAfterPath,
			Error:          out.Error,
		}
		if out.IsHoleDetected != nil {
			run.IsHoleDetected = *out.IsHoleDetected
		}
		if err := s.Runs().Create(run); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		out.RunID = run.ID
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.OutDir, ResultsJSON), data, 0o644)
}

// RefreshHoleCache detects the hole on img and stores it as the active
// cache entry of layout, replacing any existing one. A marked copy of the
// image is written to outDir/hole_position.png.
func (r *Runner) RefreshHoleCache(ctx context.Context, imgPath, outDir, layout string) (*store.HoleEntry, error) {
	if r.config.Store == nil {
		return nil, errors.New("hole cache requires a store")
	}
	if layout == "" {
		layout = r.config.DefaultLayout
	}
	if !isFile(imgPath) {
		return nil, fmt.Errorf("%w: %s", detector.ErrImageNotFound, imgPath)
	}

	entry, err := r.layouts.Get(layout)
	if err != nil {
		return nil, err
	}

	img, err := detector.LoadImage(imgPath)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	det, err := r.config.NewDetector(entry.Calibration.Mask, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	defer det.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hole, err := det.FindHole(img)
	if err != nil {
		return nil, fmt.Errorf("hole detection failed: %w", err)
	}
	if hole == nil {
		return nil, ErrHoleNotDetected
	}

	cached, _, err := r.config.Store.HoleCache().Save(layout, *hole, filepath.Base(imgPath), true)
	if err != nil {
		return nil, err
	}
	r.logger.Info("hole cache refreshed", "layout", layout, "position", hole, "expires", cached.ExpiresAt)

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return cached, fmt.Errorf("failed to create output dir: %w", err)
		}
		overlay.DrawHole(&img, *hole)
		if err := overlay.WriteImage(filepath.Join(outDir, HoleImage), img); err != nil {
			return cached, err
		}
	}

	return cached, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
