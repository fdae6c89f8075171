// Package app runs the ball-to-hole distance pipeline: detection,
// estimation, result rendering and export.
package app

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/ayusman/acedistance/internal/calibration"
	"github.com/ayusman/acedistance/internal/detector"
	"github.com/ayusman/acedistance/internal/store"
)

// Output file names.
const (
	ResultImage  = "result.jpg"
	ResultsJSON  = "results.json"
	HoleImage    = "hole_position.png"
	defaultOut   = "out"
	outOfGridMsg = "Position out of grid!"
)

// DetectorFactory builds a detector for the mask of a layout. debugDir is
// empty unless intermediate images were requested.
type DetectorFactory func(mask calibration.Mask, debugDir string) (detector.Detector, error)

// Config holds configuration options for the Runner.
type Config struct {
	// Version is reported in every Output.
	Version string

	// LayoutsDir holds one directory per layout.
	LayoutsDir string

	// DefaultLayout is used when a request names none.
	DefaultLayout string

	// DefaultOutDir is the parent of per-image output directories when a
	// request names none.
	DefaultOutDir string

	// Store, when set, provides the hole cache and records every run.
	Store *store.Store

	// NewDetector defaults to an OpenCV detector.
	NewDetector DetectorFactory

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Runner executes estimation requests.
type Runner struct {
	config  Config
	layouts *Registry
	logger  *log.Logger
}

// New creates a Runner with the given configuration.
func New(config Config) *Runner {
	if config.DefaultOutDir == "" {
		config.DefaultOutDir = defaultOut
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := &Runner{
		config:  config,
		layouts: NewRegistry(config.LayoutsDir),
		logger:  logger,
	}

	if r.config.NewDetector == nil {
		r.config.NewDetector = func(mask calibration.Mask, debugDir string) (detector.Detector, error) {
			return detector.NewOpenCVDetector(detector.Config{
				Mask:     mask,
				DebugDir: debugDir,
				Logger:   logger,
			})
		}
	}

	return r
}

// Layouts returns the layout registry shared by all requests.
func (r *Runner) Layouts() *Registry {
	return r.layouts
}

// Store returns the configured store, or nil.
func (r *Runner) Store() *store.Store {
	return r.config.Store
}

// Version returns the version reported in outputs.
func (r *Runner) Version() string {
	return r.config.Version
}

// DefaultLayout returns the layout used when a request names none.
func (r *Runner) DefaultLayout() string {
	return r.config.DefaultLayout
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func boolPtr(v bool) *bool { return &v }

func imageNotFound(which, path string) string {
	return fmt.Sprintf("Image (%s) not found on path: %s", which, path)
}
