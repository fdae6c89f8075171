package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/acedistance/internal/app"
	"github.com/ayusman/acedistance/internal/grid"
)

// estimateCommand creates the "estimate" command that runs the full pipeline.
func (e *env) estimateCommand() *cobra.Command {
	var (
		outDir string
		layout string
		debug  bool
	)

	cmd := &cobra.Command{
		Use:   "estimate <img-before> <img-after>",
		Short: "Detect ball and hole and estimate their distance",
		Long: `Detect the hole and the ball on a before/after image pair, estimate the distance between them and export the results.

The run output is printed as JSON on stdout and written to <out>/results.json. When a distance is found, a marked copy of the after image is written to <out>/result.jpg.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := e.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s, loggerFromContext(ctx))

			req := app.Request{
				BeforePath: args[0],
				AfterPath:  args[1],
				OutDir:     outDir,
				Layout:     layout,
				Debug:      debug || e.cfg.Program.DebugMode,
			}

			out, runErr := e.newRunner(ctx, s).Run(ctx, req)

			data, err := json.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			return runErr
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default <default_outdir>/<img-after name>)")
	cmd.Flags().StringVarP(&layout, "grid_layout", "g", "", "layout name (default from config)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "export intermediate detection images")

	return cmd
}

// distanceCommand creates the "distance" command that estimates between
// two known positions.
func (e *env) distanceCommand() *cobra.Command {
	var (
		ball, hole string
		layout     string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Estimate the distance between two pixel positions",
		Example: `  acedistance distance --ball 512,380 --hole 640,212
  acedistance distance --ball 512,380 --hole 640,212 -g sunset --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			b, err := parsePoint(ball)
			if err != nil {
				return fmt.Errorf("--ball: %w", err)
			}
			h, err := parsePoint(hole)
			if err != nil {
				return fmt.Errorf("--hole: %w", err)
			}

			entry, err := e.newRunner(cmd.Context(), nil).Layouts().Get(e.layoutName(layout))
			if err != nil {
				return err
			}

			res, err := entry.Estimator.Estimate(b, h)
			if err != nil {
				return err
			}
			logger.Debug("estimate", "breakdown", res.Breakdown)

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if !res.Determined {
				printWarning(w, "distance undetermined: ball and hole are both required")
				return nil
			}
			printKeyValue(w, "distance", strconv.FormatFloat(res.Distance, 'f', -1, 64)+"m")
			return nil
		},
	}

	cmd.Flags().StringVar(&ball, "ball", "", "ball position as x,y")
	cmd.Flags().StringVar(&hole, "hole", "", "hole position as x,y")
	cmd.Flags().StringVarP(&layout, "grid_layout", "g", "", "layout name (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result with its breakdown as JSON")

	return cmd
}

// parsePoint parses "x,y". An empty string is an undetected position.
func parsePoint(s string) (*grid.Point, error) {
	if s == "" {
		return nil, nil
	}
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errors.New("expected x,y")
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid y: %w", err)
	}
	p := grid.Pt(x, y)
	return &p, nil
}
