package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/acedistance/internal/detector"
	"github.com/ayusman/acedistance/internal/overlay"
)

// gridCommand creates the layout inspection command.
func (e *env) gridCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Inspect and render calibrated layouts",
	}

	cmd.AddCommand(e.gridListCommand())
	cmd.AddCommand(e.gridInfoCommand())
	cmd.AddCommand(e.gridPlotCommand())
	cmd.AddCommand(e.gridDrawCommand())

	return cmd
}

func (e *env) gridListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the layouts found in the layouts directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := e.newRunner(cmd.Context(), nil).Layouts().List()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(ids) == 0 {
				printWarning(w, "No layouts in %s", e.cfg.Grid.LayoutsDir)
				return nil
			}
			for _, id := range ids {
				marker := " "
				if id == e.cfg.Grid.LayoutName {
					marker = styleSuccess.Render("*")
				}
				fmt.Fprintf(w, "%s %s\n", marker, id)
			}
			return nil
		},
	}
}

func (e *env) gridInfoCommand() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the dimensions of a layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := e.newRunner(cmd.Context(), nil).Layouts().Get(e.layoutName(layout))
			if err != nil {
				return err
			}
			l := entry.Layout

			w := cmd.OutOrStdout()
			printTitle(w, "%s", l.Name())
			if entry.Calibration.Description != "" {
				fmt.Fprintln(w, styleDim.Render(entry.Calibration.Description))
			}
			printKeyValue(w, "nodes", fmt.Sprintf("%d x %d", l.Rows(), l.Cols()))
			printKeyValue(w, "cells", fmt.Sprintf("%d (%d closed)", len(l.Cells()), l.ClosedCells()))
			printKeyValue(w, "node spacing", strconv.FormatFloat(l.DistanceBetweenNodes(), 'f', -1, 64)+"m")
			return nil
		},
	}

	cmd.Flags().StringVarP(&layout, "grid_layout", "g", "", "layout name (default from config)")

	return cmd
}

func (e *env) gridPlotCommand() *cobra.Command {
	var layout, output string

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render the cells and nodes of a layout as a PNG chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := e.newRunner(cmd.Context(), nil).Layouts().Get(e.layoutName(layout))
			if err != nil {
				return err
			}
			if err := overlay.SaveGridPlot(entry.Layout, output); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSuccess(w, "Plotted layout %s", entry.Layout.Name())
			printFile(w, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&layout, "grid_layout", "g", "", "layout name (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "grid.png", "output file")

	return cmd
}

func (e *env) gridDrawCommand() *cobra.Command {
	var layout, output string

	cmd := &cobra.Command{
		Use:   "draw <img>",
		Short: "Draw the nodes of a layout on a camera image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := e.newRunner(cmd.Context(), nil).Layouts().Get(e.layoutName(layout))
			if err != nil {
				return err
			}

			img, err := detector.LoadImage(args[0])
			if err != nil {
				return err
			}
			defer img.Close()

			overlay.DrawNodes(&img, entry.Layout)
			if err := overlay.WriteImage(output, img); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSuccess(w, "Drew %d x %d nodes", entry.Layout.Rows(), entry.Layout.Cols())
			printFile(w, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&layout, "grid_layout", "g", "", "layout name (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "nodes.jpg", "output file")

	return cmd
}
