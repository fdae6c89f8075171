package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/acedistance/internal/app"
)

// cacheCommand creates the hole cache management command.
func (e *env) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached hole positions",
	}

	cmd.AddCommand(e.cacheRefreshCommand())
	cmd.AddCommand(e.cacheSetCommand())
	cmd.AddCommand(e.cacheListCommand())
	cmd.AddCommand(e.cacheClearCommand())

	return cmd
}

// cacheRefreshCommand creates the "cache refresh" subcommand.
func (e *env) cacheRefreshCommand() *cobra.Command {
	var outDir, layout string

	cmd := &cobra.Command{
		Use:   "refresh <img>",
		Short: "Detect the hole on an image and cache it until the end of the day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := e.requireStore()
			if err != nil {
				return err
			}
			defer closeStore(s, loggerFromContext(ctx))

			if outDir == "" {
				outDir = e.cfg.Program.DefaultOutDir
			}

			entry, err := e.newRunner(ctx, s).RefreshHoleCache(ctx, args[0], outDir, e.layoutName(layout))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSuccess(w, "Cached hole at %v for layout %s", entry.Position, entry.Layout)
			printKeyValue(w, "id", entry.ID)
			printKeyValue(w, "expires", entry.ExpiresAt.Format("02-01-2006 15:04:05"))
			if marked := filepath.Join(outDir, app.HoleImage); fileExists(marked) {
				printFile(w, marked)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory for the marked image (default from config)")
	cmd.Flags().StringVarP(&layout, "layout_name", "l", "", "layout name (default from config)")

	return cmd
}

// cacheSetCommand creates the "cache set" subcommand.
func (e *env) cacheSetCommand() *cobra.Command {
	var (
		hole      string
		layout    string
		name      string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Cache a known hole position",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePoint(hole)
			if err != nil {
				return fmt.Errorf("--hole: %w", err)
			}
			if p == nil {
				return fmt.Errorf("--hole is required")
			}

			s, err := e.requireStore()
			if err != nil {
				return err
			}
			defer closeStore(s, loggerFromContext(cmd.Context()))

			entry, written, err := s.HoleCache().Save(e.layoutName(layout), *p, name, overwrite)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !written {
				printWarning(w, "An active entry already exists for layout %s (use --overwrite to replace it)", entry.Layout)
			} else {
				printSuccess(w, "Cached hole at %v for layout %s", entry.Position, entry.Layout)
			}
			printKeyValue(w, "id", entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&hole, "hole", "", "hole position as x,y")
	cmd.Flags().StringVarP(&layout, "layout_name", "l", "", "layout name (default from config)")
	cmd.Flags().StringVar(&name, "name", "", "optional entry name")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace the active entry")

	return cmd
}

// cacheListCommand creates the "cache list" subcommand.
func (e *env) cacheListCommand() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached hole positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.requireStore()
			if err != nil {
				return err
			}
			defer closeStore(s, loggerFromContext(cmd.Context()))

			entries, err := s.HoleCache().List(layout)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				printWarning(w, "Cache is empty")
				return nil
			}

			now := s.Now()
			for _, entry := range entries {
				status := styleDim.Render("expired")
				if entry.Active(now) {
					status = styleSuccess.Render("active")
				}
				fmt.Fprintf(w, "%s  %s  %s  %s\n",
					styleValue.Render(entry.ID),
					styleTitle.Render(entry.Layout),
					entry.Position,
					status,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&layout, "layout_name", "l", "", "only list entries of this layout")

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (e *env) cacheClearCommand() *cobra.Command {
	var (
		layout  string
		expired bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached hole positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.requireStore()
			if err != nil {
				return err
			}
			defer closeStore(s, loggerFromContext(cmd.Context()))

			var n int64
			if expired {
				n, err = s.HoleCache().PurgeExpired()
			} else {
				n, err = s.HoleCache().Clear(layout)
			}
			if err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Removed %d cache entries", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&layout, "layout_name", "l", "", "only clear entries of this layout")
	cmd.Flags().BoolVar(&expired, "expired", false, "only remove expired entries")

	return cmd
}
