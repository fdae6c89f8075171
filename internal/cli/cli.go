// Package cli implements the acedistance command-line interface.
//
// Commands:
//   - estimate: detect ball and hole on a before/after pair and print the run output
//   - distance: estimate the distance between two known pixel positions
//   - cache: manage cached hole positions
//   - grid: inspect and render calibrated layouts
//   - serve: run the HTTP API
//
// All commands accept --verbose for debug logging and --config to select
// the TOML configuration file. Loggers are passed through context.Context.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/acedistance/internal/app"
	"github.com/ayusman/acedistance/internal/config"
	"github.com/ayusman/acedistance/internal/store"
)

var version = "dev"

// SetVersion sets the build version displayed by --version.
func SetVersion(v string) {
	version = v
}

// env is the state shared by every command of one invocation.
type env struct {
	verbose    bool
	configPath string
	cfg        config.Config
}

// Execute runs the CLI with os.Args and returns an error if any command
// fails. Cobra has already printed the error to stderr.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:          "acedistance",
		Short:        "acedistance measures ball to hole distances on calibrated camera images",
		Long:         `acedistance converts the pixel positions of a golf ball and a hole into a distance in meters using a calibrated grid laid over a fixed camera view.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if e.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))

			cfg, err := config.Load(e.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", config.DefaultPath, "configuration file")

	root.AddCommand(e.estimateCommand())
	root.AddCommand(e.distanceCommand())
	root.AddCommand(e.cacheCommand())
	root.AddCommand(e.gridCommand())
	root.AddCommand(e.serveCommand())

	return root
}

// openStore opens the configured store. It returns nil when the store is disabled.
func (e *env) openStore() (*store.Store, error) {
	if e.cfg.Store.Path == "" {
		return nil, nil
	}
	s, err := store.New(e.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// requireStore opens the configured store and fails when it is disabled.
func (e *env) requireStore() (*store.Store, error) {
	s, err := e.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("the store is disabled: set [store] path in the configuration")
	}
	return s, nil
}

func (e *env) newRunner(ctx context.Context, s *store.Store) *app.Runner {
	return app.New(app.Config{
		Version:       e.cfg.Program.Version,
		LayoutsDir:    e.cfg.Grid.LayoutsDir,
		DefaultLayout: e.cfg.Grid.LayoutName,
		DefaultOutDir: e.cfg.Program.DefaultOutDir,
		Store:         s,
		Logger:        loggerFromContext(ctx),
	})
}

// layoutName returns name, or the configured default when name is empty.
func (e *env) layoutName(name string) string {
	if name == "" {
		return e.cfg.Grid.LayoutName
	}
	return name
}

func closeStore(s *store.Store, logger *log.Logger) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warn("failed to close store", "err", err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
