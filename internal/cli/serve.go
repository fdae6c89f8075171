package cli

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/acedistance/internal/server"
)

// serveCommand creates the "serve" command that runs the HTTP API.
func (e *env) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			s, err := e.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s, logger)
			if s == nil {
				logger.Warn("store disabled: hole cache and run history endpoints are unavailable")
			}

			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			srv := server.New(server.Config{
				Runner:        e.newRunner(ctx, s),
				ResultsDir:    e.cfg.Program.DefaultOutDir,
				RunsPerMinute: e.cfg.Server.RunsPerMinute,
				Logger:        logger,
			})

			logger.Info("serving layouts", "dir", e.cfg.Grid.LayoutsDir, "default", e.cfg.Grid.LayoutName)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}
