// Package server provides the HTTP server for the distance estimator.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/ayusman/acedistance/internal/app"
	"github.com/ayusman/acedistance/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	// Runner executes runs and owns the layout registry. Without it only
	// the health endpoint is served.
	Runner *app.Runner

	// ResultsDir, when set, is served under /results/.
	ResultsDir string

	// RunsPerMinute limits POST /api/runs per client. Zero disables the limit.
	RunsPerMinute int

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Server represents the HTTP server of the application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	logger  *log.Logger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = loggingMiddleware(logger, s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if runner := s.config.Runner; runner != nil {
		layoutHandler := api.NewLayoutHandler(runner.Layouts())

		// Route hole cache requests to their own handler when a store is configured
		var holeCacheHandler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Hole cache is not configured", http.StatusServiceUnavailable)
		})
		if st := runner.Store(); st != nil {
			holeCacheHandler = api.NewHoleCacheHandler(st)
		}

		layoutRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHoleCachePath(r.URL.Path) {
				holeCacheHandler.ServeHTTP(w, r)
				return
			}
			layoutHandler.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/layouts", layoutRouter)
		s.mux.Handle("/api/layouts/", layoutRouter)

		var runHandler http.Handler = api.NewRunHandler(runner)
		if s.config.RunsPerMinute > 0 {
			limiter := newRateLimiter(rate.Every(time.Minute/time.Duration(s.config.RunsPerMinute)), s.config.RunsPerMinute)
			runHandler = limiter.limitMethod(http.MethodPost, runHandler)
		}
		s.mux.Handle("/api/runs", runHandler)
		s.mux.Handle("/api/runs/", runHandler)
	}

	if s.config.ResultsDir != "" {
		fs := http.FileServer(http.Dir(s.config.ResultsDir))
		s.mux.Handle("/results/", http.StripPrefix("/results/", fs))
	}
}

// isHoleCachePath reports whether path is /api/layouts/{id}/hole-cache[/...].
func isHoleCachePath(path string) bool {
	rest := strings.TrimPrefix(path, "/api/layouts/")
	_, sub, ok := strings.Cut(rest, "/")
	return ok && (sub == "hole-cache" || strings.HasPrefix(sub, "hole-cache/"))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Runner != nil {
		response["version"] = s.config.Runner.Version()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
