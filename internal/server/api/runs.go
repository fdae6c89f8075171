package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/acedistance/internal/app"
	"github.com/ayusman/acedistance/internal/store"
)

// defaultRunLimit caps GET /api/runs when no limit is given.
const defaultRunLimit = 50

// RunHandler handles HTTP requests for run resources.
type RunHandler struct {
	runner *app.Runner
}

// NewRunHandler creates a new RunHandler with the given runner.
func NewRunHandler(runner *app.Runner) *RunHandler {
	return &RunHandler{runner: runner}
}

// ServeHTTP routes requests to the appropriate methods.
// Expected paths: /api/runs or /api/runs/{id}.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.get(w, r, path)
}

type runResponse struct {
	ID             string   `json:"id"`
	Version        string   `json:"version"`
	Layout         string   `json:"layout_name"`
	Distance       *float64 `json:"distance"`
	IsHoleDetected bool     `json:"is_hole_detected"`
	IsBallDetected *bool    `json:"is_ball_detected"`
	Hole           *point   `json:"hole"`
	Ball           *point   `json:"ball"`
	ResultsPath    string   `json:"results_path"`
	ImgBeforePath  string   `json:"img_before_path"`
	ImgAfterPath   string   `json:"img_after_path"`
	Error          string   `json:"error"`
	CreatedAt      string   `json:"created_at"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

// toRunResponse converts a store.Run to a runResponse.
func toRunResponse(run *store.Run) runResponse {
	return runResponse{
		ID:             run.ID,
		Version:        run.Version,
		Layout:         run.Layout,
		Distance:       run.Distance,
		IsHoleDetected: run.IsHoleDetected,
		IsBallDetected: run.IsBallDetected,
		Hole:           fromGrid(run.Hole),
		Ball:           fromGrid(run.Ball),
		ResultsPath:    run.ResultsPath,
		ImgBeforePath:  run.ImgBeforePath,
		ImgAfterPath:   run.ImgAfterPath,
		Error:          run.Error,
		CreatedAt:      formatTime(run.CreatedAt),
	}
}

// create handles POST /api/runs and executes the pipeline. Results that
// carry an error message (missing image, out of grid) are still 200.
func (h *RunHandler) create(w http.ResponseWriter, r *http.Request) {
	var req app.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.BeforePath == "" || req.AfterPath == "" {
		writeError(w, http.StatusBadRequest, "img_before_path and img_after_path are required")
		return
	}

	out, err := h.runner.Run(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// list handles GET /api/runs?limit=N.
func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	s := h.runner.Store()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.Runs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	resp := listRunsResponse{Runs: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// get handles GET /api/runs/{id}.
func (h *RunHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s := h.runner.Store()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	run, err := s.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}
