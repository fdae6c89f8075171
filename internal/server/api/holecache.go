package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/acedistance/internal/grid"
	"github.com/ayusman/acedistance/internal/store"
)

// HoleCacheHandler handles /api/layouts/{id}/hole-cache requests.
type HoleCacheHandler struct {
	store *store.Store
}

// NewHoleCacheHandler creates a new HoleCacheHandler with the given store.
func NewHoleCacheHandler(s *store.Store) *HoleCacheHandler {
	return &HoleCacheHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/layouts/{id}/hole-cache and
// /api/layouts/{id}/hole-cache/{entryID}.
func (h *HoleCacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/layouts/")
	layout, rest, _ := strings.Cut(path, "/")
	rest = strings.TrimPrefix(rest, "hole-cache")
	entryID := strings.Trim(rest, "/")

	if layout == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if entryID != "" {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.deleteEntry(w, r, entryID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, layout)
	case http.MethodPost:
		h.save(w, r, layout)
	case http.MethodDelete:
		h.clear(w, r, layout)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type saveHoleRequest struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Name      string   `json:"name"`
	Overwrite bool     `json:"overwrite"`
}

type holeEntryResponse struct {
	ID        string `json:"id"`
	Layout    string `json:"layout"`
	Name      string `json:"name"`
	Position  point  `json:"position"`
	Active    bool   `json:"active"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

type listHoleEntriesResponse struct {
	Entries []holeEntryResponse `json:"entries"`
}

type clearResponse struct {
	Removed int64 `json:"removed"`
}

func (h *HoleCacheHandler) toResponse(e *store.HoleEntry, active bool) holeEntryResponse {
	return holeEntryResponse{
		ID:        e.ID,
		Layout:    e.Layout,
		Name:      e.Name,
		Position:  point{X: e.Position.X, Y: e.Position.Y},
		Active:    active,
		ExpiresAt: formatTime(e.ExpiresAt),
		CreatedAt: formatTime(e.CreatedAt),
	}
}

// get handles GET /api/layouts/{id}/hole-cache. It returns the active entry,
// or every entry of the layout when all=true.
func (h *HoleCacheHandler) get(w http.ResponseWriter, r *http.Request, layout string) {
	repo := h.store.HoleCache()

	if r.URL.Query().Get("all") == "true" {
		entries, err := repo.List(layout)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list hole cache")
			return
		}
		active, err := repo.Active(layout)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to get hole cache")
			return
		}

		resp := listHoleEntriesResponse{Entries: make([]holeEntryResponse, 0, len(entries))}
		for _, e := range entries {
			resp.Entries = append(resp.Entries, h.toResponse(e, active != nil && active.ID == e.ID))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	e, err := repo.Active(layout)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No active hole cache")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hole cache")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(e, true))
}

// save handles POST /api/layouts/{id}/hole-cache. It answers 201 when an
// entry was written and 200 when the active entry was kept.
func (h *HoleCacheHandler) save(w http.ResponseWriter, r *http.Request, layout string) {
	var req saveHoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	e, written, err := h.store.HoleCache().Save(layout, grid.Pt(*req.X, *req.Y), req.Name, req.Overwrite)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save hole cache")
		return
	}

	status := http.StatusOK
	if written {
		status = http.StatusCreated
	}
	writeJSON(w, status, h.toResponse(e, true))
}

// clear handles DELETE /api/layouts/{id}/hole-cache.
func (h *HoleCacheHandler) clear(w http.ResponseWriter, r *http.Request, layout string) {
	n, err := h.store.HoleCache().Clear(layout)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear hole cache")
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Removed: n})
}

// deleteEntry handles DELETE /api/layouts/{id}/hole-cache/{entryID}.
func (h *HoleCacheHandler) deleteEntry(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.HoleCache().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hole cache entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete hole cache entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
