package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/acedistance/internal/app"
	"github.com/ayusman/acedistance/internal/calibration"
	"github.com/ayusman/acedistance/internal/estimate"
	"github.com/ayusman/acedistance/internal/grid"
)

// LayoutHandler handles HTTP requests for layout resources.
type LayoutHandler struct {
	layouts *app.Registry
}

// NewLayoutHandler creates a new LayoutHandler over the given registry.
func NewLayoutHandler(layouts *app.Registry) *LayoutHandler {
	return &LayoutHandler{layouts: layouts}
}

// ServeHTTP routes requests to the appropriate methods.
// Expected paths: /api/layouts, /api/layouts/{id}, /api/layouts/{id}/cell
// and /api/layouts/{id}/distance.
func (h *LayoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/layouts")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, id)
	case "cell":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.cell(w, r, id)
	case "distance":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.distance(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type listLayoutsResponse struct {
	Layouts []string `json:"layouts"`
}

type layoutResponse struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Description          string     `json:"description,omitempty"`
	Rows                 int        `json:"rows"`
	Cols                 int        `json:"cols"`
	DistanceBetweenNodes float64    `json:"distance_between_nodes"`
	Cells                int        `json:"cells"`
	ClosedCells          int        `json:"closed_cells"`
	Nodes                [][]*point `json:"nodes"`
}

type cellResponse struct {
	ID      int      `json:"id"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Corners []*point `json:"corners"`
}

type distanceRequest struct {
	Ball *point `json:"ball"`
	Hole *point `json:"hole"`
}

type distanceResponse struct {
	Distance   *float64            `json:"distance"`
	Determined bool                `json:"determined"`
	Breakdown  *estimate.Breakdown `json:"breakdown,omitempty"`
}

// entry loads layout id, writing the error response when it fails.
func (h *LayoutHandler) entry(w http.ResponseWriter, id string) (*app.Entry, bool) {
	e, err := h.layouts.Get(id)
	if err != nil {
		if errors.Is(err, calibration.ErrConfiguration) {
			writeError(w, http.StatusNotFound, "Layout not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to load layout")
		return nil, false
	}
	return e, true
}

// list handles GET /api/layouts and returns every layout id.
func (h *LayoutHandler) list(w http.ResponseWriter, r *http.Request) {
	ids, err := h.layouts.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list layouts")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, listLayoutsResponse{Layouts: ids})
}

// get handles GET /api/layouts/{id}.
func (h *LayoutHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.entry(w, id)
	if !ok {
		return
	}

	l := e.Layout
	nodes := l.Nodes()
	resp := layoutResponse{
		ID:                   id,
		Name:                 l.Name(),
		Description:          e.Calibration.Description,
		Rows:                 l.Rows(),
		Cols:                 l.Cols(),
		DistanceBetweenNodes: l.DistanceBetweenNodes(),
		Cells:                len(l.Cells()),
		ClosedCells:          l.ClosedCells(),
		Nodes:                make([][]*point, len(nodes)),
	}
	for i, row := range nodes {
		resp.Nodes[i] = make([]*point, len(row))
		for j, n := range row {
			resp.Nodes[i][j] = fromGrid(n)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// cell handles GET /api/layouts/{id}/cell?x=&y= and returns the cell that
// contains the point.
func (h *LayoutHandler) cell(w http.ResponseWriter, r *http.Request, id string) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}

	e, ok := h.entry(w, id)
	if !ok {
		return
	}

	c, found := e.Layout.ContainingCell(grid.Pt(x, y))
	if !found {
		writeError(w, http.StatusNotFound, grid.ErrOutOfGrid.Error())
		return
	}

	tl, tr, br, bl := c.Corners()
	writeJSON(w, http.StatusOK, cellResponse{
		ID:      c.ID(),
		Row:     c.Row(),
		Col:     c.Col(),
		Corners: []*point{fromGrid(tl), fromGrid(tr), fromGrid(br), fromGrid(bl)},
	})
}

// distance handles POST /api/layouts/{id}/distance.
func (h *LayoutHandler) distance(w http.ResponseWriter, r *http.Request, id string) {
	var req distanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	e, ok := h.entry(w, id)
	if !ok {
		return
	}

	res, err := e.Estimator.Estimate(req.Ball.grid(), req.Hole.grid())
	if err != nil {
		if errors.Is(err, grid.ErrOutOfGrid) {
			writeError(w, http.StatusUnprocessableEntity, grid.ErrOutOfGrid.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to estimate distance")
		return
	}

	resp := distanceResponse{Determined: res.Determined, Breakdown: res.Breakdown}
	if res.Determined {
		d := res.Distance
		resp.Distance = &d
	}
	writeJSON(w, http.StatusOK, resp)
}
