// Package api provides HTTP API handlers for layouts, distance estimates,
// cached hole positions and runs.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/acedistance/internal/grid"
)

type errorResponse struct {
	Error string `json:"error"`
}

// point is the wire form of a pixel coordinate.
type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p *point) grid() *grid.Point {
	if p == nil {
		return nil
	}
	g := grid.Pt(p.X, p.Y)
	return &g
}

func fromGrid(p *grid.Point) *point {
	if p == nil {
		return nil
	}
	return &point{X: p.X, Y: p.Y}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
