package app

import (
	"sync"

	"github.com/ayusman/acedistance/internal/calibration"
	"github.com/ayusman/acedistance/internal/estimate"
	"github.com/ayusman/acedistance/internal/grid"
)

// Entry is a loaded layout together with the values derived from it.
// Entries are immutable and shared between requests.
type Entry struct {
	Calibration *calibration.Calibration
	Layout      *grid.Layout
	Estimator   *estimate.Estimator
}

// Registry loads layouts from a directory once per id and keeps them.
type Registry struct {
	dir     string
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates a registry over the layouts stored under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:     dir,
		entries: make(map[string]*Entry),
	}
}

// Dir returns the layouts directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Get returns the layout with the given id, loading it on first use.
// Failed loads are not remembered.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return e, nil
	}

	cal, err := calibration.LoadLayout(r.dir, id)
	if err != nil {
		return nil, err
	}
	layout, err := grid.NewLayout(cal)
	if err != nil {
		return nil, err
	}

	e = &Entry{
		Calibration: cal,
		Layout:      layout,
		Estimator:   estimate.New(layout),
	}
	r.entries[id] = e
	return e, nil
}

// List returns the ids of every layout in the directory.
func (r *Registry) List() ([]string, error) {
	return calibration.ListLayouts(r.dir)
}
