package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/acedistance/internal/grid"
)

// HoleEntry is a cached hole position for a layout. The hole only moves
// between days, so an entry stays valid until the end of the day it was saved.
type HoleEntry struct {
	ID        string
	Layout    string
	Name      string
	Position  grid.Point
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Active reports whether the entry is still valid at now.
func (e *HoleEntry) Active(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// EndOfDay returns 23:59:59 of the day of t, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// HoleCacheRepository provides access to cached hole positions.
type HoleCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// HoleCache returns the hole cache repository for this store.
func (s *Store) HoleCache() *HoleCacheRepository {
	return &HoleCacheRepository{db: s.db, now: s.now}
}

// Save caches pos as the hole of layout. When an active entry already exists
// it is kept unchanged unless overwrite is set, in which case its position
// and expiry are replaced and its ID is preserved. The returned bool reports
// whether anything was written.
func (r *HoleCacheRepository) Save(layout string, pos grid.Point, name string, overwrite bool) (*HoleEntry, bool, error) {
	now := r.now()

	existing, err := r.Active(layout)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if existing != nil {
		if !overwrite {
			return existing, false, nil
		}
		existing.Position = pos
		existing.Name = name
		existing.ExpiresAt = EndOfDay(now)
		_, err := r.db.Exec(
			`UPDATE hole_cache SET name = ?, x = ?, y = ?, expires_at = ? WHERE id = ?`,
			existing.Name, pos.X, pos.Y, existing.ExpiresAt.UnixNano(), existing.ID,
		)
		if err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	e := &HoleEntry{
		ID:        uuid.New().String(),
		Layout:    layout,
		Name:      name,
		Position:  pos,
		ExpiresAt: EndOfDay(now),
		CreatedAt: now,
	}
	_, err = r.db.Exec(
		`INSERT INTO hole_cache (id, layout, name, x, y, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Layout, e.Name, pos.X, pos.Y, e.ExpiresAt.UnixNano(), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Active returns the most recent unexpired entry of layout.
func (r *HoleCacheRepository) Active(layout string) (*HoleEntry, error) {
	row := r.db.QueryRow(
		`SELECT id, layout, name, x, y, expires_at, created_at
		 FROM hole_cache WHERE layout = ? AND expires_at > ?
		 ORDER BY created_at DESC LIMIT 1`,
		layout, r.now().UnixNano(),
	)
	e, err := scanHoleEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an entry by its ID, expired or not.
func (r *HoleCacheRepository) GetByID(id string) (*HoleEntry, error) {
	row := r.db.QueryRow(
		`SELECT id, layout, name, x, y, expires_at, created_at
		 FROM hole_cache WHERE id = ?`,
		id,
	)
	e, err := scanHoleEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns every entry of layout, newest first. An empty layout lists all entries.
func (r *HoleCacheRepository) List(layout string) ([]*HoleEntry, error) {
	query := `SELECT id, layout, name, x, y, expires_at, created_at FROM hole_cache`
	var args []any
	if layout != "" {
		query += ` WHERE layout = ?`
		args = append(args, layout)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HoleEntry
	for rows.Next() {
		e, err := scanHoleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Delete removes an entry by its ID.
func (r *HoleCacheRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM hole_cache WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Clear removes every entry of layout, or all entries when layout is empty.
// It returns the number of removed entries.
func (r *HoleCacheRepository) Clear(layout string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if layout == "" {
		result, err = r.db.Exec(`DELETE FROM hole_cache`)
	} else {
		result, err = r.db.Exec(`DELETE FROM hole_cache WHERE layout = ?`, layout)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeExpired removes entries that expired before now.
func (r *HoleCacheRepository) PurgeExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM hole_cache WHERE expires_at <= ?`, r.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHoleEntry(row rowScanner) (*HoleEntry, error) {
	e := &HoleEntry{}
	var expires, created int64
	if err := row.Scan(&e.ID, &e.Layout, &e.Name, &e.Position.X, &e.Position.Y, &expires, &created); err != nil {
		return nil, err
	}
	e.ExpiresAt = time.Unix(0, expires)
	e.CreatedAt = time.Unix(0, created)
	return e, nil
}
