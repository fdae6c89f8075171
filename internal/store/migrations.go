package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Hole cache table - stores detected hole positions per layout until the end of the day
		`CREATE TABLE IF NOT EXISTS hole_cache (
			id TEXT PRIMARY KEY,
			layout TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			x REAL NOT NULL,
			y REAL NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		// Runs table - stores the output of every estimation run
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			version TEXT NOT NULL DEFAULT '',
			layout TEXT NOT NULL,
			distance REAL,
			is_hole_detected INTEGER NOT NULL DEFAULT 0,
			is_ball_detected INTEGER,
			hole_x REAL,
			hole_y REAL,
			ball_x REAL,
			ball_y REAL,
			results_path TEXT NOT NULL DEFAULT '',
			img_before_path TEXT NOT NULL DEFAULT '',
			img_after_path TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_hole_cache_layout_expires ON hole_cache(layout, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
