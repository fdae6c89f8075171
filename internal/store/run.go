package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/acedistance/internal/grid"
)

// Run is the persisted outcome of one estimation.
type Run struct {
	ID             string
	Version        string
	Layout         string
	Distance       *float64
	IsHoleDetected bool
	IsBallDetected *bool
	Hole           *grid.Point
	Ball           *grid.Point
	ResultsPath    string
	ImgBeforePath  string
	ImgAfterPath   string
	Error          string
	CreatedAt      time.Time
}

// RunRepository provides access to the run history.
type RunRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db, now: s.now}
}

// Create inserts a run. An empty ID is replaced by a new UUID and a zero
// CreatedAt by the current time.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now()
	}

	var distance sql.NullFloat64
	if run.Distance != nil {
		distance = sql.NullFloat64{Float64: *run.Distance, Valid: true}
	}
	var ballDetected sql.NullBool
	if run.IsBallDetected != nil {
		ballDetected = sql.NullBool{Bool: *run.IsBallDetected, Valid: true}
	}
	holeX, holeY := nullPoint(run.Hole)
	ballX, ballY := nullPoint(run.Ball)

	_, err := r.db.Exec(
		`INSERT INTO runs (id, version, layout, distance, is_hole_detected, is_ball_detected,
			hole_x, hole_y, ball_x, ball_y, results_path, img_before_path, img_after_path, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.Layout, distance, run.IsHoleDetected, ballDetected,
		holeX, holeY, ballX, ballY, run.ResultsPath, run.ImgBeforePath, run.ImgAfterPath,
		run.Error, run.CreatedAt.UnixNano(),
	)
	return err
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

const runColumns = `id, version, layout, distance, is_hole_detected, is_ball_detected,
	hole_x, hole_y, ball_x, ball_y, results_path, img_before_path, img_after_path, error, created_at`

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var (
		distance     sql.NullFloat64
		ballDetected sql.NullBool
		holeX, holeY sql.NullFloat64
		ballX, ballY sql.NullFloat64
		created      int64
	)
	err := row.Scan(
		&run.ID, &run.Version, &run.Layout, &distance, &run.IsHoleDetected, &ballDetected,
		&holeX, &holeY, &ballX, &ballY, &run.ResultsPath, &run.ImgBeforePath, &run.ImgAfterPath,
		&run.Error, &created,
	)
	if err != nil {
		return nil, err
	}

	if distance.Valid {
		d := distance.Float64
		run.Distance = &d
	}
	if ballDetected.Valid {
		b := ballDetected.Bool
		run.IsBallDetected = &b
	}
	run.Hole = pointFromNull(holeX, holeY)
	run.Ball = pointFromNull(ballX, ballY)
	run.CreatedAt = time.Unix(0, created)
	return run, nil
}

func nullPoint(p *grid.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.X, Valid: true}, sql.NullFloat64{Float64: p.Y, Valid: true}
}

func pointFromNull(x, y sql.NullFloat64) *grid.Point {
	if !x.Valid || !y.Valid {
		return nil
	}
	p := grid.Pt(x.Float64, y.Float64)
	return &p
}
