package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/steadyframe/internal/trajectory"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Run is one stored motion-estimation pass: its configuration plus the
// per-frame raw deltas and raw/smoothed trajectory values. Compensation
// transforms are derived, not stored; recompute them with
// trajectory.Compensate so the stored arrays stay the single source of
// truth.
type Run struct {
	ID             string
	Source         string
	KeypointMethod string
	Window         int
	FrameCount     int
	FPS            float64
	CreatedAt      time.Time

	Raw        []trajectory.Point
	Trajectory trajectory.Trajectory
	Smoothed   trajectory.Trajectory
}

// Transforms derives the compensation transforms from the stored arrays.
func (r *Run) Transforms() []trajectory.Point {
	return trajectory.Compensate(r.Raw, r.Trajectory, r.Smoothed)
}

// RunRepository provides CRUD operations for analysis runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a run and its samples in one transaction. A missing ID is
// assigned a fresh UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now()
	run.FrameCount = len(run.Raw)

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, source, kp_method, window, frame_count, fps, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.KeypointMethod, run.Window, run.FrameCount, run.FPS, run.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_samples (run_id, frame_index,
			raw_dx, raw_dy, raw_dangle,
			traj_x, traj_y, traj_angle,
			smooth_x, smooth_y, smooth_angle)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range run.Raw {
		raw, traj, smooth := run.Raw[i], run.Trajectory[i], run.Smoothed[i]
		if _, err := stmt.Exec(run.ID, i,
			raw.X, raw.Y, raw.Angle,
			traj.X, traj.Y, traj.Angle,
			smooth.X, smooth.Y, smooth.Angle,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a run and its samples by ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	err := r.db.QueryRow(
		`SELECT id, source, kp_method, window, frame_count, fps, created_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Source, &run.KeypointMethod, &run.Window, &run.FrameCount, &run.FPS, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadSamples(run); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestForSource retrieves the most recent run recorded for a source path.
func (r *RunRepository) LatestForSource(source string) (*Run, error) {
	var id string
	err := r.db.QueryRow(
		`SELECT id FROM runs WHERE source = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		source,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(id)
}

// Delete removes a run and its samples.
func (r *RunRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RunRepository) loadSamples(run *Run) error {
	rows, err := r.db.Query(
		`SELECT raw_dx, raw_dy, raw_dangle,
			traj_x, traj_y, traj_angle,
			smooth_x, smooth_y, smooth_angle
		 FROM run_samples WHERE run_id = ? ORDER BY frame_index`,
		run.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw, traj, smooth trajectory.Point
		if err := rows.Scan(
			&raw.X, &raw.Y, &raw.Angle,
			&traj.X, &traj.Y, &traj.Angle,
			&smooth.X, &smooth.Y, &smooth.Angle,
		); err != nil {
			return err
		}
		run.Raw = append(run.Raw, raw)
		run.Trajectory = append(run.Trajectory, traj)
		run.Smoothed = append(run.Smoothed, smooth)
	}
	return rows.Err()
}
