package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per motion-estimation pass over a source
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			kp_method TEXT NOT NULL,
			window INTEGER NOT NULL,
			frame_count INTEGER NOT NULL,
			fps REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Run samples table - per-frame-pair motion delta plus the raw and
		// smoothed trajectory values derived from it
		`CREATE TABLE IF NOT EXISTS run_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			raw_dx REAL NOT NULL,
			raw_dy REAL NOT NULL,
			raw_dangle REAL NOT NULL,
			traj_x REAL NOT NULL,
			traj_y REAL NOT NULL,
			traj_angle REAL NOT NULL,
			smooth_x REAL NOT NULL,
			smooth_y REAL NOT NULL,
			smooth_angle REAL NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_run_samples_run_id ON run_samples(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
