package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - key/value application settings, config stored as JSON
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Detection events - only written when privacy.log_detections is on
		`CREATE TABLE IF NOT EXISTS detection_events (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL DEFAULT '',
			distance_cm REAL,
			contact_points INTEGER NOT NULL DEFAULT 0,
			notified INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		// Calibration runs
		`CREATE TABLE IF NOT EXISTS calibrations (
			id TEXT PRIMARY KEY,
			samples INTEGER NOT NULL,
			min_distance REAL NOT NULL,
			max_distance REAL NOT NULL,
			avg_distance REAL NOT NULL,
			median_distance REAL NOT NULL,
			suggested_threshold REAL NOT NULL,
			applied INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detection_events_created_at ON detection_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_detection_events_region ON detection_events(region)`,
		`CREATE INDEX IF NOT EXISTS idx_calibrations_created_at ON calibrations(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
