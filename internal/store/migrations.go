package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per detection session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			window_size INTEGER NOT NULL,
			threshold REAL NOT NULL,
			count_mode TEXT NOT NULL CHECK(count_mode IN ('sample', 'episode')),
			samples INTEGER NOT NULL DEFAULT 0,
			invalid_samples INTEGER NOT NULL DEFAULT 0,
			events INTEGER NOT NULL DEFAULT 0,
			episodes INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Detections table - every triggered result of a session
		`CREATE TABLE IF NOT EXISTS detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			sample REAL NOT NULL,
			std_dev REAL NOT NULL,
			episode_start INTEGER NOT NULL DEFAULT 0,
			detected_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detections_session_id ON detections(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
