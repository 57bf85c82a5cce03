package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per run of the render loop
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			default_emotion TEXT NOT NULL,
			seed INTEGER NOT NULL DEFAULT 0,
			bias TEXT NOT NULL DEFAULT '{}',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Every accepted emotion transition
		`CREATE TABLE IF NOT EXISTS emotion_triggers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			emotion TEXT NOT NULL,
			mode TEXT NOT NULL CHECK(mode IN ('observed', 'synthetic')),
			color TEXT NOT NULL DEFAULT '',
			at_ms INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Painted shapes, enough to redraw a canvas
		`CREATE TABLE IF NOT EXISTS strokes (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			emotion TEXT NOT NULL,
			source TEXT NOT NULL,
			brush TEXT NOT NULL,
			color TEXT NOT NULL,
			opacity REAL NOT NULL,
			bleed REAL NOT NULL,
			texture REAL NOT NULL,
			texture_border REAL NOT NULL,
			width REAL NOT NULL,
			height REAL NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			at_ms INTEGER NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_emotion_triggers_session_id ON emotion_triggers(session_id, at_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_strokes_session_id ON strokes(session_id, at_ms)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
