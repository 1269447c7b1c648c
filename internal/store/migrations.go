package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Gestures table - one catalog entry per row, ordered by position
		`CREATE TABLE IF NOT EXISTS gestures (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			hands INTEGER NOT NULL CHECK(hands IN (1, 2)),
			pattern TEXT NOT NULL DEFAULT '{}',
			name TEXT NOT NULL,
			message TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '#ffffff',
			speech TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_gestures_position ON gestures(position)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
