package store

// runMigrations creates the journal schema.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per game, finished when a side reaches the round limit.
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			round_limit INTEGER NOT NULL,
			player_score INTEGER NOT NULL DEFAULT 0,
			opponent_score INTEGER NOT NULL DEFAULT 0,
			winner TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		// One row per resolved round. Missed rounds are not recorded.
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			player_move TEXT NOT NULL,
			opponent_move TEXT NOT NULL,
			outcome TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(session_id, number)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rounds_session_id ON rounds(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
