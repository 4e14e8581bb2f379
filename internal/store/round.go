package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Round is a resolved round in a session. Moves and outcome are stored as display labels.
type Round struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Number       int       `json:"number"`
	PlayerMove   string    `json:"player_move"`
	OpponentMove string    `json:"opponent_move"`
	Outcome      string    `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoundRepository provides access to rounds.
type RoundRepository struct {
	db *sql.DB
}

// Rounds returns the round repository for this store.
func (s *Store) Rounds() *RoundRepository {
	return &RoundRepository{db: s.db}
}

// Create appends a round to its session and keeps the session's running score in step.
func (r *RoundRepository) Create(rd *Round, playerScore, opponentScore int) error {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	rd.CreatedAt = time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO rounds (id, session_id, number, player_move, opponent_move, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rd.ID, rd.SessionID, rd.Number, rd.PlayerMove, rd.OpponentMove, rd.Outcome, rd.CreatedAt,
	)
	if err != nil {
		return err
	}

	result, err := tx.Exec(
		`UPDATE sessions SET player_score = ?, opponent_score = ? WHERE id = ?`,
		playerScore, opponentScore, rd.SessionID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListBySession returns a session's rounds in play order.
func (r *RoundRepository) ListBySession(sessionID string) ([]Round, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, number, player_move, opponent_move, outcome, created_at
		 FROM rounds
		 WHERE session_id = ?
		 ORDER BY number`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := []Round{}
	for rows.Next() {
		var rd Round
		if err := rows.Scan(&rd.ID, &rd.SessionID, &rd.Number, &rd.PlayerMove, &rd.OpponentMove, &rd.Outcome, &rd.CreatedAt); err != nil {
			return nil, err
		}
		rounds = append(rounds, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rounds, nil
}
