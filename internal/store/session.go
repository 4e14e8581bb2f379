package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one game from first round to game over.
type Session struct {
	ID            string     `json:"id"`
	RoundLimit    int        `json:"round_limit"`
	PlayerScore   int        `json:"player_score"`
	OpponentScore int        `json:"opponent_score"`
	Winner        string     `json:"winner,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create starts a new session and assigns its ID.
func (r *SessionRepository) Create(roundLimit int) (*Session, error) {
	sess := &Session{
		ID:         uuid.NewString(),
		RoundLimit: roundLimit,
		StartedAt:  time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, round_limit, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.RoundLimit, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Finish records the final score and winner.
func (r *SessionRepository) Finish(id, winner string, playerScore, opponentScore int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET winner = ?, player_score = ?, opponent_score = ?, finished_at = ?
		 WHERE id = ? AND finished_at IS NULL`,
		winner, playerScore, opponentScore, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	var sess Session
	var finished sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, round_limit, player_score, opponent_score, winner, started_at, finished_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.RoundLimit, &sess.PlayerScore, &sess.OpponentScore, &sess.Winner, &sess.StartedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if finished.Valid {
		t := finished.Time
		sess.FinishedAt = &t
	}
	return &sess, nil
}
