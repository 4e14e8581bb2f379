package store

import (
	"errors"
	"testing"
)

// newTestStore creates a new in-memory Store and closes it when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "rounds"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestNewStore_IsolatedJournals(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)

	sess, err := a.Sessions().Create(3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := b.Sessions().Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second store should not see the first store's session, err = %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.db.Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var enabled int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("failed to query foreign_keys: %v", err)
	}
	if enabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", enabled)
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Create(3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	got, err := repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RoundLimit != 3 || got.FinishedAt != nil {
		t.Errorf("Get() = %+v, want open session with limit 3", got)
	}

	if err := repo.Finish(sess.ID, "You", 3, 1); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err = repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Winner != "You" || got.PlayerScore != 3 || got.OpponentScore != 1 {
		t.Errorf("finished session = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}

	// A session finishes once.
	if err := repo.Finish(sess.ID, "CPU", 0, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Finish() error = %v, want ErrNotFound", err)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRoundRepository(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Sessions().Create(3)
	if err != nil {
		t.Fatalf("Create session error = %v", err)
	}

	rounds := []struct {
		rd     Round
		ps, os int
	}{
		{Round{SessionID: sess.ID, Number: 1, PlayerMove: "Paper", OpponentMove: "Rock", Outcome: "You Win"}, 1, 0},
		{Round{SessionID: sess.ID, Number: 2, PlayerMove: "Rock", OpponentMove: "Rock", Outcome: "Draw"}, 1, 0},
		{Round{SessionID: sess.ID, Number: 3, PlayerMove: "Rock", OpponentMove: "Paper", Outcome: "CPU Wins"}, 1, 1},
	}
	for _, r := range rounds {
		rd := r.rd
		if err := s.Rounds().Create(&rd, r.ps, r.os); err != nil {
			t.Fatalf("Create round %d error = %v", rd.Number, err)
		}
		if rd.ID == "" || rd.CreatedAt.IsZero() {
			t.Errorf("round %d missing ID or CreatedAt", rd.Number)
		}
	}

	list, err := s.Rounds().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListBySession() returned %d rounds, want 3", len(list))
	}
	for i, rd := range list {
		if rd.Number != i+1 {
			t.Errorf("round %d has number %d", i, rd.Number)
		}
	}
	if list[2].Outcome != "CPU Wins" {
		t.Errorf("third outcome = %q", list[2].Outcome)
	}

	got, err := s.Sessions().Get(sess.ID)
	if err != nil {
		t.Fatalf("Get session error = %v", err)
	}
	if got.PlayerScore != 1 || got.OpponentScore != 1 {
		t.Errorf("session score = %d-%d, want 1-1", got.PlayerScore, got.OpponentScore)
	}

	empty, err := s.Rounds().ListBySession("other")
	if err != nil {
		t.Fatalf("ListBySession(other) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no rounds for unknown session, got %d", len(empty))
	}
}

func TestRoundRepository_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	rd := Round{SessionID: "nope", Number: 1, PlayerMove: "Rock", OpponentMove: "Rock", Outcome: "Draw"}
	if err := s.Rounds().Create(&rd, 0, 0); err == nil {
		t.Error("expected foreign key violation for unknown session")
	}
}

func TestRoundRepository_DuplicateNumber(t *testing.T) {
	s := newTestStore(t)

	sess, _ := s.Sessions().Create(3)
	rd := Round{SessionID: sess.ID, Number: 1, PlayerMove: "Rock", OpponentMove: "Paper", Outcome: "CPU Wins"}
	if err := s.Rounds().Create(&rd, 0, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := Round{SessionID: sess.ID, Number: 1, PlayerMove: "Rock", OpponentMove: "Paper", Outcome: "CPU Wins"}
	if err := s.Rounds().Create(&dup, 0, 2); err == nil {
		t.Error("expected unique violation for a second round 1")
	}
}
