package game

import (
	"fmt"
	"math"
	"time"

	"github.com/ayusman/rpsbattle/internal/gesture"
)

// State is the phase of the round protocol.
type State int

const (
	AwaitingMove State = iota
	Countdown
	Resolving
	ShowingResult
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingMove:
		return "awaiting_move"
	case Countdown:
		return "countdown"
	case Resolving:
		return "resolving"
	case ShowingResult:
		return "showing_result"
	case GameOver:
		return "game_over"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Winner identifies who reached the round limit.
type Winner int

const (
	NoWinner Winner = iota
	PlayerWon
	OpponentWon
)

func (w Winner) String() string {
	switch w {
	case PlayerWon:
		return "You"
	case OpponentWon:
		return "CPU"
	default:
		return ""
	}
}

// Score holds the running totals for a session. Both counters only ever grow.
type Score struct {
	Player   int `json:"player"`
	Opponent int `json:"opponent"`
}

func (s Score) String() string {
	return fmt.Sprintf("P1: %d  |  CPU: %d", s.Player, s.Opponent)
}

// Config holds the timing and length of a game.
type Config struct {
	Countdown     time.Duration
	ResultDisplay time.Duration
	RoundLimit    int
}

// DefaultConfig returns a three second countdown, three second result display and a first
// to three wins game.
func DefaultConfig() Config {
	return Config{
		Countdown:     3 * time.Second,
		ResultDisplay: 3 * time.Second,
		RoundLimit:    3,
	}
}

// Announcer speaks a line of text. Implementations must return immediately; the machine never
// observes whether the text was actually played.
type Announcer interface {
	Announce(text string)
}

// Picker draws the opponent's move. *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// EffectKind names a presentation side effect.
type EffectKind int

const (
	SetStatus EffectKind = iota
	SetScore
	SetResult
	Announce
)

// Effect is one presentation update requested by a tick.
type Effect struct {
	Kind EffectKind
	Text string
}

// Round records a resolved, scored round.
type Round struct {
	Number   int
	Player   gesture.Move
	Opponent gesture.Move
	Outcome  Outcome
	Score    Score
}

// Batch is everything a single tick asks the outside world to do.
type Batch struct {
	Effects []Effect
	// Round is set on the tick that resolved a round.
	Round *Round
	// Missed is set when the shoot-time move was Indeterminate.
	Missed bool
	// Winner is set on the tick that ended the game.
	Winner Winner
}

func (b *Batch) add(kind EffectKind, text string) {
	b.Effects = append(b.Effects, Effect{Kind: kind, Text: text})
}

// Machine owns the round state, timer and score for one game session. It is driven by a
// single caller and is not safe for concurrent use.
type Machine struct {
	cfg       Config
	announcer Announcer
	picker    Picker

	state     State
	tentative gesture.Move
	timer     time.Time
	score     Score
	rounds    int
	winner    Winner
}

// NewMachine creates a Machine in AwaitingMove. Non-positive config values fall back to
// DefaultConfig.
func NewMachine(cfg Config, announcer Announcer, picker Picker) *Machine {
	def := DefaultConfig()
	if cfg.Countdown <= 0 {
		cfg.Countdown = def.Countdown
	}
	if cfg.ResultDisplay <= 0 {
		cfg.ResultDisplay = def.ResultDisplay
	}
	if cfg.RoundLimit <= 0 {
		cfg.RoundLimit = def.RoundLimit
	}
	return &Machine{
		cfg:       cfg,
		announcer: announcer,
		picker:    picker,
		state:     AwaitingMove,
	}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Score returns the current totals.
func (m *Machine) Score() Score { return m.score }

// Tentative returns the move that started the current countdown, or Indeterminate.
func (m *Machine) Tentative() gesture.Move { return m.tentative }

// Winner returns who won once the machine is in GameOver.
func (m *Machine) Winner() Winner { return m.winner }

// Config returns the effective configuration.
func (m *Machine) Config() Config { return m.cfg }

// Tick advances the machine by at most one transition using the move seen on this tick.
// It returns nil when nothing changed.
func (m *Machine) Tick(move gesture.Move, now time.Time) *Batch {
	var b *Batch
	switch m.state {
	case AwaitingMove:
		b = m.awaitMove(move, now)
	case Countdown:
		b = m.countdown(now)
	case Resolving:
		b = m.resolve(move, now)
	case ShowingResult:
		b = m.showResult(now)
	case GameOver:
		b = &Batch{}
		b.add(SetStatus, m.finalMessage())
	}
	if b == nil {
		return nil
	}

	for _, e := range b.Effects {
		if e.Kind == Announce && m.announcer != nil {
			m.announcer.Announce(e.Text)
		}
	}
	return b
}

func (m *Machine) awaitMove(move gesture.Move, now time.Time) *Batch {
	if !move.Valid() {
		return nil
	}

	b := &Batch{}
	m.tentative = move
	m.timer = now
	m.state = Countdown
	b.add(Announce, fmt.Sprintf("See %s. Ready?", move))
	b.add(SetStatus, "Ready...")
	return b
}

func (m *Machine) countdown(now time.Time) *Batch {
	elapsed := now.Sub(m.timer).Truncate(time.Second)
	remaining := m.cfg.Countdown - elapsed

	b := &Batch{}
	b.add(SetStatus, fmt.Sprintf("Shoot: %d", int(math.Ceil(remaining.Seconds()))))
	if remaining <= 0 {
		m.state = Resolving
		b.add(Announce, "Shoot!")
	}
	return b
}

// resolve scores the move seen at shoot time, which may differ from the tentative move
// that started the countdown.
func (m *Machine) resolve(move gesture.Move, now time.Time) *Batch {
	b := &Batch{}
	if !move.Valid() {
		m.tentative = gesture.Indeterminate
		m.state = AwaitingMove
		b.Missed = true
		b.add(SetStatus, "Missed!")
		b.add(Announce, "Missed.")
		return b
	}

	opponent := gesture.Moves[m.picker.IntN(len(gesture.Moves))]
	outcome := Resolve(move, opponent)
	switch outcome {
	case PlayerWins:
		m.score.Player++
	case OpponentWins:
		m.score.Opponent++
	}
	m.rounds++

	b.Round = &Round{
		Number:   m.rounds,
		Player:   move,
		Opponent: opponent,
		Outcome:  outcome,
		Score:    m.score,
	}
	b.add(SetResult, fmt.Sprintf("%s vs %s -> %s", move, opponent, outcome))
	b.add(SetScore, m.score.String())
	b.add(Announce, fmt.Sprintf("%s. %s", opponent, outcome.verdict()))

	m.timer = now
	m.state = ShowingResult
	return b
}

func (m *Machine) showResult(now time.Time) *Batch {
	if now.Sub(m.timer) <= m.cfg.ResultDisplay {
		return nil
	}

	b := &Batch{}
	if m.score.Player >= m.cfg.RoundLimit || m.score.Opponent >= m.cfg.RoundLimit {
		m.winner = OpponentWon
		if m.score.Player > m.score.Opponent {
			m.winner = PlayerWon
		}
		m.state = GameOver
		b.Winner = m.winner
		b.add(SetStatus, m.finalMessage())
		b.add(Announce, fmt.Sprintf("Game over. %s won.", m.winner))
		return b
	}

	m.tentative = gesture.Indeterminate
	m.state = AwaitingMove
	b.add(SetResult, "")
	b.add(SetStatus, "Show hand...")
	b.add(Announce, "Again.")
	return b
}

func (m *Machine) finalMessage() string {
	return fmt.Sprintf("GAME OVER. %s won.", m.winner)
}
