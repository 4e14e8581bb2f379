// Package gesture turns one frame of hand landmarks into a rock-paper-scissors move.
package gesture

// Move is a classified hand pose. The concrete moves are numbered 1..3 so the win rule can
// be expressed as modular arithmetic over their values.
type Move int

const (
	// Indeterminate means no hand was visible or the pose matched no move. It is never scored.
	Indeterminate Move = iota
	Rock
	Paper
	Scissors
)

// Moves lists the concrete moves in value order.
var Moves = [3]Move{Rock, Paper, Scissors}

// Valid reports whether m is one of the three playable moves.
func (m Move) Valid() bool {
	return m >= Rock && m <= Scissors
}

func (m Move) String() string {
	switch m {
	case Rock:
		return "Rock"
	case Paper:
		return "Paper"
	case Scissors:
		return "Scissors"
	default:
		return "Unknown"
	}
}
