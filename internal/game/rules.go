// Package game runs the timed rock-paper-scissors round protocol against a random opponent.
package game

import "github.com/ayusman/rpsbattle/internal/gesture"

// Outcome is the result of one resolved round from the player's point of view.
type Outcome int

const (
	Draw Outcome = iota
	PlayerWins
	OpponentWins
)

func (o Outcome) String() string {
	switch o {
	case PlayerWins:
		return "You Win"
	case OpponentWins:
		return "CPU Wins"
	default:
		return "Draw"
	}
}

// verdict is the spoken form of an outcome.
func (o Outcome) verdict() string {
	switch o {
	case PlayerWins:
		return "Point for you."
	case OpponentWins:
		return "Point for me."
	default:
		return "Tie."
	}
}

// Beats reports whether a beats b. Over the values Rock=1, Paper=2, Scissors=3 a move beats
// the move one below it, wrapping modulo 3.
func Beats(a, b gesture.Move) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return ((int(a)-int(b))%3+3)%3 == 1
}

// Resolve applies the win rule. Both moves must be valid.
func Resolve(player, opponent gesture.Move) Outcome {
	switch {
	case player == opponent:
		return Draw
	case Beats(player, opponent):
		return PlayerWins
	default:
		return OpponentWins
	}
}
