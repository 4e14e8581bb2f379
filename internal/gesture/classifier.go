package gesture

import (
	"fmt"
	"strings"

	"github.com/ayusman/rpsbattle/internal/detector"
)

// ScissorsRule selects how a two-finger pose is recognised as Scissors.
type ScissorsRule int

const (
	// ScissorsIndexMiddle requires index and middle extended with ring and pinky curled.
	// The thumb is ignored.
	ScissorsIndexMiddle ScissorsRule = iota
	// ScissorsAnyTwo accepts any pose with exactly two extended digits.
	ScissorsAnyTwo
)

// ParseScissorsRule maps a config value onto a ScissorsRule.
func ParseScissorsRule(s string) (ScissorsRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "index_middle":
		return ScissorsIndexMiddle, nil
	case "any_two":
		return ScissorsAnyTwo, nil
	default:
		return 0, fmt.Errorf("unknown scissors rule %q", s)
	}
}

func (r ScissorsRule) String() string {
	if r == ScissorsAnyTwo {
		return "any_two"
	}
	return "index_middle"
}

// Classifier maps hand landmarks to a Move. It keeps no state between frames.
type Classifier struct {
	rule ScissorsRule
}

// NewClassifier creates a Classifier using the given Scissors rule.
func NewClassifier(rule ScissorsRule) *Classifier {
	return &Classifier{rule: rule}
}

// Classify returns the move shown by hand, or Indeterminate when hand is nil.
func (c *Classifier) Classify(hand *detector.HandLandmarks) Move {
	if hand == nil {
		return Indeterminate
	}
	return classify(ExtendedDigits(&hand.Points, hand.Handedness), c.rule)
}

// Classify applies the default index+middle Scissors rule.
func Classify(points *[detector.NumLandmarks]detector.Point3D, side detector.Handedness) Move {
	return classify(ExtendedDigits(points, side), ScissorsIndexMiddle)
}

// fingerJoints pairs each finger tip with the joint two positions proximal to it.
var fingerJoints = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// ExtendedDigits reports, thumb first, which digits are extended.
//
// Fingers are extended when the tip is above the PIP joint. The thumb is compared on the
// horizontal axis against its MCP joint; the frame is mirrored, so a right thumb splays
// toward smaller x and a left thumb toward larger x.
func ExtendedDigits(points *[detector.NumLandmarks]detector.Point3D, side detector.Handedness) [5]bool {
	var out [5]bool

	tip, mcp := points[detector.ThumbTip].X, points[detector.ThumbMCP].X
	if side == detector.Left {
		out[0] = tip > mcp
	} else {
		out[0] = tip < mcp
	}

	for i, j := range fingerJoints {
		out[i+1] = points[j[0]].Y < points[j[1]].Y
	}
	return out
}

func classify(ext [5]bool, rule ScissorsRule) Move {
	n := 0
	for _, e := range ext {
		if e {
			n++
		}
	}

	switch {
	case n == 0:
		return Rock
	case n == 5:
		return Paper
	case rule == ScissorsAnyTwo && n == 2:
		return Scissors
	case rule == ScissorsIndexMiddle && ext[1] && ext[2] && !ext[3] && !ext[4]:
		return Scissors
	}
	return Indeterminate
}
