package detector

import "errors"

var (
	// ErrUnavailable is returned when the landmark model cannot be started.
	ErrUnavailable = errors.New("hand detector unavailable")
	// ErrUnknownHandedness is returned for handedness labels other than Left or Right.
	ErrUnknownHandedness = errors.New("unknown handedness")
)
