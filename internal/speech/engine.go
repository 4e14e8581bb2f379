// Package speech provides fire-and-forget spoken announcements.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// DefaultTimeout bounds a single utterance.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable is returned when no speech engine can be initialised.
var ErrUnavailable = errors.New("speech engine unavailable")

// Engine synthesises and plays text. Say blocks until playback ends or ctx is done.
type Engine interface {
	Say(ctx context.Context, text string) error
	Close() error
}

// CommandEngine speaks by running a text-to-speech executable with the text as its last
// argument, e.g. `espeak "Shoot!"` or `say "Shoot!"`.
type CommandEngine struct {
	path    string
	args    []string
	timeout time.Duration
}

// DefaultCommand returns the platform's usual speech binary.
func DefaultCommand() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak"
}

// NewCommandEngine resolves command on PATH. A missing binary is reported as ErrUnavailable.
func NewCommandEngine(command string, args []string, timeout time.Duration) (*CommandEngine, error) {
	if command == "" {
		command = DefaultCommand()
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandEngine{path: path, args: args, timeout: timeout}, nil
}

// Say runs the speech command with a timeout.
func (e *CommandEngine) Say(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append(append([]string{}, e.args...), text)
	cmd := exec.CommandContext(ctx, e.path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("speech timeout after %s", e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return fmt.Errorf("speech command failed: %w, stderr: %s", err, s)
		}
		return fmt.Errorf("speech command failed: %w", err)
	}
	return nil
}

// Close is a no-op; running commands are stopped through their contexts.
func (e *CommandEngine) Close() error { return nil }

// NopEngine discards every announcement.
type NopEngine struct{}

func (NopEngine) Say(context.Context, string) error { return nil }
func (NopEngine) Close() error                      { return nil }
