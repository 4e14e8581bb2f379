// Package app wires the camera, hand detector, classifier and round state machine into the
// game loop and keeps the presentation snapshot that the UI surfaces read.
package app

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/rpsbattle/internal/capture"
	"github.com/ayusman/rpsbattle/internal/detector"
	"github.com/ayusman/rpsbattle/internal/game"
	"github.com/ayusman/rpsbattle/internal/gesture"
	"github.com/ayusman/rpsbattle/internal/store"
)

// NoHand is the move label shown while no hand is in view.
const NoHand = "Waiting..."

// Config holds loop timing and game settings.
type Config struct {
	// TickInterval is the loop period while a round runs or a hand is in view.
	TickInterval time.Duration
	// IdleTickInterval is the loop period while waiting with no motion.
	IdleTickInterval time.Duration
	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64
	ScissorsRule    gesture.ScissorsRule
	Game            game.Config
}

// DefaultConfig returns the settings the game ships with.
func DefaultConfig() Config {
	return Config{
		TickInterval:     30 * time.Millisecond,
		IdleTickInterval: 200 * time.Millisecond,
		MotionThreshold:  1.0,
		ScissorsRule:     gesture.ScissorsIndexMiddle,
		Game:             game.DefaultConfig(),
	}
}

// Speaker announces text without blocking and stops speaking on Close.
type Speaker interface {
	game.Announcer
	Close() error
}

// Metrics receives loop measurements. *metrics.Manager satisfies it.
type Metrics interface {
	RecordTick(d time.Duration)
	RecordClassification(move string)
	RecordRound(outcome string)
	RecordMiss()
	RecordGameOver(winner string)
	SetState(current string, all []string)
}

// Deps are the services the App drives. Camera, Detector and Speaker are required; Store,
// Metrics and Rand are optional.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Speaker  Speaker
	Store    *store.Store
	Metrics  Metrics
	Rand     game.Picker
}

// App runs one game session at a time.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	speaker    Speaker
	store      *store.Store
	metrics    Metrics
	picker     game.Picker
	classifier *gesture.Classifier
	motion     *capture.MotionDetector

	// stepMu serialises ticks; the machine is not safe for concurrent use.
	stepMu    sync.Mutex
	machine   *game.Machine
	sessionID string
	active    bool
	halted    bool

	mu       sync.RWMutex
	display  Display
	preview  []byte
	enabled  bool
	opened   bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	subs     map[int]func(Display)
	nextSub  int
	failCh   chan error
}

// New creates an App. Nothing is opened until Open or Start.
func New(config Config, deps Deps) *App {
	def := DefaultConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = def.TickInterval
	}
	if config.IdleTickInterval <= 0 {
		config.IdleTickInterval = def.IdleTickInterval
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = def.MotionThreshold
	}

	picker := deps.Rand
	if picker == nil {
		picker = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	a := &App{
		config:     config,
		camera:     deps.Camera,
		detector:   deps.Detector,
		speaker:    deps.Speaker,
		store:      deps.Store,
		metrics:    metrics,
		picker:     picker,
		classifier: gesture.NewClassifier(config.ScissorsRule),
		motion:     capture.NewMotionDetector(config.MotionThreshold, capture.DefaultIdleTimeout),
		enabled:    true,
		subs:       make(map[int]func(Display)),
		failCh:     make(chan error, 1),
	}
	a.machine = game.NewMachine(config.Game, a.speaker, a.picker)
	a.display = a.initialDisplay()
	return a
}

// Open opens the camera, starts a session and announces readiness.
func (a *App) Open() error {
	a.mu.Lock()
	if a.opened {
		a.mu.Unlock()
		return nil
	}
	if err := a.camera.Open(); err != nil {
		a.mu.Unlock()
		if errors.Is(err, capture.ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", capture.ErrCameraUnavailable, err)
	}
	a.opened = true
	a.mu.Unlock()

	a.stepMu.Lock()
	a.beginSession()
	gc := a.machine.Config()
	a.stepMu.Unlock()

	a.speaker.Announce("Ready.")
	log.Info().
		Int("round_limit", gc.RoundLimit).
		Dur("countdown", gc.Countdown).
		Msg("game ready")
	return nil
}

// Start opens the App and runs the loop in the background until Stop.
func (a *App) Start() error {
	if err := a.Open(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return nil
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(a.stopCh, a.doneCh)

	log.Info().Msg("game loop started")
	return nil
}

// Stop ends the loop and releases the camera, detector and speech engine.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.opened = false
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Warn().Err(err).Msg("closing camera")
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		log.Warn().Err(err).Msg("closing detector")
	}
	if err := a.speaker.Close(); err != nil {
		log.Warn().Err(err).Msg("closing speech")
	}

	log.Info().Msg("game loop stopped")
}

// NewGame discards the current session and starts over from AwaitingMove.
func (a *App) NewGame() {
	a.stepMu.Lock()
	a.machine = game.NewMachine(a.config.Game, a.speaker, a.picker)
	a.motion.Reset()
	a.active = false
	a.beginSession()
	d := a.initialDisplay()
	a.stepMu.Unlock()

	a.publish(func(cur *Display) { *cur = d })
	a.speaker.Announce("New game.")
}

// Failed delivers the error that stopped the loop: the hand detector could not be restarted.
// The caller should Stop the App and exit.
func (a *App) Failed() <-chan error {
	return a.failCh
}

// fail records an unrecoverable error and halts the loop. Caller holds stepMu.
func (a *App) fail(err error) {
	if a.halted {
		return
	}
	a.halted = true
	log.Error().Err(err).Msg("game loop halted")
	a.failCh <- err
}

// SetEnabled pauses or resumes the loop.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	a.publish(func(d *Display) { d.Enabled = enabled })
}

// IsEnabled reports whether the loop is processing frames.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SessionID returns the ID of the current session's journal entry, or "" without a store.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.display.SessionID
}

// Store returns the session journal, which may be nil.
func (a *App) Store() *store.Store {
	return a.store
}

// beginSession opens a journal entry for a new game. Caller holds stepMu.
func (a *App) beginSession() {
	a.sessionID = ""
	if a.store == nil {
		return
	}
	sess, err := a.store.Sessions().Create(a.machine.Config().RoundLimit)
	if err != nil {
		log.Error().Err(err).Msg("starting session")
		return
	}
	a.sessionID = sess.ID
	a.mu.Lock()
	a.display.SessionID = sess.ID
	a.mu.Unlock()
}

func (a *App) initialDisplay() Display {
	a.mu.RLock()
	enabled := a.enabled
	a.mu.RUnlock()
	return Display{
		State:     a.machine.State().String(),
		Status:    "Show hand...",
		Score:     a.machine.Score().String(),
		Move:      NoHand,
		Enabled:   enabled,
		SessionID: a.sessionID,
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(time.Duration)    {}
func (nopMetrics) RecordClassification(string) {}
func (nopMetrics) RecordRound(string)          {}
func (nopMetrics) RecordMiss()                 {}
func (nopMetrics) RecordGameOver(string)       {}
func (nopMetrics) SetState(string, []string)   {}
