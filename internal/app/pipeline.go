package app

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/rpsbattle/internal/capture"
	"github.com/ayusman/rpsbattle/internal/detector"
	"github.com/ayusman/rpsbattle/internal/game"
	"github.com/ayusman/rpsbattle/internal/store"
)

var stateNames = []string{
	game.AwaitingMove.String(),
	game.Countdown.String(),
	game.Resolving.String(),
	game.ShowingResult.String(),
	game.GameOver.String(),
}

// run is the game loop. One tick runs at a time; the period drops to IdleTickInterval while
// the game waits for a move and nothing moves in front of the camera.
func (a *App) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	interval := a.config.IdleTickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			a.Step(now)
			if a.isHalted() {
				return
			}

			if next := a.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
				a.camera.SetFPS(int(time.Second / interval))
				log.Debug().Dur("interval", interval).Msg("tick rate changed")
			}
		}
	}
}

func (a *App) isHalted() bool {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()
	return a.halted
}

// interval picks the next tick period.
func (a *App) interval() time.Duration {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	state := a.machine.State()
	if a.active || (state != game.AwaitingMove && state != game.GameOver) {
		return a.config.TickInterval
	}
	return a.config.IdleTickInterval
}

// Step runs one tick at now: acquire a frame, detect and classify the hand, advance the
// machine and apply its effects. A missing frame or a detector error counts as no hand; a
// detector that cannot be restarted halts the loop instead.
func (a *App) Step(now time.Time) Display {
	start := time.Now()

	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	if a.halted {
		return a.Snapshot()
	}

	frame, hand, err := a.acquire()
	if frame != nil {
		defer frame.Close()
	}
	if err != nil {
		a.fail(err)
		return a.Snapshot()
	}

	if hand != nil {
		a.motion.Touch(now)
	}
	a.active = a.motion.Observe(frame, now)

	move := a.classifier.Classify(hand)
	a.metrics.RecordClassification(move.String())

	batch := a.machine.Tick(move, now)
	a.record(batch)

	state := a.machine.State()
	score := a.machine.Score()
	a.metrics.SetState(state.String(), stateNames)

	if frame != nil {
		a.updatePreview(frame, hand)
	}

	d := a.publish(func(d *Display) {
		d.State = state.String()
		d.Move = move.String()
		if hand == nil {
			d.Move = NoHand
		}
		d.PlayerScore = score.Player
		d.OpponentScore = score.Opponent
		if batch == nil {
			return
		}
		d.apply(batch.Effects)
		if batch.Round != nil {
			d.Round = batch.Round.Number
		}
		if batch.Winner != game.NoWinner {
			d.Over = true
			d.Winner = batch.Winner.String()
		}
	})

	a.metrics.RecordTick(time.Since(start))
	return d
}

// acquire reads a frame and finds the hand in it. The error is set only when the detector is
// unavailable; other failures yield no hand.
func (a *App) acquire() (*gocv.Mat, *detector.HandLandmarks, error) {
	frame, err := a.camera.ReadFrame()
	if err != nil || frame == nil {
		log.Debug().Err(err).Msg("no frame")
		return nil, nil, nil
	}

	hands, err := a.detector.Detect(frame)
	if errors.Is(err, detector.ErrUnavailable) {
		return frame, nil, err
	}
	if err != nil {
		log.Warn().Err(err).Msg("hand detection failed")
		return frame, nil, nil
	}
	return frame, detector.First(hands), nil
}

func (a *App) updatePreview(frame *gocv.Mat, hand *detector.HandLandmarks) {
	capture.Annotate(frame, hand)
	buf, err := capture.EncodeJPEG(frame)
	if err != nil {
		log.Debug().Err(err).Msg("encoding preview")
		return
	}
	a.mu.Lock()
	a.preview = buf
	a.mu.Unlock()
}

// record logs, counts and journals what a tick resolved. Caller holds stepMu.
func (a *App) record(b *game.Batch) {
	if b == nil {
		return
	}

	if b.Missed {
		a.metrics.RecordMiss()
		log.Info().Msg("round missed: no move at shoot time")
	}

	if r := b.Round; r != nil {
		a.metrics.RecordRound(r.Outcome.String())
		log.Info().
			Int("round", r.Number).
			Stringer("player", r.Player).
			Stringer("opponent", r.Opponent).
			Stringer("outcome", r.Outcome).
			Str("score", r.Score.String()).
			Msg("round resolved")

		if a.store != nil && a.sessionID != "" {
			rd := &store.Round{
				SessionID:    a.sessionID,
				Number:       r.Number,
				PlayerMove:   r.Player.String(),
				OpponentMove: r.Opponent.String(),
				Outcome:      r.Outcome.String(),
			}
			if err := a.store.Rounds().Create(rd, r.Score.Player, r.Score.Opponent); err != nil {
				log.Error().Err(err).Int("round", r.Number).Msg("journaling round")
			}
		}
	}

	if b.Winner != game.NoWinner {
		score := a.machine.Score()
		a.metrics.RecordGameOver(b.Winner.String())
		log.Info().Stringer("winner", b.Winner).Str("score", score.String()).Msg("game over")

		if a.store != nil && a.sessionID != "" {
			if err := a.store.Sessions().Finish(a.sessionID, b.Winner.String(), score.Player, score.Opponent); err != nil {
				log.Error().Err(err).Msg("finishing session")
			}
		}
	}
}
