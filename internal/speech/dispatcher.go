package speech

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Recorder receives the result of each utterance.
type Recorder interface {
	RecordAnnouncement(err error)
}

// Dispatcher hands each announcement to its own goroutine so the caller never waits on
// speech. Utterances may overlap and are never retried; failures are logged and dropped.
type Dispatcher struct {
	engine   Engine
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a Dispatcher speaking through engine. recorder may be nil.
func NewDispatcher(engine Engine, recorder Recorder) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		engine:   engine,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Announce starts speaking text in the background and returns immediately.
// Calls after Close are dropped.
func (d *Dispatcher) Announce(text string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		err := d.engine.Say(d.ctx, text)
		if err != nil && d.ctx.Err() == nil {
			log.Warn().Err(err).Str("text", text).Msg("announcement dropped")
		}
		if d.recorder != nil {
			d.recorder.RecordAnnouncement(err)
		}
	}()
}

// Close cancels in-flight speech, waits for the goroutines to exit and closes the engine.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	return d.engine.Close()
}
