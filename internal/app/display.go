package app

import "github.com/ayusman/rpsbattle/internal/game"

// Display is what the presentation surfaces show: the four text fields the game updates plus
// the numbers behind them.
type Display struct {
	State  string `json:"state"`
	Status string `json:"status"`
	Score  string `json:"score"`
	Result string `json:"result"`
	// Move is the label of the move detected on the latest tick.
	Move string `json:"move"`

	Round         int    `json:"round"`
	PlayerScore   int    `json:"player_score"`
	OpponentScore int    `json:"opponent_score"`
	Over          bool   `json:"over"`
	Winner        string `json:"winner,omitempty"`
	Enabled       bool   `json:"enabled"`
	SessionID     string `json:"session_id,omitempty"`
}

func (d *Display) apply(effects []game.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case game.SetStatus:
			d.Status = e.Text
		case game.SetScore:
			d.Score = e.Text
		case game.SetResult:
			d.Result = e.Text
		}
	}
}

// Snapshot returns the current display.
func (a *App) Snapshot() Display {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.display
}

// Subscribe registers fn to receive every changed display. fn runs on the loop goroutine and
// must not block. The returned func removes the subscription.
func (a *App) Subscribe(fn func(Display)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Preview returns the latest annotated frame as JPEG, or nil before the first frame.
func (a *App) Preview() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.preview
}

// publish applies update to the display and notifies subscribers when it changed.
func (a *App) publish(update func(*Display)) Display {
	a.mu.Lock()
	prev := a.display
	update(&a.display)
	cur := a.display
	var fns []func(Display)
	if cur != prev {
		fns = make([]func(Display), 0, len(a.subs))
		for _, fn := range a.subs {
			fns = append(fns, fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(cur)
	}
	return cur
}
