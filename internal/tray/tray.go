// Package tray provides the desktop status menu: score in the title, the current status and
// detected move, and pause, new game and quit controls.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/rpsbattle/internal/app"
)

// Tray is the system tray menu.
type Tray struct {
	onToggle  func(enabled bool)
	onNewGame func()
	onOpen    func()
	onQuit    func()
	enabled   bool
	mu        sync.RWMutex

	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuMove   *systray.MenuItem
}

// New creates a Tray with the game enabled.
func New() *Tray {
	return &Tray{enabled: true}
}

// OnToggle sets the callback for the pause toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnNewGame sets the callback for the new game item.
func (t *Tray) OnNewGame(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNewGame = fn
}

// OnOpen sets the callback for the open-in-browser item. Without one the item is hidden.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(title(app.Display{Score: "P1: 0  |  CPU: 0"}))
	systray.SetTooltip("Rock Paper Scissors")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Show hand...", "Game status")
	t.menuStatus.Disable()
	t.menuMove = systray.AddMenuItem(moveTitle(""), "Move seen by the camera")
	t.menuMove.Disable()
	systray.AddSeparator()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume the game")
	hasOpen := t.onOpen != nil
	t.mu.Unlock()

	menuNewGame := systray.AddMenuItem("New Game", "Reset the score and start over")
	menuOpen := systray.AddMenuItem("Open in Browser...", "Show the camera preview")
	if !hasOpen {
		menuOpen.Hide()
	}
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit RPS Battle")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuNewGame.ClickedCh:
				t.call(func() func() { return t.onNewGame })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

// call runs the callback get returns, read under the lock and invoked outside it.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

// Update shows d in the title and menu. It is safe to call before Run.
func (t *Tray) Update(d app.Display) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = d.Enabled
	if t.menuStatus == nil {
		return
	}
	systray.SetTitle(title(d))
	t.menuStatus.SetTitle(d.Status)
	t.menuMove.SetTitle(moveTitle(d.Move))
	t.menuToggle.SetTitle(toggleTitle(d.Enabled))
}

// IsEnabled returns the toggle state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func title(d app.Display) string {
	if d.Over {
		return "RPS " + d.Winner + " won"
	}
	return "RPS " + d.Score
}

func moveTitle(move string) string {
	if move == "" {
		move = "none"
	}
	return "Det: " + move
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Playing"
	}
	return "○ Paused"
}
