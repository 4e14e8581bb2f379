package tray

import (
	"testing"

	"github.com/ayusman/rpsbattle/internal/app"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		d    app.Display
		want string
	}{
		{"in play", app.Display{Score: "P1: 1  |  CPU: 2"}, "RPS P1: 1  |  CPU: 2"},
		{"game over", app.Display{Score: "P1: 3  |  CPU: 2", Over: true, Winner: "You"}, "RPS You won"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := title(tt.d); got != tt.want {
				t.Errorf("title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoveTitle(t *testing.T) {
	if got := moveTitle(""); got != "Det: none" {
		t.Errorf("moveTitle(\"\") = %q", got)
	}
	if got := moveTitle("Paper"); got != "Det: Paper" {
		t.Errorf("moveTitle(Paper) = %q", got)
	}
}

func TestTray_ToggleBeforeRun(t *testing.T) {
	tr := New()
	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected enabled after two toggles")
	}
}

func TestTray_UpdateBeforeRun(t *testing.T) {
	tr := New()
	tr.Update(app.Display{Enabled: false, Status: "Ready..."})
	if tr.IsEnabled() {
		t.Error("Update should carry the paused state")
	}
}
