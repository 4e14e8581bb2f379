package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/rpsbattle/internal/app"
	"github.com/ayusman/rpsbattle/internal/capture"
	"github.com/ayusman/rpsbattle/internal/detector"
	"github.com/ayusman/rpsbattle/internal/metrics"
	"github.com/ayusman/rpsbattle/internal/server"
	"github.com/ayusman/rpsbattle/internal/speech"
	"github.com/ayusman/rpsbattle/internal/store"
)

type memoryEngine struct {
	mu    sync.Mutex
	lines []string
}

func (e *memoryEngine) Say(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = append(e.lines, text)
	return nil
}

func (e *memoryEngine) Close() error { return nil }

func (e *memoryEngine) spoken() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.lines...)
}

// paperPicker makes the opponent always throw Paper.
type paperPicker struct{}

func (paperPicker) IntN(int) int { return 1 }

func TestE2E_GameThroughHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st, err := store.New()
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	mgr := metrics.NewManager()
	engine := &memoryEngine{}
	det := detector.NewMockDetector()

	a := app.New(app.DefaultConfig(), app.Deps{
		Camera:   capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector: det,
		Speaker:  speech.NewDispatcher(engine, mgr),
		Store:    st,
		Metrics:  mgr,
		Rand:     paperPicker{},
	})
	if err := a.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{Game: a, Store: st, Metrics: mgr.Handler()}))
	defer ts.Close()
	client := ts.Client()

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("PlayScissorsAgainstPaper", func(t *testing.T) {
		det.SetHands([]detector.HandLandmarks{detector.ScissorsLandmarks(detector.Right)})
		a.Step(t0)
		a.Step(t0.Add(3 * time.Second))
		a.Step(t0.Add(3*time.Second + 30*time.Millisecond))
	})

	t.Run("StateReflectsTheRound", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("GET /api/state error = %v", err)
		}
		defer resp.Body.Close()

		var d app.Display
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if d.Result != "Scissors vs Paper -> You Win" || d.Score != "P1: 1  |  CPU: 0" {
			t.Errorf("display = %+v", d)
		}
	})

	t.Run("RoundIsJournaled", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/rounds")
		if err != nil {
			t.Fatalf("GET /api/rounds error = %v", err)
		}
		defer resp.Body.Close()

		var rounds []store.Round
		if err := json.NewDecoder(resp.Body).Decode(&rounds); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(rounds) != 1 || rounds[0].Outcome != "You Win" {
			t.Errorf("rounds = %+v", rounds)
		}
	})

	t.Run("MetricsCountTheRound", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		defer resp.Body.Close()

		var body strings.Builder
		if _, err := io.Copy(&body, resp.Body); err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(body.String(), `rpsbattle_rounds_total{outcome="You Win"} 1`) {
			t.Errorf("metrics missing round counter")
		}
	})

	t.Run("StopFlushesSpeech", func(t *testing.T) {
		a.Stop()

		spoken := engine.spoken()
		want := []string{"Ready.", "See Scissors. Ready?", "Shoot!", "Paper. Point for you."}
		for _, w := range want {
			found := false
			for _, s := range spoken {
				if s == w {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("announcement %q missing from %q", w, spoken)
			}
		}
	})

	if resp, err := client.Get(ts.URL + "/api/health"); err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("health check failed: %v", err)
	} else {
		resp.Body.Close()
	}
}
