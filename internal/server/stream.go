package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval is roughly 15 frames per second.
const DefaultStreamInterval = 66 * time.Millisecond

// StreamHandler serves the game's annotated preview as MJPEG.
type StreamHandler struct {
	game     Game
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler that polls game for a new preview every interval.
func NewStreamHandler(game Game, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &StreamHandler{game: game, interval: interval}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		if buf := h.game.Preview(); len(buf) > 0 && !samePreview(buf, last) {
			if err := writePart(w, buf); err != nil {
				return
			}
			last = buf
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// samePreview reports whether a and b are the same encoded frame. The app replaces the slice
// on every tick, so identity is enough.
func samePreview(a, b []byte) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
