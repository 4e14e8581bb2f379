package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/rpsbattle/internal/app"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI only
	},
}

// EventsHandler pushes display updates to WebSocket clients. Each client first receives the
// current snapshot, then every change. A client that falls behind misses intermediate updates.
type EventsHandler struct {
	game Game
}

// NewEventsHandler creates an EventsHandler for game.
func NewEventsHandler(game Game) *EventsHandler {
	return &EventsHandler{game: game}
}

// ServeHTTP upgrades the request and streams updates until the client goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	send := make(chan app.Display, clientSend)
	unsubscribe := h.game.Subscribe(func(d app.Display) {
		select {
		case send <- d:
		default:
		}
	})
	defer unsubscribe()

	// The reader only notices the close; clients never send anything we use.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, h.game.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case d := <-send:
			if err := h.write(conn, d); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, d app.Display) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(d)
}
