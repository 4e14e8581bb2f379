// Package server serves the game's browser surface: state, round history, the annotated
// camera preview and live display updates.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/rpsbattle/internal/app"
	"github.com/ayusman/rpsbattle/internal/store"
)

// Game is the part of *app.App the server reads and controls.
type Game interface {
	Snapshot() app.Display
	Subscribe(fn func(app.Display)) (unsubscribe func())
	Preview() []byte
	SessionID() string
	NewGame()
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// Config holds the server configuration.
type Config struct {
	Game Game
	// Store enables /api/rounds and /api/sessions/{id}.
	Store *store.Store
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// StaticDir serves the browser UI at / when set.
	StaticDir string
	// StreamInterval is the MJPEG frame period. Defaults to DefaultStreamInterval.
	StreamInterval time.Duration
}

// Server is the HTTP front end.
type Server struct {
	config Config
	r      *chi.Mux
	start  time.Time
}

// New creates a Server and registers its routes.
func New(config Config) *Server {
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}
	s := &Server{
		config: config,
		r:      chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.Recoverer)

	s.r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(10 * time.Second))
			r.Get("/health", s.handleHealth)

			if s.config.Game != nil {
				r.Get("/state", s.handleState)
				r.Post("/game/new", s.handleNewGame)
				r.Put("/game/enabled", s.handleSetEnabled)
			}
			if s.config.Store != nil {
				r.Get("/rounds", s.handleRounds)
				r.Get("/sessions/{id}", s.handleSession)
			}
		})

		// Long-lived responses stay outside the timeout group.
		if s.config.Game != nil {
			r.Get("/stream", NewStreamHandler(s.config.Game, s.config.StreamInterval).ServeHTTP)
			r.Get("/events", NewEventsHandler(s.config.Game).ServeHTTP)
		}
	})

	if s.config.Metrics != nil {
		s.r.Handle("/metrics", s.config.Metrics)
	}

	if s.config.StaticDir != "" {
		s.r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Game.Snapshot())
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	s.config.Game.NewGame()
	writeJSON(w, http.StatusOK, s.config.Game.Snapshot())
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"enabled\": true|false}")
		return
	}
	s.config.Game.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.Game.IsEnabled()})
}

// handleRounds lists the rounds of ?session=, or of the current session.
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" && s.config.Game != nil {
		id = s.config.Game.SessionID()
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "no session")
		return
	}

	rounds, err := s.config.Store.Rounds().ListBySession(id)
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("listing rounds")
		writeError(w, http.StatusInternalServerError, "failed to list rounds")
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.config.Store.Sessions().Get(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("getting session")
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
