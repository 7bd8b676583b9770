// Package httpapi exposes the relay's HTTP surface: health, open-match
// discovery, and the websocket upgrade into a match room.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sol-rts/netcore/internal/domain/match"
	"github.com/sol-rts/netcore/internal/infrastructure/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	repo   match.Repository
	hub    *relay.Hub
	logger zerolog.Logger
}

func NewServer(repo match.Repository, hub *relay.Hub, logger zerolog.Logger) *Server {
	return &Server{
		repo:   repo,
		hub:    hub,
		logger: logger.With().Str("component", "httpapi").Logger(),
	}
}

// Router builds the HTTP router. The websocket route skips the timeout
// middleware: room sessions live as long as the match.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/matches", func(r chi.Router) {
			r.With(middleware.Timeout(30 * time.Second)).Get("/", s.listMatches)
			r.With(middleware.Timeout(30 * time.Second)).Get("/{matchId}", s.getMatch)
			r.Get("/{matchId}/ws", s.matchWS)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.repo.ListOpen(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid matchId")
		return
	}
	m, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "match not found")
		return
	}
	participants, err := s.repo.ListParticipants(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match":        m,
		"participants": participants,
		"connected":    s.hub.RoomSize(id),
	})
}

// matchWS upgrades the connection and runs the participant's room session.
// Only registered participants of an existing match may connect.
func (s *Server) matchWS(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid matchId")
		return
	}
	participantID := r.URL.Query().Get("participant")
	if participantID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "participant is required")
		return
	}

	m, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "match not found")
		return
	}
	if m.Status == match.StatusEnded {
		respondError(w, http.StatusConflict, "MATCH_ENDED", "match has ended")
		return
	}
	participants, err := s.repo.ListParticipants(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	registered := false
	for _, p := range participants {
		if p.ParticipantID == participantID {
			registered = true
			break
		}
	}
	if !registered {
		respondError(w, http.StatusForbidden, "NOT_REGISTERED", "participant is not part of this match")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.Serve(id, participantID, conn)
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}
