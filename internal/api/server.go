// Package api is the reference HTTP surface over a running notebook
// Coordinator (SPEC_FULL §2.3, §6.3). Grounded on the teacher's
// internal/infrastructure/api/rest server: a single http.ServeMux built
// from Go 1.22 method+path patterns, one handler method per route.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/carter293/reactive-notebook/coordinator"
	"github.com/carter293/reactive-notebook/notebook"
	"github.com/carter293/reactive-notebook/transport/ws"
)

// Sessions resolves a notebook ID to its live Session. The server package
// is deliberately agnostic to how sessions are created or evicted; cmd/server
// owns that lifecycle.
type Sessions interface {
	Get(notebookID string) (*coordinator.Coordinator, *ws.Hub, bool)
	Session(notebookID string) (*Session, bool)
}

type Server struct {
	sessions Sessions
	mux      *http.ServeMux
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewServer(sessions Sessions, log zerolog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		mux:      http.NewServeMux(),
		log:      log.With().Str("component", "api_server").Logger(),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/notebooks/{id}/cells", s.handleCreateCell)
	s.mux.HandleFunc("PUT /api/v1/notebooks/{id}/cells/{cellID}", s.handleUpdateCell)
	s.mux.HandleFunc("DELETE /api/v1/notebooks/{id}/cells/{cellID}", s.handleDeleteCell)
	s.mux.HandleFunc("POST /api/v1/notebooks/{id}/cells/{cellID}/run", s.handleRunCell)
	s.mux.HandleFunc("PUT /api/v1/notebooks/{id}/db-connection", s.handleSetDBConnection)
	s.mux.HandleFunc("GET /api/v1/notebooks/{id}/events", s.handleEvents)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) coordinatorFor(r *http.Request) (*coordinator.Coordinator, bool) {
	c, _, ok := s.sessions.Get(r.PathValue("id"))
	return c, ok
}

type createCellRequest struct {
	Kind  string `json:"kind"`
	After string `json:"after"`
}

func (s *Server) handleCreateCell(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinatorFor(r)
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}
	var req createCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cell, err := c.CreateCell(r.Context(), notebook.Kind(req.Kind), notebook.ID(req.After))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cell)
}

type updateCellRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Session(r.PathValue("id"))
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}
	var req updateCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cellID := notebook.ID(r.PathValue("cellID"))
	if err := session.Coordinator.UpdateCell(r.Context(), cellID, req.Source); err != nil {
		s.writeError(w, err)
		return
	}
	if session.AutoRun != nil {
		session.AutoRun.NotifyEdited(cellID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCell(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Session(r.PathValue("id"))
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}
	cellID := notebook.ID(r.PathValue("cellID"))
	if err := session.Coordinator.DeleteCell(r.Context(), cellID); err != nil {
		s.writeError(w, err)
		return
	}
	if session.AutoRun != nil {
		session.AutoRun.Cancel(cellID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunCell(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinatorFor(r)
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}
	if err := c.RunCell(r.Context(), notebook.ID(r.PathValue("cellID"))); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type setDBConnectionRequest struct {
	ConnectionString string `json:"connection_string"`
}

func (s *Server) handleSetDBConnection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinatorFor(r)
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}
	var req setDBConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := c.SetDBConnection(r.Context(), req.ConnectionString); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents upgrades to a WebSocket and registers the connection with
// the notebook's Hub, which relays its Coordinator's observer stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	_, hub, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	hub.Register(ws.NewClient(hub, conn))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	http.Error(w, err.Error(), http.StatusBadRequest)
}
