package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"gridrush/internal/room"
	"gridrush/internal/storage"
)

// Server is the HTTP server and the dispatch boundary between connections
// and rooms. It owns the registry and the connection→room mapping.
type Server struct {
	mux      *http.ServeMux
	registry *room.Registry
	store    *storage.Store // may be nil

	mu          sync.Mutex
	conns       map[string]*conn  // player id → connection
	roomsByConn map[string]string // player id → room code
}

// New creates a server with all routes. store may be nil to disable the
// match-history log.
func New(cfg room.Config, store *storage.Store) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		store:       store,
		conns:       make(map[string]*conn),
		roomsByConn: make(map[string]string),
	}
	var recorder room.MatchRecorder
	if store != nil {
		recorder = store
	}
	s.registry = room.NewRegistry(cfg, s, recorder)
	s.routes()
	return s
}

// Registry exposes the room registry for tests and diagnostics.
func (s *Server) Registry() *room.Registry {
	return s.registry
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/matches", s.handleRecentMatches)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleRecentMatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []storage.MatchRow{})
		return
	}
	matches, err := s.store.RecentMatches(20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if matches == nil {
		matches = []storage.MatchRow{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
