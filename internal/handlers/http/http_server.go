package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"causalGraphApp/internal/alerts"
	"causalGraphApp/internal/app"
	"causalGraphApp/internal/handlers/websocket"
)

// Server represents an HTTP server with all routes configured
type Server struct {
	orchestrator *app.Orchestrator
	alertEngine  *alerts.Engine
	broadcaster  *websocket.WebSocketBroadcaster
	mux          *http.ServeMux
	server       *http.Server
}

// NewServer creates a new HTTP server with configured routes
func NewServer(addr string, orchestrator *app.Orchestrator, alertEngine *alerts.Engine, broadcaster *websocket.WebSocketBroadcaster) *Server {
	mux := http.NewServeMux()

	server := &Server{
		orchestrator: orchestrator,
		alertEngine:  alertEngine,
		broadcaster:  broadcaster,
		mux:          mux,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.registerRoutes()

	return server
}

// registerRoutes configures all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/alerts", s.handleAlerts)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.broadcaster.Handler())
}

// handleSnapshot serves the current graph projection.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.orchestrator.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("failed to encode snapshot: %v", err)
	}
}

// handleAlerts serves the most recently emitted alerts, oldest first.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	recent := s.alertEngine.Recent()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recent); err != nil {
		log.Printf("failed to encode alerts: %v", err)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
