// Package relay exposes the HTTP surface: WebSocket upgrades and the
// liveness endpoints.
package relay

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server binds the HTTP handlers to the hub and configuration.
type Server struct {
	cfg      *Config
	hub      *Hub
	log      *zap.Logger
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP front end for the relay.
func NewServer(cfg *Config, hub *Hub, log *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		log:     log,
		origins: newOriginPolicy(cfg.AllowedOrigins),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if s.origins.allow(r) {
				return true
			}
			s.log.Warn("blocked upgrade from disallowed origin",
				zap.String("origin", r.Header.Get("Origin")))
			return false
		},
	}
	return s
}

// HandleWS upgrades the request and registers the new connection with the
// hub, which starts its pumps.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg, s.log)
	s.hub.Register(client)
}

// HandleHealth reports liveness with the current connection count and the
// deployment environment.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.hub.ClientCount(),
		"env":         s.cfg.Environment,
	})
}

// HandlePing is the minimal liveness probe.
func (s *Server) HandlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
