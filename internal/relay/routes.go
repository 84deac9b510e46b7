// Package relay wires the HTTP handlers into a ServeMux.
package relay

import "net/http"

// Routes returns the relay's HTTP mux: liveness at / and /ping, WebSocket
// upgrades at /ws.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleHealth)
	mux.HandleFunc("/ping", s.HandlePing)
	mux.HandleFunc("/ws", s.HandleWS)
	return mux
}
