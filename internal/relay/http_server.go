// Package relay constructs the HTTP server with production timeouts.
package relay

import (
	"context"
	"net/http"
	"time"
)

// NewHTTPServer creates an HTTP server for the given address and handler
// with sane timeouts for a long-lived relay process.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownHTTPServer stops the listener, waiting up to timeout for active
// requests to finish.
func ShutdownHTTPServer(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(ctx)
}
