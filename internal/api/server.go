package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server serving the dashboard API.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates the API server from its handler set.
func NewServer(h *Handlers, hc *HealthChecker) *Server {
	return &Server{handler: SetupRoutes(h, hc)}
}

// ListenAndServe starts the HTTP server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// The full chart export can be tens of megabytes on a large run,
		// so the write timeout is looser than the read side.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
