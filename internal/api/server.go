//
//
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ground-control/gcs/internal/auth"
)

// Server is the HTTP API server.
type Server struct {
	httpServer     *http.Server
	hub            TelemetryPort
	commands       CommandPort
	vehicles       VehicleReadPort
	alerts         SafetyReadPort
	authMiddleware *auth.Middleware
	startTime      time.Time
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

// NewServer creates an API server. authMiddleware may be nil to disable
// authentication.
func NewServer(hub TelemetryPort, commands CommandPort, vehicles VehicleReadPort,
	alerts SafetyReadPort, authMiddleware *auth.Middleware,
	readTimeout, writeTimeout, idleTimeout time.Duration) *Server {
	return &Server{
		hub:            hub,
		commands:       commands,
		vehicles:       vehicles,
		alerts:         alerts,
		authMiddleware: authMiddleware,
		startTime:      time.Now(),
		readTimeout:    readTimeout,
		writeTimeout:   writeTimeout,
		idleTimeout:    idleTimeout,
	}
}

// Start runs the server on addr until Stop is called.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
