package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nhangara/identity-server/internal/model"
)

// HTTPServer wraps an http.Server with address and lifecycle methods.
type HTTPServer struct {
	server *http.Server
	addr   string
}

// NewHTTPServer creates an HTTPServer serving handler on addr.
func NewHTTPServer(
	handler http.Handler,
	addr string,
	readTimeout time.Duration,
	writeTimeout time.Duration,
) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       2 * writeTimeout,
		},
		addr: addr,
	}
}

// Start serves on the configured address using the provided security layer.
// It returns nil once Stop has shut the server down.
func (s *HTTPServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Address returns the configured listen address.
func (s *HTTPServer) Address() string {
	return s.addr
}
