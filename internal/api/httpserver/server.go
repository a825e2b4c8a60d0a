// Package httpserver owns the HTTP listener lifecycle and the middleware
// chain in front of the REST API.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OmniStable-Network/bridge_layer/internal/config"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// Server wraps http.Server with config-driven timeouts.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// New builds a Server for the given handler.
func New(cfg config.ServerConfig, log *logger.Logger, handler http.Handler) *Server {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		log: log,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves requests until Shutdown is called. It blocks.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
