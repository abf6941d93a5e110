package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig holds configuration for the metrics server.
type ServerConfig struct {
	Port int
	Path string
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{Port: 9090, Path: "/metrics"}
}

// Server exposes the /metrics endpoint for a long-running optimizer job.
// Adapted from the teacher's metrics.Server: the live-trading health/ready/
// live endpoints are dropped (no long-running service process here to
// probe), leaving just the scrape endpoint.
type Server struct {
	cfg        ServerConfig
	httpServer *http.Server
	startTime  time.Time
}

// NewServer creates a new metrics server.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	return &Server{
		cfg:       cfg,
		startTime: time.Now(),
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the metrics server in the background.
func (s *Server) Start() error {
	go func() {
		_ = s.httpServer.ListenAndServe()
	}()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
