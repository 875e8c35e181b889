package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/picseq/internal/logger"
)

// shutdownGrace bounds draining in-flight requests once Start's context ends.
const shutdownGrace = 5 * time.Second

// Server serves the navigation API over HTTP.
//
//   - GET /health, /health/ready: probes
//   - /api/v1/...: cursor, navigation, image bytes and cache statistics
type Server struct {
	server   *http.Server
	config   APIConfig
	stopOnce sync.Once
}

// NewServer builds a stopped server. Zero config fields take their defaults,
// so tests can pass APIConfig{}.
func NewServer(config APIConfig, deps Dependencies) *Server {
	config.ApplyDefaults()
	if deps.RequestTimeout == 0 {
		deps.RequestTimeout = config.RequestTimeout
	}

	return &Server{
		config: config,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewRouter(deps),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully. It
// returns early with an error when the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"current", fmt.Sprintf("http://localhost:%d/api/v1/current", s.config.Port),
			"display", fmt.Sprintf("http://localhost:%d/api/v1/display", s.config.Port),
		)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// ctx is already done; drain with a fresh deadline.
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down once. Later calls return nil.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if err = s.server.Shutdown(ctx); err != nil {
			logger.Error("API server shutdown error", "error", err)
			err = fmt.Errorf("API server shutdown error: %w", err)
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return err
}

// Handler returns the routed handler, for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}
