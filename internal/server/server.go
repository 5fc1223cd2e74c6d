// Package server implements the HTTP surface of the hotpath service: the
// status page, synthetic load and allocation triggers, and the two
// profiling endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotpath-io/hotpath/internal/profiling"
	"github.com/hotpath-io/hotpath/internal/state"
)

// Config contains dependencies for creating a Server.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string

	// State is the shared process state (required).
	State *state.ServiceState

	// CPUProfiler captures CPU profiles (required).
	CPUProfiler *profiling.CPUProfiler

	// HeapProfiler controls heap dumps (required).
	HeapProfiler *profiling.HeapProfiler

	// WorkRounds is the number of workload rounds each /work task runs.
	// Defaults to a value that completes in well under a second.
	WorkRounds int

	// Logger is the logger instance.
	Logger zerolog.Logger
}

// Server is the HTTP server for the hotpath service.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	state      *state.ServiceState
	cpu        *profiling.CPUProfiler
	heap       *profiling.HeapProfiler
	metrics    *metrics
	workRounds int
	addr       string
	logger     zerolog.Logger
}

const defaultWorkRounds = 25

// New creates a new Server from the given dependencies.
func New(cfg Config) (*Server, error) {
	if cfg.State == nil {
		return nil, fmt.Errorf("state is required")
	}
	if cfg.CPUProfiler == nil || cfg.HeapProfiler == nil {
		return nil, fmt.Errorf("both profilers are required")
	}

	workRounds := cfg.WorkRounds
	if workRounds <= 0 {
		workRounds = defaultWorkRounds
	}

	s := &Server{
		state:      cfg.State,
		cpu:        cfg.CPUProfiler,
		heap:       cfg.HeapProfiler,
		metrics:    newMetrics(cfg.State),
		workRounds: workRounds,
		addr:       cfg.Addr,
		logger:     cfg.Logger.With().Str("component", "server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Start binds the listener and serves in a background goroutine. A bind
// failure is returned synchronously; it is the only startup error fatal
// to the process.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("HTTP server started")
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.addr
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.addr)
}
