// Package cli implements the hotpath command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hotpath-io/hotpath/internal/config"
	"github.com/hotpath-io/hotpath/internal/logging"
	"github.com/hotpath-io/hotpath/internal/profiling"
	"github.com/hotpath-io/hotpath/internal/server"
	"github.com/hotpath-io/hotpath/internal/state"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command, which runs the profiling
// service until interrupted.
func NewServeCmd() *cobra.Command {
	var (
		configFile string
		host       string
		port       int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the self-profiling HTTP service",
		Long: `Run the hotpath HTTP service.

The service exposes on-demand profiling of itself:

  GET  /                       - Status page
  GET  /work                   - Trigger CPU-intensive work
  POST /allocate?mb=<n>        - Allocate persistent memory
  POST /profile/cpu?seconds=<n> - Capture a CPU profile (pprof)
  POST /profile/memory         - Dump a heap profile (pprof)
  GET  /metrics                - Prometheus metrics
  GET  /health                 - Liveness check

Configuration sources (in order of precedence):
1. Environment variables (HOTPATH_*)
2. Config file (--config flag)
3. Defaults

Examples:
  # Defaults (localhost:8080)
  hotpath serve

  # With a config file
  hotpath serve --config /etc/hotpath/config.yaml

  # Capture a profile
  curl -X POST "http://localhost:8080/profile/cpu?seconds=5" > cpu_profile.pb
  go tool pprof -http=:9000 cpu_profile.pb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	svcState := state.New()

	cpuProfiler := profiling.NewCPUProfiler(
		cfg.Profiling.CPU.Workers,
		cfg.Profiling.CPU.WorkloadIterations,
		logger,
	)

	// Heap sampling must be activated before the listener opens so the
	// pool's allocations are sampled. Activation failure is logged, not
	// fatal: /profile/memory reports the condition per request.
	heapProfiler := profiling.NewHeapProfiler(cfg.HeapSampleRate(), logger)
	if err := heapProfiler.Activate(); err != nil {
		logger.Warn().Err(err).Msg("Heap profiling not activated; POST /profile/memory will fail with remediation guidance")
	}

	srv, err := server.New(server.Config{
		Addr:         cfg.ListenAddr(),
		State:        svcState,
		CPUProfiler:  cpuProfiler,
		HeapProfiler: heapProfiler,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info().Str("url", srv.URL()).Msg("hotpath service ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(ctx)
}
