package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hotpath-io/hotpath/internal/profiling"
	"github.com/hotpath-io/hotpath/internal/workload"
)

const (
	defaultAllocateMB = 10
	maxAllocateMB     = 1024
)

// handler builds the request pipeline: every accepted request increments
// the shared counter and is logged before being dispatched.
func (s *Server) handler() http.Handler {
	metricsHandler := promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := s.state.IncrementRequestCount()
		route := routeLabel(r.Method, r.URL.Path)
		s.metrics.requestsTotal.WithLabelValues(route).Inc()

		s.logger.Info().
			Uint64("request", count).
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("Request accepted")

		s.route(w, r, metricsHandler)
	})
}

// route dispatches on (method, path). Dispatch is an explicit switch
// rather than a ServeMux so an unknown method on a known path yields the
// same 404 as an unknown path.
func (s *Server) route(w http.ResponseWriter, r *http.Request, metricsHandler http.Handler) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		s.handleStatus(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/work":
		s.handleWork(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/allocate":
		s.handleAllocate(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/profile/cpu":
		s.handleCPUProfile(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/profile/memory":
		s.handleMemoryProfile(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/metrics":
		metricsHandler.ServeHTTP(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	default:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 Not Found\n"))
	}
}

// handleWork runs the synthetic CPU workload to completion.
func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	g, ctx := errgroup.WithContext(r.Context())
	for i := 0; i < 4; i++ {
		i := i
		g.Go(func() error {
			return workload.RunMixed(ctx, i, s.workRounds)
		})
	}

	if err := g.Wait(); err != nil {
		s.writeError(w, fmt.Errorf("CPU work interrupted: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "CPU-intensive work completed! Try profiling with: curl -X POST %q > cpu_profile.pb\n",
		s.URL()+"/profile/cpu?seconds=10")
}

// handleAllocate grows the persistent pool by roughly the requested
// number of MiB, spread over layered allocation patterns so the heap
// profiler sees varied shapes.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	mb := queryInt(r, "mb")
	if mb < 1 || mb > maxAllocateMB {
		mb = defaultAllocateMB
	}

	s.logger.Info().Int("mb", mb).Msg("Allocating persistent memory")

	// All allocation happens before the state lock is touched.
	bufs := layeredAllocations(mb)
	s.state.AppendToPool(bufs...)

	count, totalBytes := s.state.PoolSnapshot()
	totalMB := float64(totalBytes) / 1024.0 / 1024.0

	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w,
		"Allocated %d MB successfully!\nTotal allocated: %.2f MB across %d memory pools\n\nTry getting a heap profile:\ncurl -X POST %s/profile/memory > heap_profile.pb\ngo tool pprof -http=:9001 heap_profile.pb\n",
		mb, totalMB, count, s.URL())
}

// layeredAllocations produces the pool growth for one /allocate call:
// one large contiguous block, many 1 KiB blocks, and a ramp of
// variable-sized blocks. Each layer is a distinct allocation site.
func layeredAllocations(mb int) [][]byte {
	totalBytes := mb * 1024 * 1024
	var bufs [][]byte

	// Half the request as a single contiguous block.
	bufs = append(bufs, make([]byte, totalBytes/2))

	// A quarter of the request as uniform 1 KiB blocks.
	for i := 0; i < totalBytes/4/1024; i++ {
		block := make([]byte, 1024)
		for j := range block {
			block[j] = byte(i)
		}
		bufs = append(bufs, block)
	}

	// A ramp of 100 variable-sized blocks covering the last quarter of
	// the request (plus a sliver, so growth never lands under mb MiB).
	rampUnit := totalBytes / 20000
	for i := 0; i < 100; i++ {
		block := make([]byte, (i+1)*rampUnit)
		for j := range block {
			block[j] = 0xAA
		}
		bufs = append(bufs, block)
	}

	return bufs
}

// handleCPUProfile captures a time-bounded CPU profile and streams it as
// a pprof attachment.
func (s *Server) handleCPUProfile(w http.ResponseWriter, r *http.Request) {
	seconds := profiling.ClampSeconds(queryInt(r, "seconds"))

	s.logger.Info().Int("seconds", seconds).Msg("Starting CPU profile capture")

	timer := prometheus.NewTimer(s.metrics.captureDuration.WithLabelValues("cpu"))
	data, err := s.cpu.Capture(r.Context(), seconds)
	timer.ObserveDuration()

	if err != nil {
		s.metrics.capturesTotal.WithLabelValues("cpu", "error").Inc()
		s.writeError(w, err)
		return
	}
	s.metrics.capturesTotal.WithLabelValues("cpu", "ok").Inc()

	writeProfileArtifact(w, "cpu_profile.pb", data)
}

// handleMemoryProfile dumps a heap snapshot and streams it as a pprof
// attachment.
func (s *Server) handleMemoryProfile(w http.ResponseWriter, r *http.Request) {
	count, totalBytes := s.state.PoolSnapshot()
	s.logger.Info().
		Int("pool_count", count).
		Uint64("pool_bytes", totalBytes).
		Msg("Starting heap profile dump")

	timer := prometheus.NewTimer(s.metrics.captureDuration.WithLabelValues("heap"))
	data, err := s.heap.Dump(r.Context())
	timer.ObserveDuration()

	if err != nil {
		s.metrics.capturesTotal.WithLabelValues("heap", "error").Inc()
		s.writeError(w, err)
		return
	}
	s.metrics.capturesTotal.WithLabelValues("heap", "ok").Inc()

	writeProfileArtifact(w, "heap_profile.pb", data)
}

// writeError resolves an error at the handler boundary into a 500 plain
// text response. Nothing propagates past this point.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("Request failed")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

func writeProfileArtifact(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// queryInt parses an integer query parameter, returning 0 for missing or
// malformed values so the caller's clamping applies the default.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// routeLabel maps a request to a bounded metrics label.
func routeLabel(method, path string) string {
	switch {
	case method == http.MethodGet && path == "/":
		return "status"
	case method == http.MethodGet && path == "/work":
		return "work"
	case method == http.MethodPost && path == "/allocate":
		return "allocate"
	case method == http.MethodPost && path == "/profile/cpu":
		return "profile_cpu"
	case method == http.MethodPost && path == "/profile/memory":
		return "profile_memory"
	case method == http.MethodGet && path == "/metrics":
		return "metrics"
	case method == http.MethodGet && path == "/health":
		return "health"
	default:
		return "other"
	}
}
