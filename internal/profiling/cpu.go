package profiling

import (
	"bytes"
	"context"
	"fmt"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hotpath-io/hotpath/internal/workload"
)

const (
	// DefaultCPUSeconds is used when the requested duration is out of
	// range. Out-of-range values clamp here instead of failing.
	DefaultCPUSeconds = 10

	// MaxCPUSeconds bounds a single sampling session.
	MaxCPUSeconds = 300

	defaultWorkers            = 4
	defaultWorkloadIterations = 50000
)

// CPUProfiler captures time-bounded CPU profiles of this process while
// racing a set of synthetic workload tasks against the requested
// duration. Sessions are single-flight: the Go runtime has exactly one
// process-wide CPU sampler, so overlapping captures queue on an internal
// mutex instead of failing with "profiling already in progress".
type CPUProfiler struct {
	mu         sync.Mutex
	logger     zerolog.Logger
	workers    int
	iterations int
}

// NewCPUProfiler creates a CPU profiler running the given number of
// workload tasks per capture. Non-positive arguments fall back to the
// defaults.
func NewCPUProfiler(workers, iterations int, logger zerolog.Logger) *CPUProfiler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if iterations <= 0 {
		iterations = defaultWorkloadIterations
	}
	return &CPUProfiler{
		logger:     logger.With().Str("component", "cpu-profiler").Logger(),
		workers:    workers,
		iterations: iterations,
	}
}

// ClampSeconds normalizes a requested duration to [1, MaxCPUSeconds],
// substituting DefaultCPUSeconds for anything out of range.
func ClampSeconds(seconds int) int {
	if seconds < 1 || seconds > MaxCPUSeconds {
		return DefaultCPUSeconds
	}
	return seconds
}

// Capture runs one CPU sampling session and returns the profile in pprof
// protobuf form. The capture window ends when the clamped duration
// elapses or when all workload tasks finish, whichever comes first; in
// the timer-wins case the workload tasks are abandoned via context
// cancellation and never awaited. The sampler is stopped on every path.
func (p *CPUProfiler) Capture(ctx context.Context, seconds int) ([]byte, error) {
	duration := time.Duration(ClampSeconds(seconds)) * time.Second

	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		return nil, fmt.Errorf("start CPU sampler: %w", err)
	}

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	// Cycle kernels by task index; even-indexed tasks run twice the
	// iterations so the call-stack mix stays uneven.
	g, workCtx := errgroup.WithContext(workCtx)
	for i := 0; i < p.workers; i++ {
		i := i
		g.Go(func() error {
			iterations := p.iterations
			if i%2 == 0 {
				iterations *= 2
			}
			return workload.RunMixed(workCtx, i, iterations)
		})
	}

	workloadDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(workloadDone)
	}()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	start := time.Now()
	var winner string
	select {
	case <-timer.C:
		winner = "timer"
	case <-workloadDone:
		winner = "workload"
	case <-ctx.Done():
		pprof.StopCPUProfile()
		return nil, fmt.Errorf("CPU capture interrupted: %w", ctx.Err())
	}

	pprof.StopCPUProfile()
	elapsed := time.Since(start)

	data := buf.Bytes()
	samples, err := sampleCount(data)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("winner", winner).
		Dur("elapsed", elapsed).
		Int("samples", samples).
		Int("bytes", len(data)).
		Msg("CPU profile captured")

	if samples == 0 {
		return nil, fmt.Errorf("%w: no CPU signal captured in %s; retry with a longer duration or under load", ErrNoSamples, elapsed.Round(time.Millisecond))
	}
	return data, nil
}
