package profiling

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hotpath-io/hotpath/internal/allocdemo"
)

// DefaultHeapSampleRate is the allocator sampling interval in bytes
// applied when heap profiling is enabled without an explicit rate.
const DefaultHeapSampleRate = 64 * 1024

// HeapProfiler controls allocator-level sampling and heap snapshot
// dumps. Activation is a one-time step taken before the service accepts
// connections; dumps are serialized process-wide because the runtime's
// allocation sampler maintains global state.
type HeapProfiler struct {
	mu         sync.Mutex
	logger     zerolog.Logger
	sampleRate int
	activated  bool
}

// NewHeapProfiler creates a heap profiler with the given sampling rate
// in bytes. A non-positive rate leaves the profiler deactivatable only
// by reconfiguration, which models platforms where allocator sampling is
// unavailable.
func NewHeapProfiler(sampleRate int, logger zerolog.Logger) *HeapProfiler {
	return &HeapProfiler{
		logger:     logger.With().Str("component", "heap-profiler").Logger(),
		sampleRate: sampleRate,
	}
}

// Activate enables allocator-level sampling. It must run early in
// process startup: the runtime only samples allocations made after the
// rate is set, so late activation produces sparse profiles. Activation
// is idempotent and never undone.
func (h *HeapProfiler) Activate() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.activated {
		return nil
	}
	if h.sampleRate <= 0 {
		return fmt.Errorf("heap sampling disabled (sample rate %d)", h.sampleRate)
	}

	runtime.MemProfileRate = h.sampleRate
	h.activated = true

	h.logger.Info().Int("sample_rate_bytes", h.sampleRate).Msg("Heap profiling activated")
	return nil
}

// Activated reports whether allocator sampling has been enabled.
func (h *HeapProfiler) Activated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activated
}

// Dump produces a heap snapshot in pprof protobuf form. Only one dump
// runs at a time. A fresh demo allocation batch is synthesized and kept
// alive until the dump returns so the snapshot carries varied call
// sites alongside the persistent pool.
func (h *HeapProfiler) Dump(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.activated {
		return nil, fmt.Errorf("%w: allocator sampling was not enabled at startup; restart with profiling.heap.enabled=true (or HOTPATH_HEAP_SAMPLE_RATE set) to activate it", ErrNotActivated)
	}

	batch := allocdemo.NewBatch(ctx)
	h.logger.Info().
		Int("batch_buffers", batch.Len()).
		Uint64("batch_bytes", batch.TotalBytes()).
		Msg("Synthesized demo allocations for heap dump")

	// The heap profile reflects state as of the last garbage collection;
	// force one so the live batch and pool are visible in the snapshot.
	runtime.GC()

	var buf bytes.Buffer
	err := pprof.Lookup("heap").WriteTo(&buf, 0)

	// The batch must survive the dump call itself.
	runtime.KeepAlive(batch)

	if err != nil {
		return nil, fmt.Errorf("dump heap profile: %w", err)
	}

	data := buf.Bytes()
	samples, perr := sampleCount(data)
	if perr != nil {
		return nil, perr
	}

	h.logger.Info().Int("samples", samples).Int("bytes", len(data)).Msg("Heap profile dumped")

	if samples == 0 {
		return nil, fmt.Errorf("%w: populate the pool first via POST /allocate?mb=50 and retry", ErrNoAllocationData)
	}
	return data, nil
}
