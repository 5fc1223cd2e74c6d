package server

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

const statusPageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>hotpath</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .endpoint { background: #f4f4f4; padding: 10px; margin: 10px 0; border-radius: 5px; }
        code { background: #eee; padding: 2px 6px; border-radius: 3px; }
        .stats { background: #e8f5e9; padding: 10px; margin: 10px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>hotpath</h1>
    <p><strong>Status:</strong> Running</p>
    <p><strong>Requests Handled:</strong> %d</p>

    <div class="stats">
        <strong>Memory Stats:</strong><br>
        Allocated memory pools: %d<br>
        Total allocated: %s<br>
        Process RSS: %s<br>
        Process CPU: %.1f%%<br>
        Goroutines: %d
    </div>

    <h2>Available Endpoints</h2>

    <div class="endpoint">
        <strong>GET /work</strong><br>
        Trigger CPU-intensive work (for testing profiling)
    </div>

    <div class="endpoint">
        <strong>POST /allocate?mb=&lt;n&gt;</strong><br>
        Allocate persistent memory (for heap profiling demo)<br>
        Example: <code>curl -X POST "%s/allocate?mb=50"</code>
    </div>

    <div class="endpoint">
        <strong>POST /profile/cpu?seconds=&lt;n&gt;</strong><br>
        Get CPU profile in pprof format<br>
        Example: <code>curl -X POST "%s/profile/cpu?seconds=10" &gt; cpu_profile.pb</code>
    </div>

    <div class="endpoint">
        <strong>POST /profile/memory</strong><br>
        Get heap memory profile in pprof format<br>
        Example: <code>curl -X POST %s/profile/memory &gt; heap_profile.pb</code>
    </div>

    <div class="endpoint">
        <strong>GET /metrics</strong><br>
        Prometheus metrics
    </div>

    <h2>Quick Start</h2>
    <ol>
        <li>Start background work: <code>curl %s/work</code></li>
        <li>Capture a CPU profile: <code>curl -X POST "%s/profile/cpu?seconds=5" &gt; cpu_profile.pb</code></li>
        <li>Analyze: <code>go tool pprof -http=:9000 cpu_profile.pb</code></li>
    </ol>
</body>
</html>`

// handleStatus renders the HTML status page with live process stats.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	requestCount := s.state.RequestCount()
	poolCount, poolBytes := s.state.PoolSnapshot()

	rss, cpuPct := processStats()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	url := s.URL()
	_, _ = fmt.Fprintf(w, statusPageTemplate,
		requestCount,
		poolCount,
		humanize.IBytes(poolBytes),
		humanize.IBytes(rss),
		cpuPct,
		runtime.NumGoroutine(),
		url, url, url, url, url)
}

// processStats reads the process RSS and CPU percentage via gopsutil.
// Failures are informational only and reported as zeros.
func processStats() (rss uint64, cpuPct float64) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}
	if pct, err := proc.CPUPercent(); err == nil {
		cpuPct = pct
	}
	return rss, cpuPct
}
