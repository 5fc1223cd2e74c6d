package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hotpath-io/hotpath/internal/state"
)

// metrics holds the server's Prometheus instruments on a private
// registry, exposed at GET /metrics.
type metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	capturesTotal   *prometheus.CounterVec
	captureDuration *prometheus.HistogramVec
}

func newMetrics(st *state.ServiceState) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotpath_requests_total",
			Help: "Accepted HTTP requests by route.",
		}, []string{"route"}),
		capturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotpath_profile_captures_total",
			Help: "Profile capture attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		captureDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hotpath_profile_duration_seconds",
			Help:    "Wall time of profile captures by kind.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
	}

	poolBytes := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "hotpath_memory_pool_bytes",
		Help: "Total bytes held in the persistent demo memory pool.",
	}, func() float64 {
		_, total := st.PoolSnapshot()
		return float64(total)
	})

	m.registry.MustRegister(m.requestsTotal, m.capturesTotal, m.captureDuration, poolBytes)
	return m
}
