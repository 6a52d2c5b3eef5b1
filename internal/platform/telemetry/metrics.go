// Package telemetry exposes Prometheus metrics for the console: page/API
// request counters, remote backend call latency, and query-cache hit rates.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the console's Prometheus collectors. A nil *Metrics is
// valid and turns every observation into a no-op.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	backendTotal   *prometheus.CounterVec
	cacheTotal     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total console HTTP requests",
		}, []string{"method", "path", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "console",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of remote scheduling API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "resource"}),
		backendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total remote scheduling API calls",
		}, []string{"method", "resource", "status"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "querycache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by outcome",
		}, []string{"resource", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.backendLatency, m.backendTotal, m.cacheTotal)
	return m
}

func (m *Metrics) ObserveRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) ObserveBackendCall(method, resource, status string, seconds float64) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(method, resource, status).Inc()
	m.backendLatency.WithLabelValues(method, resource).Observe(seconds)
}

func (m *Metrics) ObserveCacheLookup(resource string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheTotal.WithLabelValues(resource, outcome).Inc()
}
