package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics keeps the service collectors in a private registry so several
// instances can coexist, e.g. in tests.
//
// - policy_resolutions_total: resolutions by outcome
// - policy_resolution_duration_seconds: time spent resolving one message
// - policy_files_loaded_total: policy files merged, by dimension
// - http_requests_total / http_request_duration_seconds: API traffic
type Metrics struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
	filesLoaded *prometheus.CounterVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "policy_resolutions_total", Help: "Policy resolutions by outcome."},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "policy_resolution_duration_seconds", Help: "Time spent resolving the policy of one message.", Buckets: prometheus.DefBuckets},
		),
		filesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "policy_files_loaded_total", Help: "Policy files merged, by dimension."},
			[]string{"dimension"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by path, method and status."},
			[]string{"path", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
			[]string{"path", "method"},
		),
	}
	m.registry.MustRegister(m.resolutions, m.duration, m.filesLoaded, m.requests, m.latency)
	return m
}

// ObserveResolution records one finished resolution. Safe on a nil receiver.
func (m *Metrics) ObserveResolution(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// FileLoaded records a merged policy file. Safe on a nil receiver.
func (m *Metrics) FileLoaded(dimension string) {
	if m == nil {
		return
	}
	m.filesLoaded.WithLabelValues(dimension).Inc()
}

// ObserveRequest records one served HTTP request. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(path, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
