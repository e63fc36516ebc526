package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service.
type Metrics struct {
	registry         *prometheus.Registry
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	stepOutcomes     *prometheus.CounterVec
}

// New registers the service collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboarding",
				Name:      "upstream_requests_total",
				Help:      "Calls made to the onboarding API by call and HTTP status.",
			},
			[]string{"call", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onboarding",
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of calls to the onboarding API.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"call"},
		),
		stepOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboarding",
				Name:      "step_outcomes_total",
				Help:      "Step controller outcomes by step and status kind.",
			},
			[]string{"step", "kind"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamDuration,
		m.stepOutcomes,
	)
	return m
}

// ObserveUpstream records one API call. A status of zero means the request
// never produced a response.
func (m *Metrics) ObserveUpstream(call string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamRequests.WithLabelValues(call, label).Inc()
	m.upstreamDuration.WithLabelValues(call).Observe(elapsed.Seconds())
}

// ObserveStep counts a step outcome.
func (m *Metrics) ObserveStep(step, kind string) {
	if m == nil {
		return
	}
	m.stepOutcomes.WithLabelValues(step, kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
