// Package metrics exposes build measurements as Prometheus collectors on a
// private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lexideck/internal/governor"
)

const namespace = "lexideck"

// Metrics collects pipeline and governor measurements. All methods are safe
// on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	resources       *prometheus.CounterVec
	resourceRetries *prometheus.HistogramVec
	records         *prometheus.CounterVec
	limit           prometheus.Gauge
	throttles       prometheus.Gauge
	adjustments     prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts by resource kind and result class.",
		}, []string{"kind", "class"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream fetch attempts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		resources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Resolved resources by kind and terminal state.",
		}, []string{"kind", "state"}),
		resourceRetries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_attempts",
			Help:      "Fetch attempts needed per fetched or failed resource.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}, []string{"kind"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Completed records by usability.",
		}, []string{"usable"}),
		limit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "governor_effective_limit",
			Help:      "Current effective concurrency limit.",
		}),
		throttles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "governor_throttles",
			Help:      "Upstream throttling signals seen in this run.",
		}),
		adjustments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "governor_adjustments",
			Help:      "Limit changes made by the governor in this run.",
		}),
	}
	m.registry.MustRegister(
		m.attempts,
		m.attemptDuration,
		m.resources,
		m.resourceRetries,
		m.records,
		m.limit,
		m.throttles,
		m.adjustments,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAttempt records one upstream fetch attempt.
func (m *Metrics) ObserveAttempt(kind, class string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(kind, class).Inc()
	m.attemptDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveResource records the terminal state of a resource. Cached resources
// make no attempts and are excluded from the attempts histogram.
func (m *Metrics) ObserveResource(kind, state string, attempts int) {
	if m == nil {
		return
	}
	m.resources.WithLabelValues(kind, state).Inc()
	if attempts > 0 {
		m.resourceRetries.WithLabelValues(kind).Observe(float64(attempts))
	}
}

// ObserveRecord records a completed record.
func (m *Metrics) ObserveRecord(usable bool) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(strconv.FormatBool(usable)).Inc()
}

// ObserveGovernor mirrors the governor state. It matches governor.Observer.
func (m *Metrics) ObserveGovernor(state governor.State) {
	if m == nil {
		return
	}
	m.limit.Set(float64(state.EffectiveLimit))
	m.throttles.Set(float64(state.TotalThrottles))
	m.adjustments.Set(float64(state.Adjustments))
}
