// Package metrics holds the Prometheus collectors of the identity server.
// Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nhangara_identity"

// Metrics is a set of collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight    prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	provisioning    *prometheus.CounterVec
	orphans         prometheus.Counter
	sessionChecks   *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_provisioning_total",
			Help:      "Wallet provisioning attempts by outcome.",
		}, []string{"outcome"}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_ledger_accounts_total",
			Help:      "Ledger accounts recorded for manual reconciliation.",
		}),
		sessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_validations_total",
			Help:      "Session validations by result.",
		}, []string{"result"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_reconciliations_total",
			Help:      "Local cache reconciliations by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.logins, m.provisioning, m.orphans, m.sessionChecks, m.reconciliations,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

func (m *Metrics) RequestFinished(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Provisioning(outcome string) {
	if m == nil {
		return
	}
	m.provisioning.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Orphan() {
	if m == nil {
		return
	}
	m.orphans.Inc()
}

func (m *Metrics) SessionValidation(result string) {
	if m == nil {
		return
	}
	m.sessionChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconciliation(result string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(result).Inc()
}
