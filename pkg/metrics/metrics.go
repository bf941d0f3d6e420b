// Package metrics holds the Prometheus collectors exported by the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "approval_engine"

// Metrics groups the engine collectors so tests can use a private registry
type Metrics struct {
	Transitions   *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
}

// New creates the collectors without registering them
func New() *Metrics {
	return &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "transitions_total", Help: "Number of accepted workflow events by type."},
			[]string{"event"},
		),
		StorageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "storage_errors_total", Help: "Number of failed store operations by operation."},
			[]string{"op"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Number of API requests by route and status code."},
			[]string{"method", "route", "status"},
		),
	}
}

// Register adds every collector to reg
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Transitions)
	reg.MustRegister(m.StorageErrors)
	reg.MustRegister(m.HTTPRequests)
}

// RecordTransition counts one workflow event
func (m *Metrics) RecordTransition(eventType string) {
	m.Transitions.WithLabelValues(eventType).Inc()
}

// RecordStorageError counts one failed store operation
func (m *Metrics) RecordStorageError(op string) {
	m.StorageErrors.WithLabelValues(op).Inc()
}

// RecordRequest counts one handled API request
func (m *Metrics) RecordRequest(method, route, status string) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
