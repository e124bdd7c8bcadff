package graph

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts GraphQL operations and the error codes they return.
type Metrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics registers the GraphQL collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Subsystem: "graphql",
			Name:      "operations_total",
			Help:      "GraphQL operations by outcome.",
		}, []string{"outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Subsystem: "graphql",
			Name:      "errors_total",
			Help:      "GraphQL errors by code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "directory",
			Subsystem: "graphql",
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing GraphQL operations.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.operations, m.errors, m.duration)
	return m
}

func (m *Metrics) observe(seconds float64, errs []responseError) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
	if len(errs) == 0 {
		m.operations.WithLabelValues("ok").Inc()
		return
	}
	m.operations.WithLabelValues("error").Inc()
	for _, e := range errs {
		m.errors.WithLabelValues(e.Code).Inc()
	}
}
