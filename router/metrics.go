package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes, used as the "outcome" label.
const (
	OutcomeNotFound         = "not_found"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeBadRequest       = "bad_request"
	OutcomeQueryFailed      = "query_failed"
	OutcomeDispatched       = "dispatched"
)

// Metrics holds the router's Prometheus collectors.
type Metrics struct {
	dispatches    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

// NewMetrics creates the router collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanboard",
			Subsystem: "router",
			Name:      "dispatch_total",
			Help:      "Requests dispatched by binding and outcome.",
		}, []string{"binding", "outcome"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kanboard",
			Subsystem: "router",
			Name:      "query_duration_seconds",
			Help:      "Named query execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"binding", "query"}),
	}
}

// Dispatches returns the dispatch counter.
func (m *Metrics) Dispatches() *prometheus.CounterVec { return m.dispatches }

func (m *Metrics) observeDispatch(binding, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(binding, outcome).Inc()
}

func (m *Metrics) observeQuery(binding, query string, start time.Time) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(binding, query).Observe(time.Since(start).Seconds())
}
