package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the issue lifecycle's Prometheus metrics.
type Metrics struct {
	IssuesOpened      *prometheus.CounterVec
	IssuesResolved    *prometheus.CounterVec
	IssuesReopened    *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
}

// New creates and registers the issue lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		IssuesOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dataguard_issues_opened_total",
			Help: "Quality issues opened, by rule type",
		}, []string{"rule_type"}),
		IssuesResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dataguard_issues_resolved_total",
			Help: "Quality issues resolved, by rule type and resolution path",
		}, []string{"rule_type", "path"}),
		IssuesReopened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dataguard_issues_reopened_total",
			Help: "Resolved issues reopened after a failed re-validation",
		}, []string{"rule_type"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dataguard_issue_status_transitions_total",
			Help: "Operator-driven issue status transitions",
		}, []string{"from", "to"}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataguard_issue_reconcile_duration_seconds",
			Help:    "Time spent reconciling a single column finding",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
