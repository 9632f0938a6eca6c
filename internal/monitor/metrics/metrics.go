package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the monitor's Prometheus metrics.
type Metrics struct {
	Ticks         prometheus.Counter
	TickFailures  prometheus.Counter
	TickDuration  prometheus.Histogram
	AlertsRaised  *prometheus.CounterVec
	OverallScore  *prometheus.GaugeVec
	OpenIssues    *prometheus.GaugeVec
}

// New creates and registers the monitor metrics.
func New() *Metrics {
	return &Metrics{
		Ticks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_monitor_ticks_total",
			Help: "Total monitor sampling ticks",
		}),
		TickFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_monitor_tick_failures_total",
			Help: "Total ticks that failed to sample or persist",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataguard_monitor_tick_duration_seconds",
			Help:    "Time spent per monitor tick",
			Buckets: prometheus.DefBuckets,
		}),
		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dataguard_monitor_alerts_total",
			Help: "Alerts raised, by metric and severity",
		}, []string{"metric", "severity"}),
		OverallScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dataguard_quality_score",
			Help: "Latest overall quality score per scope",
		}, []string{"scope"}),
		OpenIssues: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dataguard_open_issues",
			Help: "Latest open-like issue count per scope",
		}, []string{"scope"}),
	}
}
