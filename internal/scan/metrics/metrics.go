package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scan orchestrator's Prometheus metrics.
type Metrics struct {
	ScansStarted      *prometheus.CounterVec
	SourcesScanned    prometheus.Counter
	SourceFailures    prometheus.Counter
	ColumnsClassified prometheus.Counter
	PatternWarnings   prometheus.Counter
	ScanDuration      prometheus.Histogram
}

// New creates and registers the scan metrics.
func New() *Metrics {
	return &Metrics{
		ScansStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dataguard_scans_total",
			Help: "Scan passes started, by trigger",
		}, []string{"trigger"}),
		SourcesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_scan_sources_total",
			Help: "Data sources scanned successfully",
		}),
		SourceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_scan_source_failures_total",
			Help: "Data sources that failed during a scan pass",
		}),
		ColumnsClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_scan_columns_classified_total",
			Help: "Columns classified as sensitive across all passes",
		}),
		PatternWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_scan_pattern_warnings_total",
			Help: "Malformed value patterns skipped during classification",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataguard_scan_duration_seconds",
			Help:    "Time spent per scan pass",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300},
		}),
	}
}
