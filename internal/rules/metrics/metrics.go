package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the rule registry's Prometheus metrics.
type Metrics struct {
	RulesUpserted   prometheus.Counter
	RulesEnabled    prometheus.Counter
	RulesDisabled   prometheus.Counter
	PatternWarnings prometheus.Counter
}

// New creates and registers the rule registry metrics.
func New() *Metrics {
	return &Metrics{
		RulesUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_rules_upserted_total",
			Help: "Total rule definitions created or updated",
		}),
		RulesEnabled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_rules_enabled_total",
			Help: "Total disabled-to-enabled rule transitions",
		}),
		RulesDisabled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_rules_disabled_total",
			Help: "Total enabled-to-disabled rule transitions",
		}),
		PatternWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dataguard_rule_pattern_warnings_total",
			Help: "Total malformed value patterns skipped during classification",
		}),
	}
}
