// Package service runs the real-time monitor: a fixed-interval sampler that
// scores each asset from its open issues, diffs against the previous tick,
// raises threshold alerts and publishes every tick's raw sample for live
// trend lines.
package service

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dataguard/internal/events"
	issuemodels "dataguard/internal/issues/models"
	monitormetrics "dataguard/internal/monitor/metrics"
	"dataguard/internal/monitor/models"
	"dataguard/internal/monitor/store"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/sentinel"
)

// severityWeights convert open issues into score penalty points. One fresh
// critical issue moves an asset's score by a full critical-alert threshold.
var severityWeights = map[issuemodels.Severity]float64{
	issuemodels.SeverityCritical: 20,
	issuemodels.SeverityHigh:     10,
	issuemodels.SeverityMedium:   5,
	issuemodels.SeverityLow:      2,
}

// IssueCounter supplies the open-issue breakdown each tick scores from.
type IssueCounter interface {
	OpenSeverityCounts(ctx context.Context) (map[domain.AssetID]map[issuemodels.Severity]int, error)
}

// ScoreStore persists the rolling score window.
type ScoreStore interface {
	Append(ctx context.Context, sample models.ScoreSample) error
	Latest(ctx context.Context, scope domain.AssetID) (*models.ScoreSample, error)
	Window(ctx context.Context, scope domain.AssetID, n int) ([]models.ScoreSample, error)
}

// AlertStore persists threshold-crossing alerts.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	Get(ctx context.Context, id domain.AlertID) (*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, error)
}

// Auditor records alert lifecycle events on the audit trail.
type Auditor interface {
	AlertEvent(ctx context.Context, alertID string, assetID domain.AssetID, action, reason string)
}

// Monitor owns the tick loop. The previous tick's snapshot lives in the
// loop's stack frame, never in shared state.
type Monitor struct {
	interval time.Duration
	counter  IssueCounter
	scores   ScoreStore
	alerts   AlertStore
	bus      *events.Bus
	auditor  Auditor
	metrics  *monitormetrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures the monitor.
type Option func(*Monitor)

// WithAuditor wires the audit trail.
func WithAuditor(a Auditor) Option {
	return func(m *Monitor) { m.auditor = a }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(mm *monitormetrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mm }
}

// New constructs a monitor.
func New(interval time.Duration, counter IssueCounter, scores ScoreStore, alerts AlertStore, bus *events.Bus, logger *slog.Logger, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Monitor{
		interval: interval,
		counter:  counter,
		scores:   scores,
		alerts:   alerts,
		bus:      bus,
		logger:   logger,
		tracer:   otel.Tracer("dataguard/monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run loops until the context ends. A failed tick is logged and the loop
// keeps its previous snapshot so the next diff is still meaningful.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var previous map[domain.AssetID]models.ScoreSample
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next, err := m.Tick(ctx, previous)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				m.logger.ErrorContext(ctx, "monitor tick failed", "error", err)
				if m.metrics != nil {
					m.metrics.TickFailures.Inc()
				}
				continue
			}
			previous = next
		}
	}
}

// Tick runs one sampling pass: score, persist, publish, diff, alert. It
// returns the snapshot the next tick should diff against. Exported so tests
// drive ticks without the timer.
func (m *Monitor) Tick(ctx context.Context, previous map[domain.AssetID]models.ScoreSample) (map[domain.AssetID]models.ScoreSample, error) {
	ctx, span := m.tracer.Start(ctx, "monitor.tick")
	defer span.End()

	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.Ticks.Inc()
			m.metrics.TickDuration.Observe(time.Since(start).Seconds())
		}
	}()

	counts, err := m.counter.OpenSeverityCounts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sampling open issues")
	}

	now := time.Now().UTC()
	samples := scoreAll(counts, now)
	span.SetAttributes(attribute.Int("monitor.scopes", len(samples)))

	current := make(map[domain.AssetID]models.ScoreSample, len(samples))
	for _, sample := range samples {
		current[sample.AssetID] = sample
		if err := m.scores.Append(ctx, sample); err != nil {
			m.logger.ErrorContext(ctx, "persisting score sample failed",
				"scope", sample.AssetID,
				"error", err,
			)
		}
		if m.metrics != nil {
			m.metrics.OverallScore.WithLabelValues(string(sample.AssetID)).Set(sample.OverallScore)
			m.metrics.OpenIssues.WithLabelValues(string(sample.AssetID)).Set(float64(sample.OpenIssues))
		}
		// Raw samples always publish, threshold or not, so subscribers can
		// render live trend lines.
		m.bus.Publish(events.Event{
			Type:      events.TypeMetricChange,
			AssetID:   sample.AssetID,
			Payload:   sample,
			Timestamp: now,
		})
	}

	for scope, sample := range current {
		prev, ok := previous[scope]
		if !ok {
			continue
		}
		m.evaluate(ctx, prev, sample, now)
	}
	return current, nil
}

// evaluate diffs one scope tick-over-tick and raises alerts for crossings.
func (m *Monitor) evaluate(ctx context.Context, prev, curr models.ScoreSample, now time.Time) {
	if drop := prev.OverallScore - curr.OverallScore; drop > 0 {
		if severity, ok := classifyScoreDrop(drop); ok {
			m.raise(ctx, &models.Alert{
				ID:            domain.NewAlertID(),
				AssetID:       curr.AssetID,
				Severity:      severity,
				Metric:        models.MetricScoreDrop,
				PreviousValue: prev.OverallScore,
				CurrentValue:  curr.OverallScore,
				Delta:         -drop,
				CreatedAt:     now,
			})
		}
	}
	if newIssues := curr.OpenIssues - prev.OpenIssues; newIssues > 0 {
		if severity, ok := classifyNewIssues(newIssues); ok {
			m.raise(ctx, &models.Alert{
				ID:            domain.NewAlertID(),
				AssetID:       curr.AssetID,
				Severity:      severity,
				Metric:        models.MetricNewIssues,
				PreviousValue: float64(prev.OpenIssues),
				CurrentValue:  float64(curr.OpenIssues),
				Delta:         float64(newIssues),
				CreatedAt:     now,
			})
		}
	}
}

func (m *Monitor) raise(ctx context.Context, alert *models.Alert) {
	if err := m.alerts.Create(ctx, alert); err != nil {
		m.logger.ErrorContext(ctx, "persisting alert failed",
			"alert_id", alert.ID,
			"scope", alert.AssetID,
			"error", err,
		)
		return
	}
	if m.metrics != nil {
		m.metrics.AlertsRaised.WithLabelValues(alert.Metric, string(alert.Severity)).Inc()
	}
	m.logger.WarnContext(ctx, "quality alert raised",
		"alert_id", alert.ID,
		"scope", alert.AssetID,
		"metric", alert.Metric,
		"severity", alert.Severity,
		"previous", alert.PreviousValue,
		"current", alert.CurrentValue,
	)
	if m.auditor != nil {
		m.auditor.AlertEvent(ctx, alert.ID.String(), alert.AssetID, "raised", alert.Metric)
	}
	m.bus.Publish(events.Event{
		Type:      events.TypeAlert,
		AssetID:   alert.AssetID,
		Payload:   alert,
		Timestamp: alert.CreatedAt,
	})
}

// Acknowledge stamps an alert as seen and echoes the acknowledgement to
// live subscribers.
func (m *Monitor) Acknowledge(ctx context.Context, id domain.AlertID) (*models.Alert, error) {
	alert, err := m.alerts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "alert not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading alert")
	}
	if alert.Acknowledged() {
		return alert, nil
	}

	now := time.Now().UTC()
	alert.AcknowledgedAt = &now
	if err := m.alerts.Update(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "acknowledging alert")
	}
	if m.auditor != nil {
		m.auditor.AlertEvent(ctx, alert.ID.String(), alert.AssetID, "acknowledged", "")
	}
	m.bus.Publish(events.Event{
		Type:      events.TypeAck,
		AssetID:   alert.AssetID,
		Payload:   alert,
		Timestamp: now,
	})
	return alert, nil
}

// ListAlerts returns alerts newest first.
func (m *Monitor) ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, error) {
	alerts, err := m.alerts.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing alerts")
	}
	return alerts, nil
}

// ScoreWindow returns recent samples for a scope, oldest first.
func (m *Monitor) ScoreWindow(ctx context.Context, scope domain.AssetID, n int) ([]models.ScoreSample, error) {
	window, err := m.scores.Window(ctx, scope, n)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reading score window")
	}
	return window, nil
}

// scoreAll computes per-asset samples plus the global aggregate.
func scoreAll(counts map[domain.AssetID]map[issuemodels.Severity]int, now time.Time) []models.ScoreSample {
	samples := make([]models.ScoreSample, 0, len(counts)+1)
	globalOpen := 0
	globalScoreSum := 0.0

	for assetID, bySeverity := range counts {
		sample := scoreAsset(assetID, bySeverity, now)
		samples = append(samples, sample)
		globalOpen += sample.OpenIssues
		globalScoreSum += sample.OverallScore
	}

	global := models.ScoreSample{
		AssetID:         models.ScopeGlobal,
		DimensionScores: map[string]float64{},
		OverallScore:    100,
		OpenIssues:      globalOpen,
		MeasuredAt:      now,
	}
	if len(counts) > 0 {
		global.OverallScore = globalScoreSum / float64(len(counts))
	}
	global.DimensionScores["pii_protection"] = global.OverallScore
	samples = append(samples, global)
	return samples
}

// scoreAsset derives one asset's score from its open issues: 100 minus a
// severity-weighted penalty, floored at zero.
func scoreAsset(assetID domain.AssetID, bySeverity map[issuemodels.Severity]int, now time.Time) models.ScoreSample {
	penalty := 0.0
	open := 0
	dimensions := make(map[string]float64, len(bySeverity)+1)
	for severity, count := range bySeverity {
		open += count
		weight := severityWeights[severity]
		penalty += weight * float64(count)
		dimensions[string(severity)] = clampScore(100 - weight*float64(count))
	}
	score := clampScore(100 - penalty)
	dimensions["pii_protection"] = score
	return models.ScoreSample{
		AssetID:         assetID,
		DimensionScores: dimensions,
		OverallScore:    score,
		OpenIssues:      open,
		MeasuredAt:      now,
	}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// classifyScoreDrop maps a tick-over-tick score drop to an alert severity.
// Comparisons are inclusive: a drop of exactly 20 is critical, 19 is high.
func classifyScoreDrop(drop float64) (models.AlertSeverity, bool) {
	switch {
	case drop >= 20:
		return models.AlertCritical, true
	case drop >= 10:
		return models.AlertHigh, true
	case drop >= 5:
		return models.AlertMedium, true
	default:
		return "", false
	}
}

// classifyNewIssues maps a tick-over-tick open-issue increase to an alert
// severity.
func classifyNewIssues(n int) (models.AlertSeverity, bool) {
	switch {
	case n >= 10:
		return models.AlertCritical, true
	case n >= 5:
		return models.AlertHigh, true
	case n >= 2:
		return models.AlertMedium, true
	default:
		return "", false
	}
}
