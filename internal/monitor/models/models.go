// Package models defines the monitor's score samples and alerts.
package models

import (
	"time"

	"dataguard/pkg/domain"
)

// ScopeGlobal is the asset scope covering the whole deployment.
const ScopeGlobal domain.AssetID = "global"

// ScoreSample is one tick's aggregate quality score for one scope (a single
// asset, or global). Samples are append-only and pruned past the retention
// horizon.
type ScoreSample struct {
	AssetID         domain.AssetID     `json:"assetId"`
	DimensionScores map[string]float64 `json:"dimensionScores"`
	OverallScore    float64            `json:"overallScore"`
	OpenIssues      int                `json:"openIssues"`
	MeasuredAt      time.Time          `json:"measuredAt"`
}

// AlertSeverity grades how sharply a metric moved.
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertHigh     AlertSeverity = "high"
	AlertMedium   AlertSeverity = "medium"
)

// Alert metrics.
const (
	MetricScoreDrop = "score_drop"
	MetricNewIssues = "new_issues"
)

// Alert records one threshold crossing. Only AcknowledgedAt mutates after
// creation.
type Alert struct {
	ID             domain.AlertID `json:"id"`
	AssetID        domain.AssetID `json:"assetId"`
	Severity       AlertSeverity  `json:"severity"`
	Metric         string         `json:"metric"`
	PreviousValue  float64        `json:"previousValue"`
	CurrentValue   float64        `json:"currentValue"`
	Delta          float64        `json:"delta"`
	CreatedAt      time.Time      `json:"createdAt"`
	AcknowledgedAt *time.Time     `json:"acknowledgedAt,omitempty"`
}

// Acknowledged reports whether an operator has acknowledged the alert.
func (a *Alert) Acknowledged() bool { return a.AcknowledgedAt != nil }
