// Package models defines the quality issue aggregate and its state machine.
package models

import (
	"fmt"
	"strings"
	"time"

	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
)

// Status is the lifecycle state of a quality issue.
type Status string

const (
	StatusOpen          Status = "open"
	StatusAcknowledged  Status = "acknowledged"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
	StatusWontFix       Status = "wont_fix"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAcknowledged, StatusResolved, StatusFalsePositive, StatusWontFix:
		return true
	}
	return false
}

// OpenLike reports whether the status still demands attention. The
// per-tuple uniqueness invariant counts acknowledged issues as open: an
// acknowledged issue blocks creation of a second issue for its tuple.
func (s Status) OpenLike() bool {
	return s == StatusOpen || s == StatusAcknowledged
}

// Severity mirrors the owning rule's sensitivity at creation time.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// QualityIssue tracks one protection failure for one exact column. Issues
// are never deleted; they form the audit trail, and only status, description
// and resolvedAt mutate after creation.
type QualityIssue struct {
	ID                  domain.IssueID
	AssetID             domain.AssetID
	ColumnQualifiedName string
	RuleType            domain.RuleType
	Status              Status
	Severity            Severity
	Description         string
	ResolvedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TupleKey renders the unique lineage key. All issue matching goes through
// the exact qualified column name; matching by (asset, rule type) alone
// corrupts sibling columns sharing a rule type.
func (i *QualityIssue) TupleKey() string {
	return TupleKey(i.AssetID, i.ColumnQualifiedName, i.RuleType)
}

// TupleKey renders the lineage key for a tuple.
func TupleKey(assetID domain.AssetID, column string, ruleType domain.RuleType) string {
	return fmt.Sprintf("%s|%s|%s", assetID, column, ruleType)
}

// allowedTransitions is the issue state machine. Reopening applies to
// resolved issues; false_positive and wont_fix are operator decisions that
// only an operator can revert.
var allowedTransitions = map[Status][]Status{
	StatusOpen:          {StatusAcknowledged, StatusResolved, StatusFalsePositive, StatusWontFix},
	StatusAcknowledged:  {StatusOpen, StatusResolved, StatusFalsePositive, StatusWontFix},
	StatusResolved:      {StatusOpen},
	StatusFalsePositive: {StatusOpen},
	StatusWontFix:       {StatusOpen},
}

// CanTransition checks whether moving to the target status is legal.
func (i *QualityIssue) CanTransition(to Status) error {
	if !to.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", to)
	}
	if i.Status == to {
		return dErrors.Newf(dErrors.CodeConflict, "issue is already %s", to)
	}
	for _, allowed := range allowedTransitions[i.Status] {
		if allowed == to {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeConflict, "cannot transition issue from %s to %s", i.Status, to)
}

// ApplyTransition moves the issue to the target status, maintaining
// ResolvedAt. Callers must have checked CanTransition.
func (i *QualityIssue) ApplyTransition(to Status, now time.Time) {
	i.Status = to
	i.UpdatedAt = now
	if to == StatusResolved {
		t := now
		i.ResolvedAt = &t
	} else {
		i.ResolvedAt = nil
	}
}

// Reopen flips a resolved issue back to open, amending the description with
// the validation failure and up to a few offending samples for diagnosis.
func (i *QualityIssue) Reopen(reason string, samples []string, now time.Time) {
	i.ApplyTransition(StatusOpen, now)
	note := fmt.Sprintf("reopened: %s", reason)
	if len(samples) > 0 {
		note += fmt.Sprintf(" (samples: %s)", strings.Join(samples, ", "))
	}
	i.AppendNote(note, now)
}

// AppendNote adds a timestamped line to the description.
func (i *QualityIssue) AppendNote(note string, now time.Time) {
	if strings.TrimSpace(note) == "" {
		return
	}
	line := fmt.Sprintf("[%s] %s", now.UTC().Format(time.RFC3339), note)
	if i.Description == "" {
		i.Description = line
		return
	}
	i.Description += "\n" + line
}
