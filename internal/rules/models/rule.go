// Package models defines the rule registry's domain types.
package models

import (
	"regexp"
	"strings"
	"time"

	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
)

// SensitivityLevel orders rules for conflict resolution: when a column
// matches two rules, the higher sensitivity wins.
type SensitivityLevel string

const (
	SensitivityCritical SensitivityLevel = "critical"
	SensitivityHigh     SensitivityLevel = "high"
	SensitivityMedium   SensitivityLevel = "medium"
	SensitivityLow      SensitivityLevel = "low"
)

// Rank returns the numeric ordering of a sensitivity level; unknown levels
// rank lowest.
func (l SensitivityLevel) Rank() int {
	switch l {
	case SensitivityCritical:
		return 4
	case SensitivityHigh:
		return 3
	case SensitivityMedium:
		return 2
	case SensitivityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the level is one of the known values.
func (l SensitivityLevel) Valid() bool { return l.Rank() > 0 }

// MatcherKind is the closed set of matching strategies a rule can use.
// The rule set is data, not a type hierarchy; the classifier dispatches on
// this tag in a single matching function.
type MatcherKind int

const (
	// MatcherNameHint matches on column name hints only.
	MatcherNameHint MatcherKind = iota
	// MatcherRegex matches on sampled values only.
	MatcherRegex
	// MatcherHybrid matches on either names or sampled values.
	MatcherHybrid
)

// RuleDefinition is one PII/quality rule. Exactly one definition exists per
// RuleType; the store enforces this by upserting on the type.
type RuleDefinition struct {
	RuleType           domain.RuleType
	DisplayName        string
	Enabled            bool
	Sensitivity        SensitivityLevel
	ColumnNameHints    []string
	ValuePattern       string
	RequiresEncryption bool
	RequiresMasking    bool
	ComplianceTags     []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks the definition's invariants. A malformed ValuePattern is
// NOT an error here: configuration mistakes must not block persisting the
// rule, they only disable value matching (surfaced as a rule-level warning
// during classification).
func (r *RuleDefinition) Validate() error {
	if r.RuleType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "rule type is required")
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "display name is required")
	}
	if !r.Sensitivity.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown sensitivity level %q", r.Sensitivity)
	}
	if len(r.ColumnNameHints) == 0 && r.ValuePattern == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "rule needs column name hints or a value pattern")
	}
	return nil
}

// Kind classifies the rule's matching strategy.
func (r *RuleDefinition) Kind() MatcherKind {
	switch {
	case len(r.ColumnNameHints) > 0 && r.ValuePattern != "":
		return MatcherHybrid
	case r.ValuePattern != "":
		return MatcherRegex
	default:
		return MatcherNameHint
	}
}

// CompilePattern compiles the value pattern, or returns nil when the rule
// has none. A compile failure is reported so the classifier can skip value
// matching for this rule and warn the operator.
func (r *RuleDefinition) CompilePattern() (*regexp.Regexp, error) {
	if r.ValuePattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(r.ValuePattern)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed value pattern")
	}
	return re, nil
}

// RequiresProtection reports whether a column classified under this rule
// must be protected at rest or at display time.
func (r *RuleDefinition) RequiresProtection() bool {
	return r.RequiresEncryption || r.RequiresMasking
}
