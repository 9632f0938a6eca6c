// Package domain defines the typed identifiers shared across the engine.
//
// IDs minted by this system (issues, alerts) are UUID-backed; identifiers
// owned by external collaborators (assets, data sources, rule types) are
// validated strings, since catalogs assign them in their own formats.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "dataguard/pkg/domain-errors"
)

// IssueID identifies one quality issue lineage.
type IssueID uuid.UUID

// AlertID identifies one monitor alert.
type AlertID uuid.UUID

// AssetID identifies a catalog asset (table/dataset) in the metadata store.
type AssetID string

// DataSourceID identifies a registered external data source.
type DataSourceID string

// RuleType identifies a PII/quality rule definition, e.g. "email", "ssn".
type RuleType string

// RuleTypeAll is the wildcard accepted by scan triggers.
const RuleTypeAll RuleType = "all"

func (i IssueID) String() string { return uuid.UUID(i).String() }
func (a AlertID) String() string { return uuid.UUID(a).String() }

// NewIssueID mints a fresh issue ID.
func NewIssueID() IssueID { return IssueID(uuid.New()) }

// NewAlertID mints a fresh alert ID.
func NewAlertID() AlertID { return AlertID(uuid.New()) }

// ParseIssueID parses an issue ID from its string form. IDs must be valid,
// non-nil UUIDs.
func ParseIssueID(s string) (IssueID, error) {
	u, err := parseUUID(s, "issue id")
	return IssueID(u), err
}

// ParseAlertID parses an alert ID from its string form.
func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID(s, "alert id")
	return AlertID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return u, nil
}

// ruleTypePattern restricts rule types to catalog-safe slugs.
var ruleTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// ParseRuleType validates and normalizes a rule type slug.
func ParseRuleType(s string) (RuleType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "rule type is required")
	}
	if !ruleTypePattern.MatchString(s) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "rule type %q must match %s", s, ruleTypePattern)
	}
	return RuleType(s), nil
}
