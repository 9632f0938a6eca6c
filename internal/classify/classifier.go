// Package classify matches catalog columns against rule definitions to
// produce classification facts. Matching is pure: callers persist the
// resulting classifications and decide what to do about matches.
package classify

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"dataguard/internal/catalog"
	"dataguard/internal/rules/models"
)

// Config tunes value-pattern matching.
type Config struct {
	// ValueSampleSize is how many live values to sample per column when a
	// rule carries a value pattern.
	ValueSampleSize int

	// MinValueMatchRatio is the fraction of non-empty sampled values that
	// must satisfy the pattern for a value match.
	MinValueMatchRatio float64
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{ValueSampleSize: 25, MinValueMatchRatio: 0.30}
}

// Warning surfaces a rule-level configuration problem found during a pass.
// A malformed pattern skips value matching for that rule but never aborts
// the pass.
type Warning struct {
	RuleType string
	Reason   string
}

// Result is the outcome of classifying one asset's columns.
type Result struct {
	Classifications []catalog.Classification
	Warnings        []Warning
}

// matcher is one enabled rule prepared for matching. The closed set of
// matching strategies (name-hint, regex, hybrid) dispatches through
// matchColumn; the rule set is data, not a type hierarchy.
type matcher struct {
	rule    models.RuleDefinition
	pattern *regexp.Regexp
}

// Classifier matches columns against rule snapshots.
type Classifier struct {
	cfg Config
}

// New constructs a classifier; zero-valued config fields fall back to
// defaults.
func New(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.ValueSampleSize <= 0 {
		cfg.ValueSampleSize = def.ValueSampleSize
	}
	if cfg.MinValueMatchRatio <= 0 || cfg.MinValueMatchRatio > 1 {
		cfg.MinValueMatchRatio = def.MinValueMatchRatio
	}
	return &Classifier{cfg: cfg}
}

// Classify matches every column of the asset against the enabled rules in
// the snapshot. src may be nil, in which case value-pattern matching is
// skipped (name hints still apply). System-catalog schemas yield no
// classifications at all.
func (c *Classifier) Classify(
	ctx context.Context,
	asset catalog.Asset,
	columns []catalog.Column,
	rules []models.RuleDefinition,
	src catalog.DataSource,
) (Result, error) {
	var res Result
	if IsSystemSchema(asset.Schema) {
		return res, nil
	}

	matchers := c.prepare(rules, &res)
	if len(matchers) == 0 {
		return res, nil
	}

	for _, col := range columns {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		best, ok, err := c.matchColumn(ctx, asset, col, matchers, src)
		if err != nil {
			return res, err
		}
		if !ok {
			continue
		}
		res.Classifications = append(res.Classifications, catalog.Classification{
			AssetID:             asset.ID,
			ColumnQualifiedName: asset.QualifyColumn(col.Name),
			RuleType:            best.RuleType,
			IsSensitive:         true,
		})
	}
	return res, nil
}

// prepare compiles the enabled rules, ordered by rule type for deterministic
// conflict resolution, and records warnings for malformed patterns.
func (c *Classifier) prepare(rules []models.RuleDefinition, res *Result) []matcher {
	out := make([]matcher, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		m := matcher{rule: rule}
		re, err := rule.CompilePattern()
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{
				RuleType: string(rule.RuleType),
				Reason:   "value pattern skipped: " + err.Error(),
			})
			if rule.Kind() == models.MatcherRegex {
				// Nothing left to match on.
				continue
			}
		}
		m.pattern = re
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rule.RuleType < out[j].rule.RuleType })
	return out
}

// matchColumn runs every matcher against one column and returns the winning
// rule. On conflict the highest sensitivity wins; equal sensitivity falls
// back to rule-type order so two passes over the same data agree.
func (c *Classifier) matchColumn(
	ctx context.Context,
	asset catalog.Asset,
	col catalog.Column,
	matchers []matcher,
	src catalog.DataSource,
) (models.RuleDefinition, bool, error) {
	var best models.RuleDefinition
	found := false

	var samples []string
	sampled := false

	for _, m := range matchers {
		matched := matchesHints(col.Name, m.rule.ColumnNameHints)

		if !matched && m.pattern != nil && src != nil {
			if !sampled {
				var err error
				samples, err = src.SampleRows(ctx, asset.Schema, asset.Table, col.Name, c.cfg.ValueSampleSize)
				if err != nil {
					// Connectivity failure: fall back to name-only matching
					// for this column rather than aborting the asset.
					samples = nil
				}
				sampled = true
			}
			matched = c.matchesValues(samples, m.pattern)
		}

		if matched && (!found || m.rule.Sensitivity.Rank() > best.Sensitivity.Rank()) {
			best = m.rule
			found = true
		}
	}
	return best, found, nil
}

// structuralQualifiers are tokens that mark a column as describing an
// object rather than a person: "schema_name" is the name OF a schema, not
// somebody's name. A hint matching next to one of these is a false positive.
var structuralQualifiers = map[string]struct{}{
	"schema":      {},
	"table":       {},
	"column":      {},
	"db":          {},
	"database":    {},
	"index":       {},
	"constraint":  {},
	"key":         {},
	"field":       {},
	"type":        {},
	"class":       {},
	"file":        {},
	"host":        {},
	"server":      {},
	"service":     {},
	"app":         {},
	"application": {},
	"product":     {},
	"object":      {},
	"display":     {},
}

// matchesHints reports whether the column name equals or contains one of the
// hints at a token boundary. Boundaries are the start/end of the name and
// the '_' and '-' delimiters, so hint "name" matches "first_name" and
// "customer_name" but not "description". A boundary match whose neighboring
// token is a structural qualifier ("schema_name", "product_name") is
// rejected too.
func matchesHints(column string, hints []string) bool {
	tokens := splitTokens(strings.ToLower(column))
	for _, hint := range hints {
		h := strings.ToLower(strings.TrimSpace(hint))
		if h == "" {
			continue
		}
		hintTokens := splitTokens(h)
		for i := 0; i+len(hintTokens) <= len(tokens); i++ {
			if !tokensEqual(tokens[i:i+len(hintTokens)], hintTokens) {
				continue
			}
			if i > 0 && isStructuralQualifier(tokens[i-1]) {
				continue
			}
			if next := i + len(hintTokens); next < len(tokens) && isStructuralQualifier(tokens[next]) {
				continue
			}
			return true
		}
	}
	return false
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
}

func tokensEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isStructuralQualifier(token string) bool {
	_, ok := structuralQualifiers[token]
	return ok
}

// matchesValues applies the pattern to sampled values and requires the
// configured minimum ratio of non-empty samples to match.
func (c *Classifier) matchesValues(samples []string, pattern *regexp.Regexp) bool {
	nonEmpty, matched := 0, 0
	for _, v := range samples {
		if strings.TrimSpace(v) == "" {
			continue
		}
		nonEmpty++
		if pattern.MatchString(v) {
			matched++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(matched)/float64(nonEmpty) >= c.cfg.MinValueMatchRatio
}
