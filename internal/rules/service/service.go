// Package service implements the rule registry: the durable store of
// PII/quality rule definitions and the trigger point for re-classification
// when a rule's enabled flag flips.
package service

import (
	"context"
	"errors"
	"log/slog"

	rulemetrics "dataguard/internal/rules/metrics"
	"dataguard/internal/rules/models"
	"dataguard/internal/rules/store"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/sentinel"
	pstrings "dataguard/pkg/platform/strings"
	"dataguard/pkg/requestcontext"
)

// Store is the persistence the registry needs.
type Store interface {
	Upsert(ctx context.Context, def *models.RuleDefinition) (created bool, err error)
	Get(ctx context.Context, ruleType domain.RuleType) (*models.RuleDefinition, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.RuleDefinition, int, error)
	Snapshot(ctx context.Context) ([]models.RuleDefinition, uint64, error)
}

// ScanTrigger receives rule transition notifications. The scan orchestrator
// implements it; the indirection keeps this package free of scan imports.
type ScanTrigger interface {
	// RuleEnabled schedules a detached background pass for the type. It must
	// return without waiting for the pass.
	RuleEnabled(ctx context.Context, ruleType domain.RuleType)

	// RuleDisabled synchronously resolves all open issues of the type.
	// Disabling is authoritative on its own; no data access is needed.
	RuleDisabled(ctx context.Context, ruleType domain.RuleType) error
}

// Service orchestrates rule registry operations.
type Service struct {
	store   Store
	trigger ScanTrigger
	logger  *slog.Logger
	metrics *rulemetrics.Metrics
}

// Option configures the service.
type Option func(*Service)

// WithScanTrigger wires transition notifications to the scan orchestrator.
func WithScanTrigger(trigger ScanTrigger) Option {
	return func(s *Service) { s.trigger = trigger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *rulemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// SetScanTrigger wires transition notifications after construction. The
// orchestrator depends on the registry for rule snapshots, so it is built
// second and attached here.
func (s *Service) SetScanTrigger(trigger ScanTrigger) {
	s.trigger = trigger
}

// New constructs the registry service.
func New(st Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("rule store is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{store: st, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upsert creates or replaces the definition for def.RuleType and fires the
// transition side effects: disabled-to-enabled schedules a detached scan,
// enabled-to-disabled synchronously resolves that type's issues.
func (s *Service) Upsert(ctx context.Context, def models.RuleDefinition) (*models.RuleDefinition, error) {
	// Hints match case-insensitively, so normalize them before validating.
	def.ColumnNameHints = pstrings.DedupeAndTrimLower(def.ColumnNameHints)
	def.ComplianceTags = pstrings.DedupeAndTrim(def.ComplianceTags)
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if _, err := def.CompilePattern(); err != nil {
		// Persist anyway; classification will skip value matching and warn.
		s.logger.WarnContext(ctx, "rule has malformed value pattern",
			"request_id", requestcontext.RequestID(ctx),
			"rule_type", def.RuleType,
			"error", err,
		)
	}

	now := requestcontext.Now(ctx)
	wasEnabled := false
	existing, err := s.store.Get(ctx, def.RuleType)
	switch {
	case err == nil:
		wasEnabled = existing.Enabled
		def.CreatedAt = existing.CreatedAt
	case errors.Is(err, sentinel.ErrNotFound):
		def.CreatedAt = now
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read rule")
	}
	def.UpdatedAt = now

	if _, err := s.store.Upsert(ctx, &def); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist rule")
	}
	if s.metrics != nil {
		s.metrics.RulesUpserted.Inc()
	}

	switch {
	case def.Enabled && !wasEnabled:
		if s.metrics != nil {
			s.metrics.RulesEnabled.Inc()
		}
		s.logger.InfoContext(ctx, "rule enabled, scheduling scan",
			"request_id", requestcontext.RequestID(ctx),
			"rule_type", def.RuleType,
		)
		if s.trigger != nil {
			s.trigger.RuleEnabled(ctx, def.RuleType)
		}
	case !def.Enabled && wasEnabled:
		if s.metrics != nil {
			s.metrics.RulesDisabled.Inc()
		}
		s.logger.InfoContext(ctx, "rule disabled, resolving issues",
			"request_id", requestcontext.RequestID(ctx),
			"rule_type", def.RuleType,
		)
		if s.trigger != nil {
			if err := s.trigger.RuleDisabled(ctx, def.RuleType); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve issues for disabled rule")
			}
		}
	}

	return &def, nil
}

// Get returns one rule definition.
func (s *Service) Get(ctx context.Context, ruleType domain.RuleType) (*models.RuleDefinition, error) {
	def, err := s.store.Get(ctx, ruleType)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "rule %s not found", ruleType)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read rule")
	}
	return def, nil
}

// List returns rules matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.RuleDefinition, int, error) {
	rules, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rules")
	}
	return rules, total, nil
}

// Snapshot returns an immutable view of the full rule set for a scan pass.
func (s *Service) Snapshot(ctx context.Context) ([]models.RuleDefinition, uint64, error) {
	defs, version, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot rules")
	}
	return defs, version, nil
}
