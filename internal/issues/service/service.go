// Package service implements the quality issue lifecycle. All mutation of
// an issue tuple funnels through a per-tuple lock so a scan and an operator
// action can never interleave a find-then-create.
package service

import (
	"context"
	"errors"
	"time"

	"log/slog"

	issuemetrics "dataguard/internal/issues/metrics"
	"dataguard/internal/issues/models"
	store "dataguard/internal/issues/store"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/sentinel"
	"dataguard/pkg/requestcontext"
)

// Store is the persistence surface the lifecycle needs.
type Store interface {
	Create(ctx context.Context, issue *models.QualityIssue) error
	Get(ctx context.Context, id domain.IssueID) (*models.QualityIssue, error)
	Update(ctx context.Context, issue *models.QualityIssue) error
	FindOpenByTuple(ctx context.Context, assetID domain.AssetID, column string, ruleType domain.RuleType) (*models.QualityIssue, error)
	FindLatestByTuple(ctx context.Context, assetID domain.AssetID, column string, ruleType domain.RuleType) (*models.QualityIssue, error)
	ListOpenByRuleType(ctx context.Context, ruleType domain.RuleType) ([]*models.QualityIssue, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.QualityIssue, int, error)
	OpenCounts(ctx context.Context) (map[domain.AssetID]int, error)
	OpenSeverityCounts(ctx context.Context) (map[domain.AssetID]map[models.Severity]int, error)
}

// Auditor records issue lifecycle events on the audit trail.
type Auditor interface {
	IssueEvent(ctx context.Context, issue *models.QualityIssue, action, reason string)
}

// Notifier pushes issue changes to live subscribers.
type Notifier interface {
	NotifyIssue(issue *models.QualityIssue, action string)
}

// Finding is one column's verdict from a scan: the rule it was classified
// under and whether the required protections were verified present.
type Finding struct {
	AssetID             domain.AssetID
	ColumnQualifiedName string
	RuleType            domain.RuleType
	Severity            models.Severity

	// Fixed means the required protections were verified in place.
	Fixed bool
	// Inconclusive means live state could not be inspected. The lifecycle
	// takes no action on inconclusive findings; connectivity failure is
	// not evidence in either direction.
	Inconclusive bool

	Reason  string
	Samples []string
}

// Service owns issue lifecycle decisions.
type Service struct {
	store    Store
	locks    *tupleLocks
	auditor  Auditor
	notifier Notifier
	metrics  *issuemetrics.Metrics
	logger   *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithAuditor wires the audit trail publisher.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithNotifier wires the live-update broadcaster.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *issuemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs an issue lifecycle service.
func New(st Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:  st,
		locks:  newTupleLocks(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile converges the stored lifecycle state of one tuple with a fresh
// finding. The decision table:
//
//	finding not fixed, no prior issue        -> open a new issue
//	finding not fixed, open/acknowledged     -> leave as-is (already tracked)
//	finding not fixed, resolved              -> reopen with the failure reason
//	finding not fixed, false_positive/wont_fix -> leave as-is (operator decision)
//	finding fixed, open/acknowledged         -> resolve
//	finding inconclusive                     -> no action
func (s *Service) Reconcile(ctx context.Context, finding Finding) error {
	if finding.Inconclusive {
		s.logger.InfoContext(ctx, "skipping inconclusive finding",
			"asset_id", finding.AssetID,
			"column", finding.ColumnQualifiedName,
			"rule_type", finding.RuleType,
			"reason", finding.Reason,
		)
		return nil
	}

	timer := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ReconcileDuration.Observe(time.Since(timer).Seconds())
		}
	}()

	unlock := s.locks.lock(models.TupleKey(finding.AssetID, finding.ColumnQualifiedName, finding.RuleType))
	defer unlock()

	latest, err := s.store.FindLatestByTuple(ctx, finding.AssetID, finding.ColumnQualifiedName, finding.RuleType)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "looking up issue history")
	}

	if finding.Fixed {
		if latest == nil || !latest.Status.OpenLike() {
			return nil
		}
		return s.resolve(ctx, latest, finding.Reason, "validation")
	}

	switch {
	case latest == nil:
		return s.open(ctx, finding)
	case latest.Status.OpenLike():
		// Already tracked; nothing to change.
		return nil
	case latest.Status == models.StatusResolved:
		return s.reopen(ctx, latest, finding)
	default:
		// false_positive / wont_fix: the operator overrode the detector.
		return nil
	}
}

func (s *Service) open(ctx context.Context, finding Finding) error {
	now := requestcontext.Now(ctx)
	issue := &models.QualityIssue{
		ID:                  domain.NewIssueID(),
		AssetID:             finding.AssetID,
		ColumnQualifiedName: finding.ColumnQualifiedName,
		RuleType:            finding.RuleType,
		Status:              models.StatusOpen,
		Severity:            finding.Severity,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	issue.AppendNote(finding.Reason, now)

	if err := s.store.Create(ctx, issue); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent reconcile opened the tuple first; converged.
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "creating issue")
	}

	if s.metrics != nil {
		s.metrics.IssuesOpened.WithLabelValues(string(issue.RuleType)).Inc()
	}
	s.logger.InfoContext(ctx, "issue opened",
		"issue_id", issue.ID,
		"asset_id", issue.AssetID,
		"column", issue.ColumnQualifiedName,
		"rule_type", issue.RuleType,
		"severity", issue.Severity,
	)
	s.emit(ctx, issue, "opened", finding.Reason)
	return nil
}

func (s *Service) reopen(ctx context.Context, issue *models.QualityIssue, finding Finding) error {
	now := requestcontext.Now(ctx)
	issue.Reopen(finding.Reason, finding.Samples, now)
	if err := s.store.Update(ctx, issue); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reopening issue")
	}

	if s.metrics != nil {
		s.metrics.IssuesReopened.WithLabelValues(string(issue.RuleType)).Inc()
	}
	s.logger.InfoContext(ctx, "issue reopened",
		"issue_id", issue.ID,
		"asset_id", issue.AssetID,
		"column", issue.ColumnQualifiedName,
		"rule_type", issue.RuleType,
		"reason", finding.Reason,
	)
	s.emit(ctx, issue, "reopened", finding.Reason)
	return nil
}

func (s *Service) resolve(ctx context.Context, issue *models.QualityIssue, reason, path string) error {
	now := requestcontext.Now(ctx)
	issue.ApplyTransition(models.StatusResolved, now)
	issue.AppendNote(reason, now)
	if err := s.store.Update(ctx, issue); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolving issue")
	}

	if s.metrics != nil {
		s.metrics.IssuesResolved.WithLabelValues(string(issue.RuleType), path).Inc()
	}
	s.logger.InfoContext(ctx, "issue resolved",
		"issue_id", issue.ID,
		"asset_id", issue.AssetID,
		"column", issue.ColumnQualifiedName,
		"rule_type", issue.RuleType,
		"path", path,
	)
	s.emit(ctx, issue, "resolved", reason)
	return nil
}

// ResolveAllForRule resolves every open-like issue for a rule type. Used
// when a rule is disabled: its issues no longer describe a violation.
func (s *Service) ResolveAllForRule(ctx context.Context, ruleType domain.RuleType, reason string) (int, error) {
	open, err := s.store.ListOpenByRuleType(ctx, ruleType)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "listing open issues")
	}

	resolved := 0
	for _, issue := range open {
		unlock := s.locks.lock(issue.TupleKey())
		err := s.resolve(ctx, issue, reason, "rule_disabled")
		unlock()
		if err != nil {
			// Keep going; a partial sweep is better than none, and the
			// next reconcile pass converges the remainder.
			s.logger.ErrorContext(ctx, "resolving issue for disabled rule",
				"issue_id", issue.ID,
				"rule_type", ruleType,
				"error", err,
			)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// UpdateStatus applies an operator-driven status transition.
func (s *Service) UpdateStatus(ctx context.Context, id domain.IssueID, to models.Status, note string) (*models.QualityIssue, error) {
	issue, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "issue not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading issue")
	}

	unlock := s.locks.lock(issue.TupleKey())
	defer unlock()

	// Reload under the lock; a reconcile may have moved it.
	issue, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading issue")
	}

	from := issue.Status
	if err := issue.CanTransition(to); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	issue.ApplyTransition(to, now)
	issue.AppendNote(note, now)
	if err := s.store.Update(ctx, issue); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "updating issue")
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
		if to == models.StatusResolved {
			s.metrics.IssuesResolved.WithLabelValues(string(issue.RuleType), "operator").Inc()
		}
	}
	s.logger.InfoContext(ctx, "issue status updated",
		"issue_id", issue.ID,
		"from", from,
		"to", to,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, issue, "status_changed", note)
	return issue, nil
}

// Get returns one issue by ID.
func (s *Service) Get(ctx context.Context, id domain.IssueID) (*models.QualityIssue, error) {
	issue, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "issue not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading issue")
	}
	return issue, nil
}

// List returns a filtered, paginated page of issues plus the total count.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.QualityIssue, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", filter.Status)
	}
	issues, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "listing issues")
	}
	return issues, total, nil
}

// OpenCounts returns per-asset open-like issue counts for scoring.
func (s *Service) OpenCounts(ctx context.Context) (map[domain.AssetID]int, error) {
	counts, err := s.store.OpenCounts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "counting open issues")
	}
	return counts, nil
}

// OpenSeverityCounts returns per-asset open-like issue counts broken down
// by severity, for score weighting.
func (s *Service) OpenSeverityCounts(ctx context.Context) (map[domain.AssetID]map[models.Severity]int, error) {
	counts, err := s.store.OpenSeverityCounts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "counting open issues")
	}
	return counts, nil
}

func (s *Service) emit(ctx context.Context, issue *models.QualityIssue, action, reason string) {
	if s.auditor != nil {
		s.auditor.IssueEvent(ctx, issue, action, reason)
	}
	if s.notifier != nil {
		cp := *issue
		s.notifier.NotifyIssue(&cp, action)
	}
}
