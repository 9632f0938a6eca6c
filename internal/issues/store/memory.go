// Package store provides issue persistence. Both implementations enforce
// the uniqueness invariant: at most one open-like issue per exact
// (asset, column, rule type) tuple.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dataguard/internal/issues/models"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// ListFilter narrows and paginates issue listings.
type ListFilter struct {
	Status   models.Status
	RuleType domain.RuleType
	AssetID  domain.AssetID
	Page     int
	PageSize int
}

// Normalize applies pagination defaults.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = 50
	}
}

// InMemoryStore keeps issues in process memory for development and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[domain.IssueID]*models.QualityIssue
	order  []domain.IssueID
}

// NewInMemory creates an empty in-memory issue store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byID: make(map[domain.IssueID]*models.QualityIssue)}
}

// Create inserts a new issue, rejecting a second open-like issue for the
// same tuple.
func (s *InMemoryStore) Create(ctx context.Context, issue *models.QualityIssue) error {
	if issue == nil {
		return fmt.Errorf("issue is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue.Status.OpenLike() {
		for _, existing := range s.byID {
			if existing.Status.OpenLike() && existing.TupleKey() == issue.TupleKey() {
				return fmt.Errorf("open issue exists for tuple %s: %w", issue.TupleKey(), sentinel.ErrConflict)
			}
		}
	}
	cp := *issue
	s.byID[issue.ID] = &cp
	s.order = append(s.order, issue.ID)
	return nil
}

// Get returns the issue with the given ID.
func (s *InMemoryStore) Get(ctx context.Context, id domain.IssueID) (*models.QualityIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, sentinel.ErrNotFound)
	}
	cp := *issue
	return &cp, nil
}

// Update replaces the stored issue with the same ID.
func (s *InMemoryStore) Update(ctx context.Context, issue *models.QualityIssue) error {
	if issue == nil {
		return fmt.Errorf("issue is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[issue.ID]; !ok {
		return fmt.Errorf("issue %s: %w", issue.ID, sentinel.ErrNotFound)
	}
	cp := *issue
	s.byID[issue.ID] = &cp
	return nil
}

// FindOpenByTuple returns the open-like issue for the exact tuple, if any.
func (s *InMemoryStore) FindOpenByTuple(ctx context.Context, assetID domain.AssetID, column string, ruleType domain.RuleType) (*models.QualityIssue, error) {
	key := models.TupleKey(assetID, column, ruleType)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, issue := range s.byID {
		if issue.Status.OpenLike() && issue.TupleKey() == key {
			cp := *issue
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("open issue for %s: %w", key, sentinel.ErrNotFound)
}

// FindLatestByTuple returns the most recently updated issue for the exact
// tuple regardless of status.
func (s *InMemoryStore) FindLatestByTuple(ctx context.Context, assetID domain.AssetID, column string, ruleType domain.RuleType) (*models.QualityIssue, error) {
	key := models.TupleKey(assetID, column, ruleType)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.QualityIssue
	for _, issue := range s.byID {
		if issue.TupleKey() != key {
			continue
		}
		if latest == nil || issue.UpdatedAt.After(latest.UpdatedAt) {
			latest = issue
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("issue for %s: %w", key, sentinel.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

// ListOpenByRuleType returns all open-like issues of a rule type.
func (s *InMemoryStore) ListOpenByRuleType(ctx context.Context, ruleType domain.RuleType) ([]*models.QualityIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.QualityIssue
	for _, id := range s.order {
		issue := s.byID[id]
		if issue.RuleType == ruleType && issue.Status.OpenLike() {
			cp := *issue
			out = append(out, &cp)
		}
	}
	return out, nil
}

// List returns issues matching the filter, newest first, with the total
// count before pagination.
func (s *InMemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.QualityIssue, int, error) {
	filter.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.QualityIssue
	for _, id := range s.order {
		issue := s.byID[id]
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if filter.RuleType != "" && issue.RuleType != filter.RuleType {
			continue
		}
		if filter.AssetID != "" && issue.AssetID != filter.AssetID {
			continue
		}
		cp := *issue
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// OpenCounts returns the number of open-like issues per asset.
func (s *InMemoryStore) OpenCounts(ctx context.Context) (map[domain.AssetID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.AssetID]int)
	for _, issue := range s.byID {
		if issue.Status.OpenLike() {
			counts[issue.AssetID]++
		}
	}
	return counts, nil
}

// OpenSeverityCounts returns open-like issue counts per asset broken down
// by severity, for score weighting.
func (s *InMemoryStore) OpenSeverityCounts(ctx context.Context) (map[domain.AssetID]map[models.Severity]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.AssetID]map[models.Severity]int)
	for _, issue := range s.byID {
		if !issue.Status.OpenLike() {
			continue
		}
		bySeverity, ok := counts[issue.AssetID]
		if !ok {
			bySeverity = make(map[models.Severity]int)
			counts[issue.AssetID] = bySeverity
		}
		bySeverity[issue.Severity]++
	}
	return counts, nil
}
