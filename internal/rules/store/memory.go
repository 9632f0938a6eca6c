// Package store provides rule registry persistence. The registry is
// read-mostly: classification passes read immutable snapshots so a
// concurrent rule edit can never produce a torn read.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dataguard/internal/rules/models"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// ListFilter narrows and paginates rule listings.
type ListFilter struct {
	Enabled  *bool
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

// InMemoryStore keeps rule definitions behind a copy-on-write snapshot.
type InMemoryStore struct {
	mu      sync.RWMutex
	rules   map[domain.RuleType]*models.RuleDefinition
	version uint64
}

// NewInMemory creates an empty in-memory rule store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rules: make(map[domain.RuleType]*models.RuleDefinition)}
}

// Upsert creates or replaces the definition for its rule type and returns
// whether a new definition was created.
func (s *InMemoryStore) Upsert(ctx context.Context, def *models.RuleDefinition) (bool, error) {
	if def == nil {
		return false, fmt.Errorf("rule definition is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.rules[def.RuleType]
	cp := *def
	s.rules[def.RuleType] = &cp
	s.version++
	return !existed, nil
}

// Get returns the definition for a rule type.
func (s *InMemoryStore) Get(ctx context.Context, ruleType domain.RuleType) (*models.RuleDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.rules[ruleType]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", ruleType, sentinel.ErrNotFound)
	}
	cp := *def
	return &cp, nil
}

// List returns matching definitions ordered by rule type, with the total
// count before pagination.
func (s *InMemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.RuleDefinition, int, error) {
	filter.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.RuleDefinition, 0, len(s.rules))
	for _, def := range s.rules {
		if filter.Enabled != nil && def.Enabled != *filter.Enabled {
			continue
		}
		cp := *def
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RuleType < matched[j].RuleType })

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

// Snapshot returns an immutable copy of all definitions plus the registry
// version at the time of the read. Scans pin one snapshot for their whole
// pass, so they see either the pre- or post-edit rule set, never a mix.
func (s *InMemoryStore) Snapshot(ctx context.Context) ([]models.RuleDefinition, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RuleDefinition, 0, len(s.rules))
	for _, def := range s.rules {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleType < out[j].RuleType })
	return out, s.version, nil
}
