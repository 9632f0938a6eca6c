package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dataguard/internal/monitor/models"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// AlertFilter narrows alert listings.
type AlertFilter struct {
	// Acknowledged filters by acknowledgement state when non-nil.
	Acknowledged *bool
	Limit        int
}

// Normalize applies defaults.
func (f *AlertFilter) Normalize() {
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 100
	}
}

// InMemoryAlerts keeps alerts in process memory.
type InMemoryAlerts struct {
	mu   sync.RWMutex
	byID map[domain.AlertID]*models.Alert
}

// NewInMemoryAlerts creates an empty alert store.
func NewInMemoryAlerts() *InMemoryAlerts {
	return &InMemoryAlerts{byID: make(map[domain.AlertID]*models.Alert)}
}

// Create stores a new alert.
func (s *InMemoryAlerts) Create(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.byID[alert.ID] = &cp
	return nil
}

// Get returns the alert with the given ID.
func (s *InMemoryAlerts) Get(ctx context.Context, id domain.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, sentinel.ErrNotFound)
	}
	cp := *alert
	return &cp, nil
}

// Update persists a mutated alert.
func (s *InMemoryAlerts) Update(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[alert.ID]; !ok {
		return fmt.Errorf("alert %s: %w", alert.ID, sentinel.ErrNotFound)
	}
	cp := *alert
	s.byID[alert.ID] = &cp
	return nil
}

// List returns alerts newest first.
func (s *InMemoryAlerts) List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	filter.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Alert, 0, len(s.byID))
	for _, alert := range s.byID {
		if filter.Acknowledged != nil && alert.Acknowledged() != *filter.Acknowledged {
			continue
		}
		cp := *alert
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
