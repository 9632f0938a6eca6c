// Package store persists the monitor's score history and alerts.
package store

import (
	"context"
	"sync"

	"dataguard/internal/monitor/models"
	"dataguard/pkg/domain"
)

// defaultRetention is how many samples each scope keeps.
const defaultRetention = 2880 // 24h of 30s ticks

// InMemoryScores keeps the rolling score window in process memory.
type InMemoryScores struct {
	mu        sync.RWMutex
	retention int
	byScope   map[domain.AssetID][]models.ScoreSample
}

// NewInMemoryScores creates a score store; retention <= 0 uses the default.
func NewInMemoryScores(retention int) *InMemoryScores {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &InMemoryScores{
		retention: retention,
		byScope:   make(map[domain.AssetID][]models.ScoreSample),
	}
}

// Append records one sample, pruning past the retention horizon.
func (s *InMemoryScores) Append(ctx context.Context, sample models.ScoreSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := append(s.byScope[sample.AssetID], sample)
	if len(window) > s.retention {
		window = window[len(window)-s.retention:]
	}
	s.byScope[sample.AssetID] = window
	return nil
}

// Latest returns the most recent sample for the scope, or nil.
func (s *InMemoryScores) Latest(ctx context.Context, scope domain.AssetID) (*models.ScoreSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := s.byScope[scope]
	if len(window) == 0 {
		return nil, nil
	}
	cp := window[len(window)-1]
	return &cp, nil
}

// Window returns up to n most recent samples for the scope, oldest first.
func (s *InMemoryScores) Window(ctx context.Context, scope domain.AssetID, n int) ([]models.ScoreSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := s.byScope[scope]
	if n > 0 && len(window) > n {
		window = window[len(window)-n:]
	}
	out := make([]models.ScoreSample, len(window))
	copy(out, window)
	return out, nil
}
