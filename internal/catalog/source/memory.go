// Package source provides data source implementations. The in-memory source
// backs development and tests; production sources adapt warehouse drivers to
// the same interface elsewhere in the platform.
package source

import (
	"context"
	"fmt"
	"sync"

	"dataguard/internal/catalog"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// MemorySource is an in-memory catalog.DataSource with failure injection.
type MemorySource struct {
	id domain.DataSourceID

	mu     sync.RWMutex
	rows   map[string][]string
	broken bool
}

// NewMemorySource creates an empty in-memory data source.
func NewMemorySource(id domain.DataSourceID) *MemorySource {
	return &MemorySource{id: id, rows: make(map[string][]string)}
}

func (s *MemorySource) ID() domain.DataSourceID { return s.id }

// SetColumn seeds the sampled values for one column.
func (s *MemorySource) SetColumn(schema, table, column string, values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[columnKey(schema, table, column)] = append([]string(nil), values...)
}

// SetBroken toggles simulated connectivity failure.
func (s *MemorySource) SetBroken(broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = broken
}

func (s *MemorySource) SampleRows(ctx context.Context, schema, table, column string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.broken {
		return nil, fmt.Errorf("source %s: %w", s.id, sentinel.ErrUnavailable)
	}
	values := s.rows[columnKey(schema, table, column)]
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return append([]string(nil), values...), nil
}

func columnKey(schema, table, column string) string {
	return schema + "." + table + "." + column
}

// MemoryRegistry is an in-memory catalog.Registry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	sources map[domain.DataSourceID]catalog.DataSource
	order   []domain.DataSourceID
}

// NewMemoryRegistry creates a registry holding the given sources.
func NewMemoryRegistry(sources ...catalog.DataSource) *MemoryRegistry {
	r := &MemoryRegistry{sources: make(map[domain.DataSourceID]catalog.DataSource)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a data source.
func (r *MemoryRegistry) Register(s catalog.DataSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[s.ID()]; !exists {
		r.order = append(r.order, s.ID())
	}
	r.sources[s.ID()] = s
}

func (r *MemoryRegistry) List(ctx context.Context) ([]catalog.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]catalog.DataSource, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out, nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id domain.DataSourceID) (catalog.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("data source %s: %w", id, sentinel.ErrNotFound)
	}
	return s, nil
}
