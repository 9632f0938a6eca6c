package store

import (
	"context"
	"fmt"
	"sync"

	"dataguard/internal/catalog"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// InMemoryCatalog implements catalog.Catalog for development and tests.
type InMemoryCatalog struct {
	mu              sync.RWMutex
	assets          map[domain.AssetID]catalog.Asset
	columns         map[domain.AssetID][]catalog.Column
	classifications map[string]catalog.Classification
	displayConfigs  map[string]catalog.DisplayConfig
}

// NewInMemoryCatalog creates an empty in-memory catalog.
func NewInMemoryCatalog() *InMemoryCatalog {
	return &InMemoryCatalog{
		assets:          make(map[domain.AssetID]catalog.Asset),
		columns:         make(map[domain.AssetID][]catalog.Column),
		classifications: make(map[string]catalog.Classification),
		displayConfigs:  make(map[string]catalog.DisplayConfig),
	}
}

// AddAsset registers an asset with its columns. Test/dev seeding helper.
func (s *InMemoryCatalog) AddAsset(asset catalog.Asset, columns ...catalog.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = asset
	s.columns[asset.ID] = append([]catalog.Column(nil), columns...)
}

// SetDisplayConfig stores a column's display configuration. Seeding helper.
func (s *InMemoryCatalog) SetDisplayConfig(ref catalog.ColumnRef, cfg catalog.DisplayConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayConfigs[displayKey(ref.AssetID, ref.QualifiedName())] = cfg
}

func (s *InMemoryCatalog) GetAssetsByDataSource(ctx context.Context, id domain.DataSourceID) ([]catalog.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Asset
	for _, a := range s.assets {
		if a.DataSourceID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemoryCatalog) ListColumns(ctx context.Context, assetID domain.AssetID) ([]catalog.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cols, ok := s.columns[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, sentinel.ErrNotFound)
	}
	return append([]catalog.Column(nil), cols...), nil
}

func (s *InMemoryCatalog) SetColumnClassification(ctx context.Context, c catalog.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[displayKey(c.AssetID, c.ColumnQualifiedName)] = c
	return nil
}

func (s *InMemoryCatalog) ClearClassifications(ctx context.Context, ruleType domain.RuleType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.classifications {
		if c.RuleType == ruleType {
			delete(s.classifications, k)
		}
	}
	return nil
}

func (s *InMemoryCatalog) GetColumnDisplayConfig(ctx context.Context, ref catalog.ColumnRef) (catalog.DisplayConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Absent config means no masking has been configured for the column.
	return s.displayConfigs[displayKey(ref.AssetID, ref.QualifiedName())], nil
}

// Classifications returns a snapshot of all stored classification facts.
func (s *InMemoryCatalog) Classifications() []catalog.Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Classification, 0, len(s.classifications))
	for _, c := range s.classifications {
		out = append(out, c)
	}
	return out
}

func displayKey(assetID domain.AssetID, qualified string) string {
	return string(assetID) + "|" + qualified
}
