package catalog

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Catalog,DataSource,Registry

import (
	"context"

	"dataguard/pkg/domain"
)

// Catalog is the metadata store the governance platform maintains. The
// engine reads column structure from it and writes classification facts
// back. Implementations must be safe for concurrent use.
type Catalog interface {
	// GetAssetsByDataSource lists the assets registered under one source.
	GetAssetsByDataSource(ctx context.Context, id domain.DataSourceID) ([]Asset, error)

	// ListColumns returns the column structure of an asset.
	ListColumns(ctx context.Context, assetID domain.AssetID) ([]Column, error)

	// SetColumnClassification upserts the classification fact for a column.
	// Last classification wins; a column carries at most one rule type.
	SetColumnClassification(ctx context.Context, c Classification) error

	// ClearClassifications removes all classification facts of a rule type,
	// used when a rescan is asked to start from a clean slate.
	ClearClassifications(ctx context.Context, ruleType domain.RuleType) error

	// GetColumnDisplayConfig reads the stored display configuration.
	GetColumnDisplayConfig(ctx context.Context, ref ColumnRef) (DisplayConfig, error)
}

// DataSource is one registered external source with a generic
// query-execution capability. Calls may block on network I/O; callers must
// pass a context with a deadline.
type DataSource interface {
	ID() domain.DataSourceID

	// SampleRows returns up to limit values from the column, as strings.
	// Unreachable sources return sentinel.ErrUnavailable (wrapped).
	SampleRows(ctx context.Context, schema, table, column string, limit int) ([]string, error)
}

// Registry enumerates the registered data sources.
type Registry interface {
	List(ctx context.Context) ([]DataSource, error)
	Get(ctx context.Context, id domain.DataSourceID) (DataSource, error)
}
