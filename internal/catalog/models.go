// Package catalog defines the ports through which the quality engine consumes
// the metadata store and the registered external data sources. The engine
// never talks to a warehouse directly; everything goes through these
// interfaces so scans can be tested against fakes and mocks.
package catalog

import (
	"fmt"

	"dataguard/pkg/domain"
)

// Asset is a table-like object registered in the metadata store.
type Asset struct {
	ID           domain.AssetID
	DataSourceID domain.DataSourceID
	Schema       string
	Table        string
}

// QualifyColumn renders the fully-qualified column name of a column belonging
// to this asset. All issue bookkeeping is keyed by this exact form; matching
// on anything coarser corrupts per-column issue state.
func (a Asset) QualifyColumn(column string) string {
	return fmt.Sprintf("%s.%s.%s", a.Schema, a.Table, column)
}

// Column is a single column of an asset as the catalog describes it.
type Column struct {
	Name     string
	DataType string
}

// ColumnRef pins down one column in one live data source.
type ColumnRef struct {
	AssetID      domain.AssetID
	DataSourceID domain.DataSourceID
	Schema       string
	Table        string
	Column       string
}

// QualifiedName renders schema.table.column.
func (r ColumnRef) QualifiedName() string {
	return fmt.Sprintf("%s.%s.%s", r.Schema, r.Table, r.Column)
}

// Classification is the derived fact that a column matched a rule. It is
// recomputed on every scan; IsSensitive is true iff RuleType is non-empty.
type Classification struct {
	AssetID             domain.AssetID
	ColumnQualifiedName string
	RuleType            domain.RuleType
	IsSensitive         bool
}

// DisplayConfig is the column's stored display configuration. Masking state
// lives here, not in the live data, so validation reads it from the catalog.
type DisplayConfig struct {
	MaskingEnabled bool
}
