package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dataguard/internal/catalog"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// PostgresCatalog reads and writes catalog metadata in the platform's
// Postgres metadata database.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog constructs a Postgres-backed catalog.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Schema returns the DDL for the catalog tables. Applied by migrations in
// the wider platform; exposed here so integration tests can bootstrap.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS catalog_assets (
	id             TEXT PRIMARY KEY,
	data_source_id TEXT NOT NULL,
	schema_name    TEXT NOT NULL,
	table_name     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_catalog_assets_source ON catalog_assets (data_source_id);

CREATE TABLE IF NOT EXISTS catalog_columns (
	asset_id  TEXT NOT NULL REFERENCES catalog_assets(id),
	name      TEXT NOT NULL,
	data_type TEXT NOT NULL,
	position  INT  NOT NULL,
	PRIMARY KEY (asset_id, name)
);

CREATE TABLE IF NOT EXISTS column_classifications (
	asset_id              TEXT NOT NULL,
	column_qualified_name TEXT NOT NULL,
	rule_type             TEXT NOT NULL,
	is_sensitive          BOOLEAN NOT NULL,
	PRIMARY KEY (asset_id, column_qualified_name)
);
CREATE INDEX IF NOT EXISTS idx_classifications_rule ON column_classifications (rule_type);

CREATE TABLE IF NOT EXISTS column_display_configs (
	asset_id              TEXT NOT NULL,
	column_qualified_name TEXT NOT NULL,
	masking_enabled       BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (asset_id, column_qualified_name)
);
`
}

func (s *PostgresCatalog) GetAssetsByDataSource(ctx context.Context, id domain.DataSourceID) ([]catalog.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data_source_id, schema_name, table_name
		 FROM catalog_assets WHERE data_source_id = $1 ORDER BY id`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []catalog.Asset
	for rows.Next() {
		var a catalog.Asset
		var aid, sid string
		if err := rows.Scan(&aid, &sid, &a.Schema, &a.Table); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.ID = domain.AssetID(aid)
		a.DataSourceID = domain.DataSourceID(sid)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresCatalog) ListColumns(ctx context.Context, assetID domain.AssetID) ([]catalog.Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, data_type FROM catalog_columns
		 WHERE asset_id = $1 ORDER BY position`, string(assetID))
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var out []catalog.Column
	for rows.Next() {
		var c catalog.Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM catalog_assets WHERE id = $1)`, string(assetID),
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check asset: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("asset %s: %w", assetID, sentinel.ErrNotFound)
		}
	}
	return out, nil
}

func (s *PostgresCatalog) SetColumnClassification(ctx context.Context, c catalog.Classification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO column_classifications (asset_id, column_qualified_name, rule_type, is_sensitive)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (asset_id, column_qualified_name)
		 DO UPDATE SET rule_type = EXCLUDED.rule_type, is_sensitive = EXCLUDED.is_sensitive`,
		string(c.AssetID), c.ColumnQualifiedName, string(c.RuleType), c.IsSensitive)
	if err != nil {
		return fmt.Errorf("set classification: %w", err)
	}
	return nil
}

func (s *PostgresCatalog) ClearClassifications(ctx context.Context, ruleType domain.RuleType) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM column_classifications WHERE rule_type = $1`, string(ruleType))
	if err != nil {
		return fmt.Errorf("clear classifications: %w", err)
	}
	return nil
}

func (s *PostgresCatalog) GetColumnDisplayConfig(ctx context.Context, ref catalog.ColumnRef) (catalog.DisplayConfig, error) {
	var cfg catalog.DisplayConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT masking_enabled FROM column_display_configs
		 WHERE asset_id = $1 AND column_qualified_name = $2`,
		string(ref.AssetID), ref.QualifiedName()).Scan(&cfg.MaskingEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		// No stored config means masking was never configured.
		return catalog.DisplayConfig{}, nil
	}
	if err != nil {
		return catalog.DisplayConfig{}, fmt.Errorf("get display config: %w", err)
	}
	return cfg, nil
}
