package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"dataguard/internal/rules/models"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
	"dataguard/pkg/platform/tx"
)

// PostgresStore persists rule definitions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed rule store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the rule table.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS quality_rules (
	rule_type           TEXT PRIMARY KEY,
	display_name        TEXT NOT NULL,
	enabled             BOOLEAN NOT NULL DEFAULT FALSE,
	sensitivity         TEXT NOT NULL,
	column_name_hints   TEXT[] NOT NULL DEFAULT '{}',
	value_pattern       TEXT NOT NULL DEFAULT '',
	requires_encryption BOOLEAN NOT NULL DEFAULT FALSE,
	requires_masking    BOOLEAN NOT NULL DEFAULT FALSE,
	compliance_tags     TEXT[] NOT NULL DEFAULT '{}',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
`
}

func (s *PostgresStore) Upsert(ctx context.Context, def *models.RuleDefinition) (bool, error) {
	if def == nil {
		return false, fmt.Errorf("rule definition is required")
	}
	var created bool
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO quality_rules
			(rule_type, display_name, enabled, sensitivity, column_name_hints,
			 value_pattern, requires_encryption, requires_masking, compliance_tags,
			 created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 ON CONFLICT (rule_type) DO UPDATE SET
			display_name        = EXCLUDED.display_name,
			enabled             = EXCLUDED.enabled,
			sensitivity         = EXCLUDED.sensitivity,
			column_name_hints   = EXCLUDED.column_name_hints,
			value_pattern       = EXCLUDED.value_pattern,
			requires_encryption = EXCLUDED.requires_encryption,
			requires_masking    = EXCLUDED.requires_masking,
			compliance_tags     = EXCLUDED.compliance_tags,
			updated_at          = EXCLUDED.updated_at
		 RETURNING (xmax = 0)`,
		string(def.RuleType), def.DisplayName, def.Enabled, string(def.Sensitivity),
		pq.Array(def.ColumnNameHints), def.ValuePattern, def.RequiresEncryption,
		def.RequiresMasking, pq.Array(def.ComplianceTags), def.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert rule: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) Get(ctx context.Context, ruleType domain.RuleType) (*models.RuleDefinition, error) {
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT rule_type, display_name, enabled, sensitivity, column_name_hints,
			value_pattern, requires_encryption, requires_masking, compliance_tags,
			created_at, updated_at
		 FROM quality_rules WHERE rule_type = $1`, string(ruleType))
	def, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", ruleType, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return def, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.RuleDefinition, int, error) {
	filter.Normalize()

	where := ""
	args := []any{}
	if filter.Enabled != nil {
		where = "WHERE enabled = $1"
		args = append(args, *filter.Enabled)
	}

	// Count and page inside one transaction so the total matches the page.
	var out []*models.RuleDefinition
	var total int
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Resolve(ctx, s.db)
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM quality_rules "+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count rules: %w", err)
		}

		offset := (filter.Page - 1) * filter.PageSize
		args := append(args, filter.PageSize, offset)
		rows, err := q.QueryContext(ctx, fmt.Sprintf(
			`SELECT rule_type, display_name, enabled, sensitivity, column_name_hints,
				value_pattern, requires_encryption, requires_masking, compliance_tags,
				created_at, updated_at
			 FROM quality_rules %s ORDER BY rule_type LIMIT $%d OFFSET $%d`,
			where, len(args)-1, len(args)), args...)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			def, err := scanRule(rows)
			if err != nil {
				return fmt.Errorf("scan rule: %w", err)
			}
			out = append(out, def)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Snapshot reads all definitions in one statement so a concurrent upsert is
// either fully visible or not at all. The registry version is approximated
// by the max updated_at epoch, which is monotone enough for logging.
func (s *PostgresStore) Snapshot(ctx context.Context) ([]models.RuleDefinition, uint64, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT rule_type, display_name, enabled, sensitivity, column_name_hints,
			value_pattern, requires_encryption, requires_masking, compliance_tags,
			created_at, updated_at
		 FROM quality_rules ORDER BY rule_type`)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot rules: %w", err)
	}
	defer rows.Close()

	var out []models.RuleDefinition
	var version uint64
	for rows.Next() {
		def, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan rule: %w", err)
		}
		if v := uint64(def.UpdatedAt.UnixNano()); v > version {
			version = v
		}
		out = append(out, *def)
	}
	return out, version, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.RuleDefinition, error) {
	var def models.RuleDefinition
	var ruleType, sensitivity string
	var hints, tags pq.StringArray
	err := row.Scan(&ruleType, &def.DisplayName, &def.Enabled, &sensitivity,
		&hints, &def.ValuePattern, &def.RequiresEncryption, &def.RequiresMasking,
		&tags, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	def.RuleType = domain.RuleType(ruleType)
	def.Sensitivity = models.SensitivityLevel(sensitivity)
	def.ColumnNameHints = []string(hints)
	def.ComplianceTags = []string(tags)
	return &def, nil
}
