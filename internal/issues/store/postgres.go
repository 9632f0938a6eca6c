package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"dataguard/internal/issues/models"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
	"dataguard/pkg/platform/tx"
)

// PostgresStore persists issues in PostgreSQL. The partial unique index
// mirrors the store-level invariant so a racing create cannot slip a second
// open-like issue past the application.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed issue store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the issue table.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS quality_issues (
	id                    UUID PRIMARY KEY,
	asset_id              TEXT NOT NULL,
	column_qualified_name TEXT NOT NULL,
	rule_type             TEXT NOT NULL,
	status                TEXT NOT NULL,
	severity              TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	resolved_at           TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_issues_open_tuple
	ON quality_issues (asset_id, column_qualified_name, rule_type)
	WHERE status IN ('open', 'acknowledged');
CREATE INDEX IF NOT EXISTS idx_issues_rule_status ON quality_issues (rule_type, status);
CREATE INDEX IF NOT EXISTS idx_issues_asset ON quality_issues (asset_id);
`
}

const issueColumns = `id, asset_id, column_qualified_name, rule_type, status,
	severity, description, resolved_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, issue *models.QualityIssue) error {
	if issue == nil {
		return fmt.Errorf("issue is required")
	}
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`INSERT INTO quality_issues (`+issueColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(issue.ID), string(issue.AssetID), issue.ColumnQualifiedName,
		string(issue.RuleType), string(issue.Status), string(issue.Severity),
		issue.Description, issue.ResolvedAt, issue.CreatedAt, issue.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("open issue exists for tuple %s: %w", issue.TupleKey(), sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.IssueID) (*models.QualityIssue, error) {
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM quality_issues WHERE id = $1`, uuid.UUID(id))
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

func (s *PostgresStore) Update(ctx context.Context, issue *models.QualityIssue) error {
	if issue == nil {
		return fmt.Errorf("issue is required")
	}
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE quality_issues SET
			status = $2, severity = $3, description = $4,
			resolved_at = $5, updated_at = $6
		 WHERE id = $1`,
		uuid.UUID(issue.ID), string(issue.Status), string(issue.Severity),
		issue.Description, issue.ResolvedAt, issue.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("issue %s: %w", issue.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindOpenByTuple(ctx context.Context, assetID domain.AssetID, column string, ruleType domain.RuleType) (*models.QualityIssue, error) {
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM quality_issues
		 WHERE asset_id = $1 AND column_qualified_name = $2 AND rule_type = $3
		   AND status IN ('open', 'acknowledged')`,
		string(assetID), column, string(ruleType))
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open issue for %s: %w",
			models.TupleKey(assetID, column, ruleType), sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find open issue: %w", err)
	}
	return issue, nil
}

func (s *PostgresStore) FindLatestByTuple(ctx context.Context, assetID domain.AssetID, column string, ruleType domain.RuleType) (*models.QualityIssue, error) {
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM quality_issues
		 WHERE asset_id = $1 AND column_qualified_name = $2 AND rule_type = $3
		 ORDER BY updated_at DESC LIMIT 1`,
		string(assetID), column, string(ruleType))
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue for %s: %w",
			models.TupleKey(assetID, column, ruleType), sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find latest issue: %w", err)
	}
	return issue, nil
}

func (s *PostgresStore) ListOpenByRuleType(ctx context.Context, ruleType domain.RuleType) ([]*models.QualityIssue, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT `+issueColumns+` FROM quality_issues
		 WHERE rule_type = $1 AND status IN ('open', 'acknowledged')
		 ORDER BY created_at`, string(ruleType))
	if err != nil {
		return nil, fmt.Errorf("list open issues: %w", err)
	}
	defer rows.Close()
	return collectIssues(rows)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.QualityIssue, int, error) {
	filter.Normalize()

	where := "WHERE TRUE"
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.RuleType != "" {
		args = append(args, string(filter.RuleType))
		where += fmt.Sprintf(" AND rule_type = $%d", len(args))
	}
	if filter.AssetID != "" {
		args = append(args, string(filter.AssetID))
		where += fmt.Sprintf(" AND asset_id = $%d", len(args))
	}

	// Count and page inside one transaction so the total matches the page.
	var issues []*models.QualityIssue
	var total int
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Resolve(ctx, s.db)
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM quality_issues "+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count issues: %w", err)
		}

		offset := (filter.Page - 1) * filter.PageSize
		args := append(args, filter.PageSize, offset)
		rows, err := q.QueryContext(ctx, fmt.Sprintf(
			`SELECT `+issueColumns+` FROM quality_issues %s
			 ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			where, len(args)-1, len(args)), args...)
		if err != nil {
			return fmt.Errorf("list issues: %w", err)
		}
		defer rows.Close()

		issues, err = collectIssues(rows)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

func (s *PostgresStore) OpenCounts(ctx context.Context) (map[domain.AssetID]int, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT asset_id, COUNT(*) FROM quality_issues
		 WHERE status IN ('open', 'acknowledged') GROUP BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("count open issues: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.AssetID]int)
	for rows.Next() {
		var assetID string
		var n int
		if err := rows.Scan(&assetID, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.AssetID(assetID)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) OpenSeverityCounts(ctx context.Context) (map[domain.AssetID]map[models.Severity]int, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT asset_id, severity, COUNT(*) FROM quality_issues
		 WHERE status IN ('open', 'acknowledged') GROUP BY asset_id, severity`)
	if err != nil {
		return nil, fmt.Errorf("count open issues by severity: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.AssetID]map[models.Severity]int)
	for rows.Next() {
		var assetID, severity string
		var n int
		if err := rows.Scan(&assetID, &severity, &n); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		bySeverity, ok := counts[domain.AssetID(assetID)]
		if !ok {
			bySeverity = make(map[models.Severity]int)
			counts[domain.AssetID(assetID)] = bySeverity
		}
		bySeverity[models.Severity(severity)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*models.QualityIssue, error) {
	var issue models.QualityIssue
	var id uuid.UUID
	var assetID, ruleType, status, severity string
	var resolvedAt sql.NullTime
	err := row.Scan(&id, &assetID, &issue.ColumnQualifiedName, &ruleType, &status,
		&severity, &issue.Description, &resolvedAt, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, err
	}
	issue.ID = domain.IssueID(id)
	issue.AssetID = domain.AssetID(assetID)
	issue.RuleType = domain.RuleType(ruleType)
	issue.Status = models.Status(status)
	issue.Severity = models.Severity(severity)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		issue.ResolvedAt = &t
	}
	return &issue, nil
}

func collectIssues(rows *sql.Rows) ([]*models.QualityIssue, error) {
	var out []*models.QualityIssue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
