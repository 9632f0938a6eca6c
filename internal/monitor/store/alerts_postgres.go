package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dataguard/internal/monitor/models"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
)

// PostgresAlerts persists alerts in PostgreSQL.
type PostgresAlerts struct {
	db *sql.DB
}

// NewPostgresAlerts constructs a PostgreSQL-backed alert store.
func NewPostgresAlerts(db *sql.DB) *PostgresAlerts {
	return &PostgresAlerts{db: db}
}

// AlertSchema returns the DDL for the alert table.
func AlertSchema() string {
	return `
CREATE TABLE IF NOT EXISTS quality_alerts (
	id              UUID PRIMARY KEY,
	asset_id        TEXT NOT NULL,
	severity        TEXT NOT NULL,
	metric          TEXT NOT NULL,
	previous_value  DOUBLE PRECISION NOT NULL,
	current_value   DOUBLE PRECISION NOT NULL,
	delta           DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	acknowledged_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON quality_alerts (created_at DESC);
`
}

const alertColumns = `id, asset_id, severity, metric, previous_value,
	current_value, delta, created_at, acknowledged_at`

func (s *PostgresAlerts) Create(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quality_alerts (`+alertColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(alert.ID), string(alert.AssetID), string(alert.Severity),
		alert.Metric, alert.PreviousValue, alert.CurrentValue, alert.Delta,
		alert.CreatedAt, alert.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresAlerts) Get(ctx context.Context, id domain.AlertID) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM quality_alerts WHERE id = $1`, uuid.UUID(id))
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

func (s *PostgresAlerts) Update(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE quality_alerts SET acknowledged_at = $2 WHERE id = $1`,
		uuid.UUID(alert.ID), alert.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %s: %w", alert.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresAlerts) List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	filter.Normalize()

	query := `SELECT ` + alertColumns + ` FROM quality_alerts`
	args := []any{}
	if filter.Acknowledged != nil {
		if *filter.Acknowledged {
			query += " WHERE acknowledged_at IS NOT NULL"
		} else {
			query += " WHERE acknowledged_at IS NULL"
		}
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var alert models.Alert
	var id uuid.UUID
	var assetID, severity string
	var acknowledgedAt sql.NullTime
	err := row.Scan(&id, &assetID, &severity, &alert.Metric, &alert.PreviousValue,
		&alert.CurrentValue, &alert.Delta, &alert.CreatedAt, &acknowledgedAt)
	if err != nil {
		return nil, err
	}
	alert.ID = domain.AlertID(id)
	alert.AssetID = domain.AssetID(assetID)
	alert.Severity = models.AlertSeverity(severity)
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		alert.AcknowledgedAt = &t
	}
	return &alert, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
