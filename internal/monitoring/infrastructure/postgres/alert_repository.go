package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	monitoring "solarwatch/internal/monitoring/domain"
)

const uniqueViolationCode = "23505"

// AlertRepository is a Postgres repository for alert records. The
// at-most-one-open-per-(tenant, fingerprint) invariant is enforced by a
// partial unique index (see migrations); Create surfaces the resulting
// conflict as monitoring.ErrDuplicateOpenAlert.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert record.
func (r *AlertRepository) Create(ctx context.Context, alert *monitoring.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	if alert.ID == "" || alert.TenantID == "" || alert.PlantID == "" || alert.Fingerprint == "" {
		return errors.New("alert repo: missing fields")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.UpdatedAt.IsZero() {
		alert.UpdatedAt = alert.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alerts (
	id, tenant_id, plant_id, device_id, channel_id, alert_type, severity,
	title, message, fingerprint, is_open, starts_at, ends_at, resolved_at,
	created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13, $14,
	$15, $16
)`,
		alert.ID,
		alert.TenantID,
		alert.PlantID,
		nullableString(alert.DeviceID),
		nullableString(alert.ChannelID),
		string(alert.Type),
		string(alert.Severity),
		alert.Title,
		alert.Message,
		alert.Fingerprint,
		alert.IsOpen,
		alert.StartsAt,
		nullableTime(alert.EndsAt),
		nullableTime(alert.ResolvedAt),
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return monitoring.ErrDuplicateOpenAlert
	}
	return err
}

// FindOpenByFingerprint returns the open alert for a fingerprint, if any.
func (r *AlertRepository) FindOpenByFingerprint(ctx context.Context, tenantID, fingerprint string) (*monitoring.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if tenantID == "" || fingerprint == "" {
		return nil, errors.New("alert repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, plant_id, device_id, channel_id, alert_type, severity,
	title, message, fingerprint, is_open, starts_at, ends_at, resolved_at,
	created_at, updated_at
FROM alerts
WHERE tenant_id = $1 AND fingerprint = $2 AND is_open
LIMIT 1`, tenantID, fingerprint)
	return scanAlert(row)
}

// ListOpenByTenant returns every open alert for a tenant.
func (r *AlertRepository) ListOpenByTenant(ctx context.Context, tenantID string) ([]monitoring.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("alert repo: empty tenant id")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, plant_id, device_id, channel_id, alert_type, severity,
	title, message, fingerprint, is_open, starts_at, ends_at, resolved_at,
	created_at, updated_at
FROM alerts
WHERE tenant_id = $1 AND is_open
ORDER BY starts_at ASC, id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// Close marks an alert resolved. Closed records are final: a recurring
// condition opens a fresh record with the same fingerprint.
func (r *AlertRepository) Close(ctx context.Context, id string, endsAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if id == "" {
		return errors.New("alert repo: empty id")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE alerts
SET is_open = FALSE, ends_at = $1, resolved_at = $2, updated_at = $3
WHERE id = $4 AND is_open`, endsAt, endsAt, endsAt, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return monitoring.ErrNotFound
	}
	return nil
}

// ListByTenant lists a tenant's alerts, optionally filtered by plant
// and open state, newest first.
func (r *AlertRepository) ListByTenant(ctx context.Context, tenantID, plantID string, openOnly bool, limit int) ([]monitoring.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("alert repo: empty tenant id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
SELECT id, tenant_id, plant_id, device_id, channel_id, alert_type, severity,
	title, message, fingerprint, is_open, starts_at, ends_at, resolved_at,
	created_at, updated_at
FROM alerts
WHERE tenant_id = $1`
	args := []any{tenantID}
	if plantID != "" {
		args = append(args, plantID)
		query += " AND plant_id = $2"
	}
	if openOnly {
		query += " AND is_open"
	}
	args = append(args, limit)
	if plantID != "" {
		query += " ORDER BY starts_at DESC LIMIT $3"
	} else {
		query += " ORDER BY starts_at DESC LIMIT $2"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

type alertScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row alertScanner) (*monitoring.Alert, error) {
	var alert monitoring.Alert
	var deviceID, channelID sql.NullString
	var alertType, severity string
	var endsAt, resolvedAt sql.NullTime
	if err := row.Scan(
		&alert.ID,
		&alert.TenantID,
		&alert.PlantID,
		&deviceID,
		&channelID,
		&alertType,
		&severity,
		&alert.Title,
		&alert.Message,
		&alert.Fingerprint,
		&alert.IsOpen,
		&alert.StartsAt,
		&endsAt,
		&resolvedAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	alert.Type = monitoring.AlertType(alertType)
	alert.Severity = monitoring.Severity(severity)
	alert.StartsAt = alert.StartsAt.UTC()
	alert.CreatedAt = alert.CreatedAt.UTC()
	alert.UpdatedAt = alert.UpdatedAt.UTC()
	if deviceID.Valid {
		alert.DeviceID = deviceID.String
	}
	if channelID.Valid {
		alert.ChannelID = channelID.String
	}
	if endsAt.Valid {
		alert.EndsAt = endsAt.Time.UTC()
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = resolvedAt.Time.UTC()
	}
	return &alert, nil
}

func collectAlerts(rows *sql.Rows) ([]monitoring.Alert, error) {
	var alerts []monitoring.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
