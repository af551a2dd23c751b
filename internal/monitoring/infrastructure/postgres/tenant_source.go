package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// TenantSource enumerates tenants with an active monitoring
// integration. Tenants without one are never evaluated.
type TenantSource struct {
	db *sql.DB
}

// NewTenantSource constructs a tenant source.
func NewTenantSource(db *sql.DB) *TenantSource {
	return &TenantSource{db: db}
}

// ListActive returns the tenant ids to process in one run.
func (s *TenantSource) ListActive(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("tenant source: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT tenant_id
FROM monitoring_integrations
WHERE status = 'active'
ORDER BY tenant_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenantIDs []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, err
		}
		tenantIDs = append(tenantIDs, tenantID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tenantIDs, nil
}
