package memory

import (
	"context"
	"sync"
	"time"

	monitoring "solarwatch/internal/monitoring/domain"
)

// AlertRepository is an in-memory alert store used by tests. It
// emulates the partial unique index of the Postgres store: inserting a
// second open record for the same (tenant, fingerprint) fails with
// monitoring.ErrDuplicateOpenAlert.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]monitoring.Alert
}

// NewAlertRepository constructs a repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{alerts: make(map[string]monitoring.Alert)}
}

// Create inserts a new alert record.
func (r *AlertRepository) Create(ctx context.Context, alert *monitoring.Alert) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if alert.IsOpen {
		for _, existing := range r.alerts {
			if existing.IsOpen && existing.TenantID == alert.TenantID && existing.Fingerprint == alert.Fingerprint {
				return monitoring.ErrDuplicateOpenAlert
			}
		}
	}
	r.alerts[alert.ID] = *alert
	return nil
}

// FindOpenByFingerprint returns the open alert for a fingerprint, if any.
func (r *AlertRepository) FindOpenByFingerprint(ctx context.Context, tenantID, fingerprint string) (*monitoring.Alert, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, alert := range r.alerts {
		if alert.IsOpen && alert.TenantID == tenantID && alert.Fingerprint == fingerprint {
			found := alert
			return &found, nil
		}
	}
	return nil, nil
}

// ListOpenByTenant returns every open alert for a tenant.
func (r *AlertRepository) ListOpenByTenant(ctx context.Context, tenantID string) ([]monitoring.Alert, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var open []monitoring.Alert
	for _, alert := range r.alerts {
		if alert.IsOpen && alert.TenantID == tenantID {
			open = append(open, alert)
		}
	}
	return open, nil
}

// Close marks an alert resolved.
func (r *AlertRepository) Close(ctx context.Context, id string, endsAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok || !alert.IsOpen {
		return monitoring.ErrNotFound
	}
	alert.IsOpen = false
	alert.EndsAt = endsAt
	alert.ResolvedAt = endsAt
	alert.UpdatedAt = endsAt
	r.alerts[id] = alert
	return nil
}

// ListByTenant lists a tenant's alerts, optionally filtered.
func (r *AlertRepository) ListByTenant(ctx context.Context, tenantID, plantID string, openOnly bool, limit int) ([]monitoring.Alert, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var alerts []monitoring.Alert
	for _, alert := range r.alerts {
		if alert.TenantID != tenantID {
			continue
		}
		if plantID != "" && alert.PlantID != plantID {
			continue
		}
		if openOnly && !alert.IsOpen {
			continue
		}
		alerts = append(alerts, alert)
		if len(alerts) >= limit {
			break
		}
	}
	return alerts, nil
}

// All returns every stored record, for assertion convenience.
func (r *AlertRepository) All() []monitoring.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alerts := make([]monitoring.Alert, 0, len(r.alerts))
	for _, alert := range r.alerts {
		alerts = append(alerts, alert)
	}
	return alerts
}
