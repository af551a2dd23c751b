package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	billing "solarwatch/internal/billing/domain"
)

const (
	defaultSubscriptionsTable = "subscriptions"
	defaultPlansTable         = "plans"
)

// SubscriptionRepository is a Postgres implementation for subscriptions.
type SubscriptionRepository struct {
	db    *sql.DB
	table string
}

// NewSubscriptionRepository constructs a repository.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, table: defaultSubscriptionsTable}
}

// ListEntitledByTenant returns active or trialing subscriptions for a
// tenant in creation order. Plant scopes are stored as a JSONB array;
// a SQL NULL scope decodes to nil (all plants in scope).
func (r *SubscriptionRepository) ListEntitledByTenant(ctx context.Context, tenantID string) ([]billing.Subscription, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("subscription repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("subscription repo: empty tenant id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, plan_id, status, plant_ids, created_at
FROM %s
WHERE tenant_id = $1 AND status IN ($2, $3)
ORDER BY created_at ASC, id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID, billing.StatusActive, billing.StatusTrialing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []billing.Subscription
	for rows.Next() {
		var sub billing.Subscription
		var scope []byte
		if err := rows.Scan(
			&sub.ID,
			&sub.TenantID,
			&sub.PlanID,
			&sub.Status,
			&scope,
			&sub.CreatedAt,
		); err != nil {
			return nil, err
		}
		sub.CreatedAt = sub.CreatedAt.UTC()
		if len(scope) > 0 {
			if err := json.Unmarshal(scope, &sub.PlantIDs); err != nil {
				return nil, fmt.Errorf("subscription repo: decode plant scope for %s: %w", sub.ID, err)
			}
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// PlanRepository is a Postgres implementation for plans.
type PlanRepository struct {
	db    *sql.DB
	table string
}

// NewPlanRepository constructs a repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db, table: defaultPlansTable}
}

// Get loads a plan by id; nil when absent.
func (r *PlanRepository) Get(ctx context.Context, id string) (*billing.Plan, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("plan repo: nil db")
	}
	if id == "" {
		return nil, errors.New("plan repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, name, features
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var plan billing.Plan
	var features []byte
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&plan.ID, &plan.Name, &features); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &plan.Features); err != nil {
			return nil, fmt.Errorf("plan repo: decode features for %s: %w", plan.ID, err)
		}
	}
	return &plan, nil
}
