package billing

import (
	"context"
	"errors"

	billing "solarwatch/internal/billing/domain"
	"solarwatch/internal/monitoring/application"
	monitoring "solarwatch/internal/monitoring/domain"
)

// SubscriptionSource lists a tenant's entitled subscriptions in
// creation order.
type SubscriptionSource interface {
	ListEntitledByTenant(ctx context.Context, tenantID string) ([]billing.Subscription, error)
}

// PlanSource loads plan documents.
type PlanSource interface {
	Get(ctx context.Context, id string) (*billing.Plan, error)
}

// PlanResolver resolves a tenant's monitoring entitlement from its
// subscriptions. Tenants without an entitled subscription fall back to
// the minimal offline-only feature set so gross failures still surface.
type PlanResolver struct {
	subscriptions SubscriptionSource
	plans         PlanSource
}

// NewPlanResolver constructs a resolver.
func NewPlanResolver(subscriptions SubscriptionSource, plans PlanSource) (*PlanResolver, error) {
	if subscriptions == nil || plans == nil {
		return nil, errors.New("plan resolver: nil source")
	}
	return &PlanResolver{subscriptions: subscriptions, plans: plans}, nil
}

// Resolve returns the enabled alert types and plant scope for a tenant.
// Plant scopes of multiple subscriptions are unioned; a subscription
// without an explicit scope widens the result to every plant. The
// feature set comes from the first resolvable plan in creation order,
// which keeps resolution deterministic when plans disagree.
func (r *PlanResolver) Resolve(ctx context.Context, tenantID string) (application.ResolvedPlan, error) {
	if r == nil {
		return application.ResolvedPlan{}, errors.New("plan resolver: nil")
	}
	if tenantID == "" {
		return application.ResolvedPlan{}, errors.New("plan resolver: empty tenant id")
	}

	subs, err := r.subscriptions.ListEntitledByTenant(ctx, tenantID)
	if err != nil {
		return application.ResolvedPlan{}, err
	}
	if len(subs) == 0 {
		return application.ResolvedPlan{Types: monitoring.DefaultTypeSet()}, nil
	}

	allPlants := false
	scope := make(map[string]struct{})
	var plantIDs []string
	var types monitoring.TypeSet

	for _, sub := range subs {
		if !sub.Entitled() {
			continue
		}
		if len(sub.PlantIDs) == 0 {
			allPlants = true
		}
		for _, plantID := range sub.PlantIDs {
			if _, ok := scope[plantID]; ok {
				continue
			}
			scope[plantID] = struct{}{}
			plantIDs = append(plantIDs, plantID)
		}

		if types != nil {
			continue
		}
		plan, err := r.plans.Get(ctx, sub.PlanID)
		if err != nil || plan == nil {
			continue
		}
		if resolved := monitoring.ParseTypeSet(plan.Features.Alerts); len(resolved) > 0 {
			types = resolved
		}
	}

	if types == nil {
		types = monitoring.DefaultTypeSet()
	}
	if allPlants {
		plantIDs = nil
	}
	return application.ResolvedPlan{Types: types, PlantIDs: plantIDs}, nil
}
