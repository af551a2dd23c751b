package billing

import "time"

const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

// Subscription links a tenant to a plan and an optional explicit plant
// scope. A nil/empty PlantIDs scope means every plant of the tenant.
type Subscription struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	PlanID    string    `json:"plan_id"`
	Status    string    `json:"status"`
	PlantIDs  []string  `json:"plant_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entitled reports whether the subscription grants monitoring features.
// Any status other than active or trialing counts as inactive here.
func (s Subscription) Entitled() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// Plan declares the feature set granted by a subscription plan.
type Plan struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Features PlanFeatures `json:"features"`
}

// PlanFeatures is the decoded features document of a plan.
type PlanFeatures struct {
	Alerts []string `json:"alerts"`
}
