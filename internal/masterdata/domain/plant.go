package masterdata

import "time"

// Plant represents a physical solar installation owned by a tenant.
// LastContactAt is maintained by the ingestion pipeline whenever the
// plant's gateway last communicated; this service only reads it.
type Plant struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Name          string    `json:"name"`
	CapacityKW    float64   `json:"installed_capacity_kw"`
	LastContactAt time.Time `json:"last_contact_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
