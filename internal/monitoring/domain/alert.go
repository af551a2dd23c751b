package monitoring

import (
	"errors"
	"time"
)

// AlertType identifies one of the six anomaly rules.
type AlertType string

const (
	TypeOffline        AlertType = "offline"
	TypeStaleData      AlertType = "stale_data"
	TypeFreeze         AlertType = "freeze"
	TypeSuddenDrop     AlertType = "sudden_drop"
	TypeZeroGeneration AlertType = "zero_generation"
	TypeImbalance      AlertType = "imbalance"
)

// AllTypes returns every supported alert type.
func AllTypes() []AlertType {
	return []AlertType{
		TypeOffline,
		TypeStaleData,
		TypeFreeze,
		TypeSuddenDrop,
		TypeZeroGeneration,
		TypeImbalance,
	}
}

// Valid returns true when the type is one of the six rules.
func (t AlertType) Valid() bool {
	switch t {
	case TypeOffline, TypeStaleData, TypeFreeze, TypeSuddenDrop, TypeZeroGeneration, TypeImbalance:
		return true
	default:
		return false
	}
}

// TypeSet is the set of alert types enabled for a tenant.
type TypeSet map[AlertType]struct{}

// NewTypeSet builds a set from the given types, dropping invalid ones.
func NewTypeSet(types ...AlertType) TypeSet {
	set := make(TypeSet, len(types))
	for _, t := range types {
		if t.Valid() {
			set[t] = struct{}{}
		}
	}
	return set
}

// ParseTypeSet builds a set from raw plan feature strings. Unknown
// names are ignored so that newer plan documents stay readable.
func ParseTypeSet(names []string) TypeSet {
	set := make(TypeSet, len(names))
	for _, name := range names {
		t := AlertType(name)
		if t.Valid() {
			set[t] = struct{}{}
		}
	}
	return set
}

// DefaultTypeSet is the conservative feature set for tenants without an
// entitled subscription: gross failures are still surfaced.
func DefaultTypeSet() TypeSet {
	return NewTypeSet(TypeOffline)
}

// Has reports membership.
func (s TypeSet) Has(t AlertType) bool {
	_, ok := s[t]
	return ok
}

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is the mutable record this engine creates and retires. At most
// one open alert exists per (tenant, fingerprint); a closed record is
// never reopened in place.
type Alert struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PlantID     string    `json:"plant_id"`
	DeviceID    string    `json:"device_id,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Fingerprint string    `json:"fingerprint"`
	IsOpen      bool      `json:"is_open"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Candidate is one rule detection produced by an evaluation pass,
// before reconciliation against open alert records.
type Candidate struct {
	Type        AlertType
	Severity    Severity
	Title       string
	Message     string
	PlantID     string
	DeviceID    string
	ChannelID   string
	Fingerprint string
}

// PlantFingerprint builds the dedup identity of a plant-scoped condition.
func PlantFingerprint(t AlertType, plantID string) string {
	return string(t) + ":" + plantID
}

// ChannelFingerprint builds the dedup identity of a channel-scoped condition.
func ChannelFingerprint(t AlertType, plantID, channelID string) string {
	return string(t) + ":" + plantID + ":" + channelID
}

// ErrDuplicateOpenAlert indicates a concurrent pass already opened an
// alert with the same (tenant, fingerprint). Callers treat it as a
// benign skip, not a failure.
var ErrDuplicateOpenAlert = errors.New("alert: open record already exists for fingerprint")

// ErrNotFound indicates a missing alert record.
var ErrNotFound = errors.New("alert: not found")
