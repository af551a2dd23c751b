package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	monitoring "solarwatch/internal/monitoring/domain"
	"solarwatch/internal/observability/metrics"
)

const (
	// EventOpened and EventClosed are the two lifecycle transitions
	// downstream consumers observe.
	EventOpened = "opened"
	EventClosed = "closed"
)

// AlertEvent represents one alert lifecycle transition.
type AlertEvent struct {
	Type  string           `json:"type"`
	Alert monitoring.Alert `json:"alert"`
}

// AlertNotifier publishes alert lifecycle events. Delivery is
// best-effort; the alert store remains the source of truth.
type AlertNotifier interface {
	Notify(ctx context.Context, event AlertEvent)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// AlertStore persists alert records. Create must fail with
// monitoring.ErrDuplicateOpenAlert when an open record with the same
// (tenant, fingerprint) already exists, so racing passes collapse to a
// single survivor.
type AlertStore interface {
	FindOpenByFingerprint(ctx context.Context, tenantID, fingerprint string) (*monitoring.Alert, error)
	ListOpenByTenant(ctx context.Context, tenantID string) ([]monitoring.Alert, error)
	Create(ctx context.Context, alert *monitoring.Alert) error
	Close(ctx context.Context, id string, endsAt time.Time) error
}

// Lifecycle reconciles a tenant's candidate list against open alert
// records: opens idempotently, leaves repeats untouched, auto-closes
// conditions that no longer reproduce.
type Lifecycle struct {
	alerts   AlertStore
	notifier AlertNotifier
	clock    Clock
}

// LifecycleOption customizes the lifecycle manager.
type LifecycleOption func(*Lifecycle)

// WithNotifier assigns a notifier.
func WithNotifier(notifier AlertNotifier) LifecycleOption {
	return func(l *Lifecycle) {
		l.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) LifecycleOption {
	return func(l *Lifecycle) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLifecycle constructs a lifecycle manager.
func NewLifecycle(alerts AlertStore, opts ...LifecycleOption) (*Lifecycle, error) {
	if alerts == nil {
		return nil, errors.New("lifecycle: nil alert store")
	}
	lifecycle := &Lifecycle{alerts: alerts, clock: systemClock{}}
	for _, opt := range opts {
		opt(lifecycle)
	}
	return lifecycle, nil
}

// ReconcileResult aggregates one tenant's reconciliation outcome.
type ReconcileResult struct {
	Opened  int
	Closed  int
	Skipped int
}

// Reconcile applies the complete candidate set of one evaluation pass.
// Callers must not invoke it with a partial set: closing depends on
// seeing every fingerprint the pass produced.
func (l *Lifecycle) Reconcile(ctx context.Context, tenantID string, candidates []monitoring.Candidate) (ReconcileResult, error) {
	var result ReconcileResult
	if l == nil {
		return result, errors.New("lifecycle: nil")
	}
	if tenantID == "" {
		return result, errors.New("lifecycle: empty tenant id")
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if candidate.Fingerprint == "" {
			continue
		}
		if _, dup := seen[candidate.Fingerprint]; dup {
			continue
		}
		seen[candidate.Fingerprint] = struct{}{}

		open, err := l.alerts.FindOpenByFingerprint(ctx, tenantID, candidate.Fingerprint)
		if err != nil {
			return result, err
		}
		if open != nil {
			// Condition still reproduces; the original record stands.
			// Message and severity are deliberately not refreshed.
			result.Skipped++
			continue
		}

		now := l.clock.Now().UTC()
		alert := &monitoring.Alert{
			ID:          buildAlertID(tenantID, candidate.Fingerprint, now),
			TenantID:    tenantID,
			PlantID:     candidate.PlantID,
			DeviceID:    candidate.DeviceID,
			ChannelID:   candidate.ChannelID,
			Type:        candidate.Type,
			Severity:    candidate.Severity,
			Title:       candidate.Title,
			Message:     candidate.Message,
			Fingerprint: candidate.Fingerprint,
			IsOpen:      true,
			StartsAt:    now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := l.alerts.Create(ctx, alert); err != nil {
			if errors.Is(err, monitoring.ErrDuplicateOpenAlert) {
				// A concurrent pass won the race; at most one open
				// record survives either way.
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Opened++
		l.notify(ctx, EventOpened, *alert)
	}

	open, err := l.alerts.ListOpenByTenant(ctx, tenantID)
	if err != nil {
		return result, err
	}
	for _, alert := range open {
		if _, active := seen[alert.Fingerprint]; active {
			continue
		}
		closedAt := l.clock.Now().UTC()
		if err := l.alerts.Close(ctx, alert.ID, closedAt); err != nil {
			return result, err
		}
		alert.IsOpen = false
		alert.EndsAt = closedAt
		alert.ResolvedAt = closedAt
		alert.UpdatedAt = closedAt
		result.Closed++
		l.notify(ctx, EventClosed, alert)
	}

	return result, nil
}

func (l *Lifecycle) notify(ctx context.Context, eventType string, alert monitoring.Alert) {
	metrics.IncAlertEvent(eventType)
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(ctx, AlertEvent{Type: eventType, Alert: alert})
}

func buildAlertID(tenantID, fingerprint string, startsAt time.Time) string {
	sum := sha1.Sum([]byte(tenantID + "|" + fingerprint + "|" + startsAt.Format(time.RFC3339Nano)))
	return "alert-" + hex.EncodeToString(sum[:8])
}
