package application

import (
	"context"
	"testing"
	"time"

	monitoring "solarwatch/internal/monitoring/domain"
	"solarwatch/internal/monitoring/infrastructure/memory"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type recordingNotifier struct {
	events []AlertEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event AlertEvent) {
	n.events = append(n.events, event)
}

func offlineCandidate(plantID string) monitoring.Candidate {
	return monitoring.Candidate{
		Type:        monitoring.TypeOffline,
		Severity:    monitoring.SeverityCritical,
		Title:       "Plant offline",
		Message:     "no contact",
		PlantID:     plantID,
		Fingerprint: monitoring.PlantFingerprint(monitoring.TypeOffline, plantID),
	}
}

func TestReconcileOpensNewAlert(t *testing.T) {
	store := memory.NewAlertRepository()
	notifier := &recordingNotifier{}
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithNotifier(notifier), WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}

	result, err := lifecycle.Reconcile(context.Background(), "tenant-1", []monitoring.Candidate{offlineCandidate("plant-1")})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Opened != 1 || result.Closed != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	open, err := store.ListOpenByTenant(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open alert, got %d", len(open))
	}
	if open[0].Fingerprint != "offline:plant-1" {
		t.Fatalf("unexpected fingerprint %q", open[0].Fingerprint)
	}
	if !open[0].StartsAt.Equal(clock.now) {
		t.Fatalf("unexpected starts_at %s", open[0].StartsAt)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != EventOpened {
		t.Fatalf("unexpected events %+v", notifier.events)
	}
}

func TestReconcileRepeatIsNoop(t *testing.T) {
	store := memory.NewAlertRepository()
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}

	candidates := []monitoring.Candidate{offlineCandidate("plant-1")}
	if _, err := lifecycle.Reconcile(context.Background(), "tenant-1", candidates); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}

	clock.now = clock.now.Add(5 * time.Minute)
	result, err := lifecycle.Reconcile(context.Background(), "tenant-1", candidates)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if result.Opened != 0 || result.Skipped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	open, _ := store.ListOpenByTenant(context.Background(), "tenant-1")
	if len(open) != 1 {
		t.Fatalf("expected 1 open alert after repeat, got %d", len(open))
	}
}

func TestReconcileAutoCloses(t *testing.T) {
	store := memory.NewAlertRepository()
	notifier := &recordingNotifier{}
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithNotifier(notifier), WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}

	if _, err := lifecycle.Reconcile(context.Background(), "tenant-1", []monitoring.Candidate{offlineCandidate("plant-1")}); err != nil {
		t.Fatalf("open reconcile: %v", err)
	}

	clock.now = clock.now.Add(10 * time.Minute)
	result, err := lifecycle.Reconcile(context.Background(), "tenant-1", nil)
	if err != nil {
		t.Fatalf("close reconcile: %v", err)
	}
	if result.Closed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	open, _ := store.ListOpenByTenant(context.Background(), "tenant-1")
	if len(open) != 0 {
		t.Fatalf("expected no open alerts, got %d", len(open))
	}
	all := store.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	if all[0].IsOpen || !all[0].EndsAt.Equal(clock.now) {
		t.Fatalf("unexpected closed record %+v", all[0])
	}
	last := notifier.events[len(notifier.events)-1]
	if last.Type != EventClosed {
		t.Fatalf("expected closed event, got %s", last.Type)
	}
}

func TestReconcileReopensAsNewRecord(t *testing.T) {
	store := memory.NewAlertRepository()
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}

	candidates := []monitoring.Candidate{offlineCandidate("plant-1")}
	if _, err := lifecycle.Reconcile(context.Background(), "tenant-1", candidates); err != nil {
		t.Fatalf("open reconcile: %v", err)
	}
	clock.now = clock.now.Add(10 * time.Minute)
	if _, err := lifecycle.Reconcile(context.Background(), "tenant-1", nil); err != nil {
		t.Fatalf("close reconcile: %v", err)
	}
	clock.now = clock.now.Add(10 * time.Minute)
	result, err := lifecycle.Reconcile(context.Background(), "tenant-1", candidates)
	if err != nil {
		t.Fatalf("reopen reconcile: %v", err)
	}
	if result.Opened != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	ids := map[string]struct{}{}
	for _, alert := range all {
		ids[alert.ID] = struct{}{}
	}
	if len(ids) != 2 {
		t.Fatal("reopened alert reused the closed record id")
	}
}

func TestReconcileTenantIsolation(t *testing.T) {
	store := memory.NewAlertRepository()
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}

	if _, err := lifecycle.Reconcile(context.Background(), "tenant-a", []monitoring.Candidate{offlineCandidate("plant-1")}); err != nil {
		t.Fatalf("tenant-a reconcile: %v", err)
	}
	result, err := lifecycle.Reconcile(context.Background(), "tenant-b", []monitoring.Candidate{offlineCandidate("plant-1")})
	if err != nil {
		t.Fatalf("tenant-b reconcile: %v", err)
	}
	if result.Opened != 1 {
		t.Fatalf("same fingerprint under another tenant should open: %+v", result)
	}

	// Closing sweep of tenant-b must not touch tenant-a's record.
	if _, err := lifecycle.Reconcile(context.Background(), "tenant-b", nil); err != nil {
		t.Fatalf("tenant-b close reconcile: %v", err)
	}
	open, _ := store.ListOpenByTenant(context.Background(), "tenant-a")
	if len(open) != 1 {
		t.Fatalf("tenant-a alert affected by tenant-b sweep, open=%d", len(open))
	}
}

func TestReconcileDuplicateFingerprintsCollapse(t *testing.T) {
	store := memory.NewAlertRepository()
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}

	candidates := []monitoring.Candidate{offlineCandidate("plant-1"), offlineCandidate("plant-1")}
	result, err := lifecycle.Reconcile(context.Background(), "tenant-1", candidates)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Opened != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestReconcileEmptyTenant(t *testing.T) {
	store := memory.NewAlertRepository()
	lifecycle, err := NewLifecycle(store)
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	if _, err := lifecycle.Reconcile(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty tenant id")
	}
}
