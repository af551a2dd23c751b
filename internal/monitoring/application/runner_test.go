package application

import (
	"context"
	"errors"
	"testing"
	"time"

	masterdata "solarwatch/internal/masterdata/domain"
	monitoring "solarwatch/internal/monitoring/domain"
	"solarwatch/internal/monitoring/infrastructure/memory"
	telemetry "solarwatch/internal/telemetry/domain"
)

type stubTenantSource struct {
	tenants []string
	err     error
}

func (s stubTenantSource) ListActive(_ context.Context) ([]string, error) {
	return s.tenants, s.err
}

type stubPlanResolver struct {
	plans map[string]ResolvedPlan
	err   map[string]error
}

func (s stubPlanResolver) Resolve(_ context.Context, tenantID string) (ResolvedPlan, error) {
	if err, ok := s.err[tenantID]; ok {
		return ResolvedPlan{}, err
	}
	if plan, ok := s.plans[tenantID]; ok {
		return plan, nil
	}
	return ResolvedPlan{Types: monitoring.DefaultTypeSet()}, nil
}

type stubPlantSource struct {
	plants map[string][]masterdata.Plant
}

func (s stubPlantSource) ListByTenant(_ context.Context, tenantID string) ([]masterdata.Plant, error) {
	return s.plants[tenantID], nil
}

type stubChannelSource struct {
	channels map[string][]masterdata.Channel
	calls    int
}

func (s *stubChannelSource) ListActiveByPlant(_ context.Context, plantID string) ([]masterdata.Channel, error) {
	s.calls++
	return s.channels[plantID], nil
}

type stubReadingSource struct {
	readings map[string][]telemetry.Reading
	err      map[string]error
}

func (s stubReadingSource) WindowByPlant(_ context.Context, _, plantID string, _, _ time.Time) ([]telemetry.Reading, error) {
	if err, ok := s.err[plantID]; ok {
		return nil, err
	}
	return s.readings[plantID], nil
}

func runnerFixture(t *testing.T, tenants stubTenantSource, plans stubPlanResolver, plants stubPlantSource, channels ChannelSource, readings stubReadingSource) (*Runner, *memory.AlertRepository) {
	t.Helper()
	store := memory.NewAlertRepository()
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	lifecycle, err := NewLifecycle(store, WithClock(clock))
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	runner, err := NewRunner(tenants, plans, plants, channels, readings, lifecycle, nil,
		WithWorkers(2), WithRunnerClock(clock))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner, store
}

func offlinePlant(id, tenantID string) masterdata.Plant {
	return masterdata.Plant{ID: id, TenantID: tenantID, Name: id, LastContactAt: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)}
}

func TestRunOpensOfflineAlerts(t *testing.T) {
	tenants := stubTenantSource{tenants: []string{"tenant-1"}}
	plans := stubPlanResolver{plans: map[string]ResolvedPlan{
		"tenant-1": {Types: monitoring.NewTypeSet(monitoring.TypeOffline)},
	}}
	plants := stubPlantSource{plants: map[string][]masterdata.Plant{
		"tenant-1": {offlinePlant("plant-1", "tenant-1")},
	}}
	readings := stubReadingSource{}

	runner, store := runnerFixture(t, tenants, plans, plants, nil, readings)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.TenantsProcessed != 1 || summary.AlertsOpened != 1 || summary.Errors != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	open, _ := store.ListOpenByTenant(context.Background(), "tenant-1")
	if len(open) != 1 || open[0].Type != monitoring.TypeOffline {
		t.Fatalf("unexpected open alerts %+v", open)
	}
}

func TestRunTenantFailureIsIsolated(t *testing.T) {
	tenants := stubTenantSource{tenants: []string{"tenant-bad", "tenant-good"}}
	plans := stubPlanResolver{
		plans: map[string]ResolvedPlan{
			"tenant-good": {Types: monitoring.NewTypeSet(monitoring.TypeOffline)},
		},
		err: map[string]error{"tenant-bad": errors.New("billing down")},
	}
	plants := stubPlantSource{plants: map[string][]masterdata.Plant{
		"tenant-good": {offlinePlant("plant-1", "tenant-good")},
	}}
	readings := stubReadingSource{}

	runner, store := runnerFixture(t, tenants, plans, plants, nil, readings)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Errors != 1 || summary.TenantsProcessed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	open, _ := store.ListOpenByTenant(context.Background(), "tenant-good")
	if len(open) != 1 {
		t.Fatalf("healthy tenant not processed, open=%d", len(open))
	}
}

func TestRunFatalOnTenantEnumeration(t *testing.T) {
	tenants := stubTenantSource{err: errors.New("pg down")}
	runner, _ := runnerFixture(t, tenants, stubPlanResolver{}, stubPlantSource{}, nil, stubReadingSource{})
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected fatal error when tenant enumeration fails")
	}
}

func TestRunRespectsPlantScope(t *testing.T) {
	tenants := stubTenantSource{tenants: []string{"tenant-1"}}
	plans := stubPlanResolver{plans: map[string]ResolvedPlan{
		"tenant-1": {Types: monitoring.NewTypeSet(monitoring.TypeOffline), PlantIDs: []string{"plant-2"}},
	}}
	plants := stubPlantSource{plants: map[string][]masterdata.Plant{
		"tenant-1": {offlinePlant("plant-1", "tenant-1"), offlinePlant("plant-2", "tenant-1")},
	}}
	readings := stubReadingSource{}

	runner, store := runnerFixture(t, tenants, plans, plants, nil, readings)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	open, _ := store.ListOpenByTenant(context.Background(), "tenant-1")
	if len(open) != 1 || open[0].PlantID != "plant-2" {
		t.Fatalf("plant scope not applied: %+v", open)
	}
}

func TestRunSkipsChannelLoadWithoutImbalance(t *testing.T) {
	tenants := stubTenantSource{tenants: []string{"tenant-1"}}
	plans := stubPlanResolver{plans: map[string]ResolvedPlan{
		"tenant-1": {Types: monitoring.NewTypeSet(monitoring.TypeOffline)},
	}}
	plants := stubPlantSource{plants: map[string][]masterdata.Plant{
		"tenant-1": {offlinePlant("plant-1", "tenant-1")},
	}}
	channels := &stubChannelSource{}
	readings := stubReadingSource{}

	runner, _ := runnerFixture(t, tenants, plans, plants, channels, readings)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if channels.calls != 0 {
		t.Fatalf("channel source queried %d times without imbalance enabled", channels.calls)
	}
}

func TestRunReadingErrorCountsAsTenantError(t *testing.T) {
	tenants := stubTenantSource{tenants: []string{"tenant-1"}}
	plans := stubPlanResolver{plans: map[string]ResolvedPlan{
		"tenant-1": {Types: monitoring.NewTypeSet(monitoring.TypeOffline)},
	}}
	plants := stubPlantSource{plants: map[string][]masterdata.Plant{
		"tenant-1": {offlinePlant("plant-1", "tenant-1")},
	}}
	readings := stubReadingSource{err: map[string]error{"plant-1": errors.New("timeout")}}

	runner, _ := runnerFixture(t, tenants, plans, plants, nil, readings)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Errors != 1 || summary.TenantsProcessed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunCountsSkippedRepeats(t *testing.T) {
	tenants := stubTenantSource{tenants: []string{"tenant-1"}}
	plans := stubPlanResolver{plans: map[string]ResolvedPlan{
		"tenant-1": {Types: monitoring.NewTypeSet(monitoring.TypeOffline)},
	}}
	plants := stubPlantSource{plants: map[string][]masterdata.Plant{
		"tenant-1": {offlinePlant("plant-1", "tenant-1")},
	}}
	readings := stubReadingSource{}

	runner, _ := runnerFixture(t, tenants, plans, plants, nil, readings)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.AlertsOpened != 0 || summary.CandidatesSkipped != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
