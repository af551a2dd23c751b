package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	masterdata "solarwatch/internal/masterdata/domain"
	monitoring "solarwatch/internal/monitoring/domain"
	"solarwatch/internal/observability/metrics"
	telemetry "solarwatch/internal/telemetry/domain"
)

// ResolvedPlan is the immutable per-tenant monitoring entitlement for
// one pass: enabled alert types and the plant scope. An empty PlantIDs
// slice means every plant of the tenant is in scope.
type ResolvedPlan struct {
	Types    monitoring.TypeSet
	PlantIDs []string
}

// PlanResolver resolves a tenant's monitoring entitlement.
type PlanResolver interface {
	Resolve(ctx context.Context, tenantID string) (ResolvedPlan, error)
}

// TenantSource enumerates tenants with an active monitoring integration.
type TenantSource interface {
	ListActive(ctx context.Context) ([]string, error)
}

// PlantSource loads plant metadata.
type PlantSource interface {
	ListByTenant(ctx context.Context, tenantID string) ([]masterdata.Plant, error)
}

// ChannelSource loads channel topology.
type ChannelSource interface {
	ListActiveByPlant(ctx context.Context, plantID string) ([]masterdata.Channel, error)
}

// ReadingSource loads a bounded recent reading window.
type ReadingSource interface {
	WindowByPlant(ctx context.Context, tenantID, plantID string, from, to time.Time) ([]telemetry.Reading, error)
}

// Summary is the structured result of one monitoring run.
type Summary struct {
	TenantsProcessed  int `json:"tenants_processed"`
	AlertsOpened      int `json:"alerts_opened"`
	AlertsClosed      int `json:"alerts_closed"`
	CandidatesSkipped int `json:"candidates_skipped"`
	Errors            int `json:"errors"`
}

// Runner is the scheduled entry point: it iterates every tenant with an
// active monitoring integration, evaluates the enabled rules per plant
// and reconciles the resulting candidates. Per-tenant failures are
// counted and logged but never abort the run.
type Runner struct {
	tenants     TenantSource
	plans       PlanResolver
	plants      PlantSource
	channels    ChannelSource
	readings    ReadingSource
	lifecycle   *Lifecycle
	thresholds  monitoring.Thresholds
	workers     int
	readTimeout time.Duration
	clock       Clock
	logger      *log.Logger
}

// RunnerOption customizes the runner.
type RunnerOption func(*Runner)

// WithWorkers bounds tenant parallelism.
func WithWorkers(workers int) RunnerOption {
	return func(r *Runner) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

// WithReadTimeout bounds each telemetry fetch.
func WithReadTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.readTimeout = timeout
		}
	}
}

// WithThresholds overrides the default rule thresholds.
func WithThresholds(thresholds monitoring.Thresholds) RunnerOption {
	return func(r *Runner) {
		r.thresholds = thresholds
	}
}

// WithRunnerClock assigns a clock.
func WithRunnerClock(clock Clock) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRunner constructs a runner.
func NewRunner(tenants TenantSource, plans PlanResolver, plants PlantSource, channels ChannelSource, readings ReadingSource, lifecycle *Lifecycle, logger *log.Logger, opts ...RunnerOption) (*Runner, error) {
	if tenants == nil || plans == nil || plants == nil || readings == nil {
		return nil, errors.New("runner: nil source")
	}
	if lifecycle == nil {
		return nil, errors.New("runner: nil lifecycle")
	}
	runner := &Runner{
		tenants:     tenants,
		plans:       plans,
		plants:      plants,
		channels:    channels,
		readings:    readings,
		lifecycle:   lifecycle,
		thresholds:  monitoring.DefaultThresholds(),
		workers:     4,
		readTimeout: 10 * time.Second,
		clock:       systemClock{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Run executes one monitoring pass across all tenants. It returns an
// error only on fatal failure (tenant enumeration); per-tenant errors
// are reported in the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r == nil {
		return Summary{}, errors.New("runner: nil")
	}
	runID := uuid.NewString()
	started := r.clock.Now()

	tenantIDs, err := r.tenants.ListActive(ctx)
	if err != nil {
		metrics.ObserveRun(metrics.ResultError, r.clock.Now().Sub(started))
		return Summary{}, fmt.Errorf("runner: list tenants: %w", err)
	}
	r.logf("monitoring run start: run=%s tenants=%d", runID, len(tenantIDs))

	var processed, opened, closed, skipped, failed atomic.Int64

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tenantID := range jobs {
				result, err := r.processTenantSafe(ctx, tenantID)
				if err != nil {
					failed.Add(1)
					r.logf("monitoring tenant error: run=%s tenant=%s err=%v", runID, tenantID, err)
					continue
				}
				processed.Add(1)
				opened.Add(int64(result.Opened))
				closed.Add(int64(result.Closed))
				skipped.Add(int64(result.Skipped))
			}
		}()
	}
	for _, tenantID := range tenantIDs {
		if tenantID == "" {
			continue
		}
		jobs <- tenantID
	}
	close(jobs)
	wg.Wait()

	summary := Summary{
		TenantsProcessed:  int(processed.Load()),
		AlertsOpened:      int(opened.Load()),
		AlertsClosed:      int(closed.Load()),
		CandidatesSkipped: int(skipped.Load()),
		Errors:            int(failed.Load()),
	}
	duration := r.clock.Now().Sub(started)
	metrics.ObserveRun(metrics.ResultSuccess, duration)
	metrics.AddRunCounts(summary.TenantsProcessed, summary.AlertsOpened, summary.AlertsClosed, summary.CandidatesSkipped, summary.Errors)
	r.logf("monitoring run done: run=%s tenants=%d opened=%d closed=%d skipped=%d errors=%d duration=%s",
		runID, summary.TenantsProcessed, summary.AlertsOpened, summary.AlertsClosed, summary.CandidatesSkipped, summary.Errors, duration.Round(time.Millisecond))
	return summary, nil
}

// processTenantSafe runs one tenant's pass and converts panics into
// per-tenant errors so one tenant can never take down the run.
func (r *Runner) processTenantSafe(ctx context.Context, tenantID string) (result ReconcileResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("runner: tenant %s panic: %v", tenantID, recovered)
		}
	}()
	return r.processTenant(ctx, tenantID)
}

func (r *Runner) processTenant(ctx context.Context, tenantID string) (ReconcileResult, error) {
	plan, err := r.plans.Resolve(ctx, tenantID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("resolve plan: %w", err)
	}

	plants, err := r.plants.ListByTenant(ctx, tenantID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list plants: %w", err)
	}
	if len(plan.PlantIDs) > 0 {
		scope := make(map[string]struct{}, len(plan.PlantIDs))
		for _, id := range plan.PlantIDs {
			scope[id] = struct{}{}
		}
		filtered := plants[:0]
		for _, plant := range plants {
			if _, ok := scope[plant.ID]; ok {
				filtered = append(filtered, plant)
			}
		}
		plants = filtered
	}

	now := r.clock.Now().UTC()
	var candidates []monitoring.Candidate
	for _, plant := range plants {
		var channels []masterdata.Channel
		if plan.Types.Has(monitoring.TypeImbalance) && r.channels != nil {
			channels, err = r.channels.ListActiveByPlant(ctx, plant.ID)
			if err != nil {
				return ReconcileResult{}, fmt.Errorf("list channels for %s: %w", plant.ID, err)
			}
		}

		readCtx, cancel := context.WithTimeout(ctx, r.readTimeout)
		readings, err := r.readings.WindowByPlant(readCtx, tenantID, plant.ID, now.Add(-r.thresholds.Lookback), now)
		cancel()
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("load readings for %s: %w", plant.ID, err)
		}

		candidates = append(candidates, monitoring.Evaluate(plant, channels, readings, plan.Types, r.thresholds, now)...)
	}

	// The candidate set is complete for this tenant; only now may
	// reconciliation close anything.
	return r.lifecycle.Reconcile(ctx, tenantID, candidates)
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
