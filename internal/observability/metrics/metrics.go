package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "solarwatch_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	tenantsProcessed  prometheus.Counter
	alertsOpened      prometheus.Counter
	alertsClosed      prometheus.Counter
	candidatesSkipped prometheus.Counter
	tenantErrors      prometheus.Counter

	alertEventsTotal *prometheus.CounterVec
)

// Init registers monitoring metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total monitoring runs by result",
			},
			[]string{"result"},
		)
		runDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_duration_seconds",
				Help:    "Monitoring run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		tenantsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "tenants_processed_total",
			Help: "Tenants processed across monitoring runs",
		})
		alertsOpened = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alerts_opened_total",
			Help: "Alert records opened",
		})
		alertsClosed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alerts_closed_total",
			Help: "Alert records auto-closed",
		})
		candidatesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "candidates_skipped_total",
			Help: "Candidates skipped because an open record already existed",
		})
		tenantErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "tenant_errors_total",
			Help: "Per-tenant failures isolated during monitoring runs",
		})
		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Alert lifecycle events by type",
			},
			[]string{"type"},
		)

		prometheus.MustRegister(
			runsTotal,
			runDuration,
			tenantsProcessed,
			alertsOpened,
			alertsClosed,
			candidatesSkipped,
			tenantErrors,
			alertEventsTotal,
		)
	})
}

// ObserveRun records one run's outcome and duration.
func ObserveRun(result string, duration time.Duration) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(result).Inc()
	runDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// AddRunCounts accumulates the summary counters of one run.
func AddRunCounts(tenants, opened, closed, skipped, errors int) {
	if tenantsProcessed == nil {
		return
	}
	tenantsProcessed.Add(float64(tenants))
	alertsOpened.Add(float64(opened))
	alertsClosed.Add(float64(closed))
	candidatesSkipped.Add(float64(skipped))
	tenantErrors.Add(float64(errors))
}

// IncAlertEvent counts one alert lifecycle event.
func IncAlertEvent(eventType string) {
	if alertEventsTotal == nil {
		return
	}
	alertEventsTotal.WithLabelValues(eventType).Inc()
}
