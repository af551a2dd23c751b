package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"solarwatch/internal/auth"
	billingrepo "solarwatch/internal/billing/infrastructure/postgres"
	masterdatarepo "solarwatch/internal/masterdata/infrastructure/postgres"
	billingadapter "solarwatch/internal/monitoring/adapters/billing"
	"solarwatch/internal/monitoring/application"
	monitoringrepo "solarwatch/internal/monitoring/infrastructure/postgres"
	monitoringhttp "solarwatch/internal/monitoring/interfaces/http"
	"solarwatch/internal/monitoring/notify"
	"solarwatch/internal/observability/metrics"
	telemetryrepo "solarwatch/internal/telemetry/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	monitoringCfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatalf("monitoring config error: %v", err)
	}

	plantRepo := masterdatarepo.NewPlantRepository(db)
	channelRepo := masterdatarepo.NewChannelRepository(db)
	readingQuery := telemetryrepo.NewReadingQuery(db)
	subscriptionRepo := billingrepo.NewSubscriptionRepository(db)
	planRepo := billingrepo.NewPlanRepository(db)
	alertRepo := monitoringrepo.NewAlertRepository(db)
	tenantSource := monitoringrepo.NewTenantSource(db)

	planResolver, err := billingadapter.NewPlanResolver(subscriptionRepo, planRepo)
	if err != nil {
		logger.Fatalf("plan resolver error: %v", err)
	}

	broker := monitoringhttp.NewSSEBroker()
	notifiers := []application.AlertNotifier{broker}
	if cfg.AlertWebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.AlertWebhookURL, notify.WithLogger(logger))
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		notifiers = append(notifiers, webhook)
	}

	lifecycle, err := application.NewLifecycle(alertRepo, application.WithNotifier(notify.NewMultiNotifier(notifiers...)))
	if err != nil {
		logger.Fatalf("lifecycle error: %v", err)
	}

	runner, err := application.NewRunner(
		tenantSource,
		planResolver,
		plantRepo,
		channelRepo,
		readingQuery,
		lifecycle,
		logger,
		application.WithWorkers(monitoringCfg.Workers),
		application.WithReadTimeout(monitoringCfg.ReadTimeout()),
		application.WithThresholds(monitoringCfg.Thresholds()),
	)
	if err != nil {
		logger.Fatalf("runner error: %v", err)
	}

	scheduler := application.NewScheduler(runner, monitoringCfg.Interval(), logger)
	go scheduler.Start(context.Background())

	handler, err := monitoringhttp.NewHandler(runner, alertRepo, logger)
	if err != nil {
		logger.Fatalf("monitoring handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/monitoring/run", handler)
	mux.Handle("/api/v1/alerts", handler)
	mux.Handle("/api/v1/alerts/report", handler)
	mux.Handle("/api/v1/alerts/stream", monitoringhttp.NewStreamHandler(broker))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL     string
	HTTPAddr        string
	AlertWebhookURL string
	JWTSecret       string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		AlertWebhookURL: getenvDefault("ALERT_WEBHOOK_URL", ""),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
