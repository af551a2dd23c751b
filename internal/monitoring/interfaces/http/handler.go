package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"solarwatch/internal/auth"
	"solarwatch/internal/monitoring/application"
	monitoring "solarwatch/internal/monitoring/domain"
	"solarwatch/internal/monitoring/interfaces"
)

// AlertQuery reads alert records for the API surface.
type AlertQuery interface {
	ListByTenant(ctx context.Context, tenantID, plantID string, openOnly bool, limit int) ([]monitoring.Alert, error)
}

// Handler serves the operational monitoring API: run trigger, alert
// listing and report export.
type Handler struct {
	runner *application.Runner
	alerts AlertQuery
	logger *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(runner *application.Runner, alerts AlertQuery, logger *log.Logger) (*Handler, error) {
	if runner == nil {
		return nil, errors.New("monitoring handler: nil runner")
	}
	if alerts == nil {
		return nil, errors.New("monitoring handler: nil alert query")
	}
	return &Handler{runner: runner, alerts: alerts, logger: logger}, nil
}

// ServeHTTP routes the monitoring API.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/monitoring/run" && r.Method == http.MethodPost:
		h.handleRun(w, r)
	case r.URL.Path == "/api/v1/alerts" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/alerts/report" && r.Method == http.MethodGet:
		h.handleReport(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleRun triggers one pass. Per-tenant errors are reported inside
// the summary; only a fatal failure yields a non-200.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("monitoring run failed: %v", err)
		}
		http.Error(w, "monitoring run failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	openOnly := r.URL.Query().Get("open") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	alerts, err := h.alerts.ListByTenant(r.Context(), tenantID, r.URL.Query().Get("plant_id"), openOnly, limit)
	if err != nil {
		http.Error(w, "list alerts failed", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []monitoring.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	alerts, err := h.alerts.ListByTenant(r.Context(), tenantID, r.URL.Query().Get("plant_id"), false, 500)
	if err != nil {
		http.Error(w, "list alerts failed", http.StatusInternalServerError)
		return
	}

	switch r.URL.Query().Get("format") {
	case "pdf":
		data, err := interfaces.BuildAlertReportPDF(tenantID, alerts)
		if err != nil {
			http.Error(w, "build report failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.pdf"`)
		_, _ = w.Write(data)
	case "xlsx", "":
		data, err := interfaces.BuildAlertReportXLSX(tenantID, alerts)
		if err != nil {
			http.Error(w, "build report failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.xlsx"`)
		_, _ = w.Write(data)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
