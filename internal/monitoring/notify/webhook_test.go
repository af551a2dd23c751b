package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solarwatch/internal/monitoring/application"
	monitoring "solarwatch/internal/monitoring/domain"
)

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan application.AlertEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var event application.AlertEvent
		if err := json.Unmarshal(body, &event); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	if err != nil {
		t.Fatalf("new webhook notifier: %v", err)
	}

	alert := monitoring.Alert{
		ID:          "alert-1",
		TenantID:    "tenant-1",
		PlantID:     "plant-1",
		Type:        monitoring.TypeSuddenDrop,
		Severity:    monitoring.SeverityCritical,
		Title:       "Sudden power drop",
		Fingerprint: "sudden_drop:plant-1",
		IsOpen:      true,
		StartsAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	notifier.Notify(context.Background(), application.AlertEvent{Type: application.EventOpened, Alert: alert})

	select {
	case event := <-payloadCh:
		if event.Type != application.EventOpened {
			t.Fatalf("unexpected event type %q", event.Type)
		}
		if event.Alert.Fingerprint != "sudden_drop:plant-1" {
			t.Fatalf("unexpected fingerprint %q", event.Alert.Fingerprint)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestWebhookNotifierServerErrorDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	if err != nil {
		t.Fatalf("new webhook notifier: %v", err)
	}
	notifier.Notify(context.Background(), application.AlertEvent{Type: application.EventClosed})
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	if _, err := NewWebhookNotifier(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) Notify(_ context.Context, _ application.AlertEvent) { n.calls++ }

func TestMultiNotifierFansOut(t *testing.T) {
	first := &countingNotifier{}
	second := &countingNotifier{}
	multi := NewMultiNotifier(first, nil, second)
	multi.Notify(context.Background(), application.AlertEvent{Type: application.EventOpened})
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected both notifiers called once, got %d and %d", first.calls, second.calls)
	}
}
