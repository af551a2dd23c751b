package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"solarwatch/internal/monitoring/application"
)

// WebhookNotifier posts alert lifecycle events to an HTTP endpoint.
// Delivery is best-effort: failures are logged and never bubble into
// the monitoring run.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// WithLogger assigns a logger for delivery failures.
func WithLogger(logger *log.Logger) WebhookOption {
	return func(n *WebhookNotifier) {
		n.logger = logger
	}
}

// NewWebhookNotifier constructs a webhook notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	notifier := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

// Notify posts the event as JSON.
func (n *WebhookNotifier) Notify(ctx context.Context, event application.AlertEvent) {
	if n == nil || n.url == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logf("alert webhook encode error: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logf("alert webhook request error: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logf("alert webhook send error: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logf("alert webhook status %d for %s", resp.StatusCode, event.Alert.Fingerprint)
	}
}

func (n *WebhookNotifier) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}
