package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/security"
)

// WebhookChannel posts notifications as JSON. Server errors and transport
// failures are retried; 4xx responses are not.
type WebhookChannel struct {
	url    string
	client *http.Client
	retry  resilience.RetryPolicy
}

// NewWebhookChannel creates a webhook channel posting to url.
func NewWebhookChannel(url string, timeout time.Duration, retry resilience.RetryPolicy) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: timeout},
		retry:  retry,
	}
}

func (w *WebhookChannel) Name() string {
	return "webhook"
}

type webhookPayload struct {
	CycleID   string `json:"cycle_id"`
	Ticker    string `json:"ticker"`
	Priority  string `json:"priority"`
	Kind      string `json:"kind"`
	Action    string `json:"action"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Send posts n to the webhook URL.
func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookPayload{
		CycleID:   n.CycleID,
		Ticker:    n.Ticker,
		Priority:  string(n.Priority),
		Kind:      string(n.Kind),
		Action:    string(n.Action),
		Title:     n.Title,
		Message:   n.Message,
		Timestamp: n.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return w.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return resilience.Permanent(fmt.Errorf("creating webhook request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "portfolio-monitor")

		resp, err := w.client.Do(req)
		if err != nil {
			// url.Error embeds the full URL, which may carry a token.
			var uerr *url.Error
			if errors.As(err, &uerr) {
				err = uerr.Err
			}
			return fmt.Errorf("sending webhook to %s: %w", security.MaskURL(w.url), err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		default:
			return resilience.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
	})
}
