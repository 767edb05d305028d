package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"precipwatch/internal/config"
	"precipwatch/internal/types"
)

// maxResponseBodyRead limits how much of an error response body is read for
// diagnostics.
const maxResponseBodyRead = 4096

// WebhookNotifier delivers notifications as JSON POSTs to a configured
// endpoint. The payload is Slack-compatible ("text") with the structured
// event alongside for generic receivers.
type WebhookNotifier struct {
	cfg        config.WebhookConfig
	httpClient *http.Client
	logger     types.Logger
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig, logger types.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.DefaultTimeout},
		logger:     logger,
	}
}

// NewWebhookNotifierWithClient creates a WebhookNotifier with a
// caller-supplied HTTP client. Exists for testing.
func NewWebhookNotifierWithClient(cfg config.WebhookConfig, client *http.Client, logger types.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		cfg:        cfg,
		httpClient: client,
		logger:     logger,
	}
}

// webhookPayload is the outbound JSON body.
type webhookPayload struct {
	Text  string                  `json:"text"`
	Tag   string                  `json:"tag"`
	Event types.AlertTriggerEvent `json:"event"`
}

// Send posts the notification to the configured webhook URL. Any non-2xx
// response is an error; retry semantics belong to the next check cycle, not
// the delivery path.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	payload := webhookPayload{
		Text:  fmt.Sprintf("*%s*\n%s", n.Title, n.Body),
		Tag:   n.Tag,
		Event: n.Event,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.cfg.UserAgent)
	req.Header.Set("X-Notification-Tag", n.Tag)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamTransport, "webhook delivery failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamHTTP,
			fmt.Sprintf("webhook endpoint returned %d", resp.StatusCode),
			nil,
			map[string]any{
				"status_code": resp.StatusCode,
				"body":        string(snippet),
			},
		)
	}

	w.logger.Debug("notification delivered",
		"tag", n.Tag,
		"status_code", resp.StatusCode,
	)
	return nil
}
