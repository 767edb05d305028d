// Package notify delivers alert notifications to the configured outbound
// channel and records delivery metrics.
package notify

import (
	"context"
	"fmt"

	"precipwatch/internal/types"
)

// Notification is one rendered alert message ready for delivery.
type Notification struct {
	// Tag is the stable identity of this notification. Channels that support
	// replacement use it to collapse repeated triggers for the same alert
	// into one visible message.
	Tag   string `json:"tag"`
	Title string `json:"title"`
	Body  string `json:"body"`

	// Event carries the structured trigger for channels that want fields
	// rather than rendered text.
	Event types.AlertTriggerEvent `json:"event"`
}

// Notifier delivers notifications. Implementations must be safe for
// concurrent use by the check cycle workers.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Render builds the user-facing notification for a trigger event.
func Render(tag string, event types.AlertTriggerEvent) Notification {
	noun := "Rain"
	if event.Category == types.CategorySnow {
		noun = "Snow"
	}
	return Notification{
		Tag:   tag,
		Title: fmt.Sprintf("%s alert: %s", noun, event.CityName),
		Body: fmt.Sprintf("%.1f mm of %s forecast for %s (threshold %.1f mm)",
			event.ValueMM, string(event.Category), event.CityName, event.ThresholdMM),
		Event: event,
	}
}

// NopNotifier discards notifications. Used when no webhook URL is configured
// so the check cycle still runs end to end in local setups.
type NopNotifier struct {
	logger types.Logger
}

// NewNopNotifier creates a NopNotifier.
func NewNopNotifier(logger types.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

// Send logs the notification and drops it.
func (n *NopNotifier) Send(_ context.Context, notification Notification) error {
	n.logger.Info("notification dropped (no webhook configured)",
		"tag", notification.Tag,
		"title", notification.Title,
	)
	return nil
}

var _ Notifier = (*NopNotifier)(nil)
