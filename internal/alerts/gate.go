package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"precipwatch/internal/types"
)

// HistoryAppender records surfaced notifications. Satisfied by the history
// repository.
type HistoryAppender interface {
	Append(ctx context.Context, entry *types.AlertHistory) error
}

// Decision is the gate's verdict for one triggered alert.
type Decision struct {
	// Notify is true when the notification should be delivered.
	Notify bool
	// Tag is the stable notification identity. Delivering with the same tag
	// replaces any prior notification for this alert instead of stacking a
	// duplicate.
	Tag string
	// Reason explains a suppressed decision for logging.
	Reason string
}

// NotificationTag derives the stable identity of an alert's notification from
// the city, alert, and category. The same alert always maps to the same tag
// across cycles and process restarts.
func NotificationTag(cityID, alertID string, category types.Category) string {
	return fmt.Sprintf("precip-%s-%s-%s", category, cityID, alertID)
}

// Gate applies snooze suppression to triggered alerts and records the
// surfaced ones into history. Suppressed triggers leave no history row; the
// history table records what the user actually saw.
type Gate struct {
	history HistoryAppender
	clock   types.Clock
	logger  types.Logger
}

// NewGate creates a Gate.
func NewGate(history HistoryAppender, clock types.Clock, logger types.Logger) *Gate {
	return &Gate{
		history: history,
		clock:   clock,
		logger:  logger,
	}
}

// Admit decides whether a triggered alert may notify. When admitted, the
// trigger is appended to history before the decision is returned; a history
// write failure is logged and does not block the notification.
func (g *Gate) Admit(ctx context.Context, alert *types.AlertConfig, event types.AlertTriggerEvent) Decision {
	tag := NotificationTag(alert.CityID, alert.ID, alert.Category)
	now := g.clock.Now()

	if alert.IsSnoozed(now) {
		g.logger.Info("alert trigger suppressed by snooze",
			"alert_id", alert.ID,
			"city_id", alert.CityID,
			"category", string(alert.Category),
			"snoozed_until", alert.SnoozedUntil,
		)
		return Decision{Notify: false, Tag: tag, Reason: "snoozed"}
	}

	entry := &types.AlertHistory{
		ID:             uuid.NewString(),
		AlertID:        alert.ID,
		TriggeredAt:    now,
		WeatherValueMM: event.ValueMM,
		ThresholdMM:    event.ThresholdMM,
		CityName:       event.CityName,
		Category:       alert.Category,
	}
	if err := g.history.Append(ctx, entry); err != nil {
		g.logger.Error("failed to record alert history",
			"alert_id", alert.ID,
			"error", err,
		)
	}

	return Decision{Notify: true, Tag: tag}
}
