package alerts

import (
	"time"

	"precipwatch/internal/types"
)

// snoozeWakeHour is the local wall-clock hour the "until tomorrow" option
// wakes the alert back up.
const snoozeWakeHour = 8

// SnoozeUntil resolves a snooze option into the absolute instant the alert
// wakes up. The zone governs the "until tomorrow" calculation; the fixed
// options are plain duration offsets from now.
func SnoozeUntil(option types.SnoozeOption, now time.Time, zone *time.Location) (time.Time, error) {
	if zone == nil {
		zone = time.UTC
	}

	switch option {
	case types.SnoozeOneHour:
		return now.Add(time.Hour), nil
	case types.SnoozeThreeHours:
		return now.Add(3 * time.Hour), nil
	case types.SnoozeOneWeek:
		return now.Add(7 * 24 * time.Hour), nil
	case types.SnoozeUntilTomorrow:
		local := now.In(zone)
		tomorrow := local.AddDate(0, 0, 1)
		return time.Date(
			tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
			snoozeWakeHour, 0, 0, 0, zone,
		), nil
	default:
		return time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationSnoozeOption,
			"unknown snooze option",
			nil,
			map[string]any{"option": string(option)},
		)
	}
}
