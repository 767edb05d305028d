// Package alerts holds the threshold evaluation and notification gating
// logic. Evaluation is pure math over canonical forecast values; the gate
// layers snooze suppression and history recording on top of it.
package alerts

import (
	"precipwatch/internal/types"
)

// ValueSource names which forecast aggregate an evaluation used.
type ValueSource string

const (
	SourceCumulative ValueSource = "cumulative"
	SourceNextDay    ValueSource = "next_day"
)

// Evaluation is the outcome of comparing one alert against one forecast.
type Evaluation struct {
	ValueMM   float64
	Source    ValueSource
	Triggered bool
}

// Evaluate compares an alert threshold against the canonical forecast.
//
// Value selection: the daily cumulative sum when it is strictly positive,
// otherwise the next-day aggregate. A zero cumulative with a positive
// next-day value therefore still evaluates; both zero evaluates 0 against
// the threshold and never triggers.
//
// The comparison is strict: value > threshold. A value exactly equal to the
// threshold does not trigger.
func Evaluate(alert *types.AlertConfig, forecast *types.ForecastData) Evaluation {
	value := forecast.CumulativeFor(alert.Category)
	source := SourceCumulative
	if value <= 0 {
		value = forecast.NextDayFor(alert.Category)
		source = SourceNextDay
	}

	return Evaluation{
		ValueMM:   value,
		Source:    source,
		Triggered: value > float64(alert.ThresholdMM),
	}
}

// NewTriggerEvent builds the trigger event for an alert that evaluated above
// its threshold. The city name is taken from the hydrated City when present.
func NewTriggerEvent(alert *types.AlertConfig, eval Evaluation) types.AlertTriggerEvent {
	cityName := ""
	if alert.City != nil {
		cityName = alert.City.Name
	}
	return types.AlertTriggerEvent{
		AlertID:     alert.ID,
		CityID:      alert.CityID,
		CityName:    cityName,
		Category:    alert.Category,
		ValueMM:     eval.ValueMM,
		ThresholdMM: float64(alert.ThresholdMM),
	}
}
