package types

import (
	"time"
)

// City is a user-registered location that alerts are attached to.
type City struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate implements the Validator interface for City.
func (c *City) Validate() error {
	if c.Name == "" {
		return NewAppError(ErrCodeValidationMissingField, "city name is required", nil)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return NewAppError(ErrCodeValidationInvalidLat, "latitude must be between -90 and 90", nil)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return NewAppError(ErrCodeValidationInvalidLon, "longitude must be between -180 and 180", nil)
	}
	return nil
}

// AlertConfig is the user-owned threshold configuration. A config belongs to
// exactly one city and one category; thresholds are always expressed in
// millimeters regardless of the provider's native unit.
type AlertConfig struct {
	ID          string     `json:"id" db:"id"`
	CityID      string     `json:"city_id" db:"city_id"`
	Category    Category   `json:"category" db:"category"`
	ThresholdMM float32    `json:"threshold_mm" db:"threshold_mm"`
	// SnoozedUntil suppresses notifications for this alert until the given
	// instant. Nil means not snoozed.
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty" db:"snoozed_until"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// Hydrated from the cities table on load; not a column of alert_configs.
	City *City `json:"city,omitempty" db:"-"`
}

// Validate implements the Validator interface for AlertConfig.
func (a *AlertConfig) Validate() error {
	if a.CityID == "" {
		return NewAppError(ErrCodeValidationMissingField, "city_id is required", nil)
	}
	if !a.Category.Valid() {
		return NewAppError(ErrCodeValidationCategory, "category must be snow or rain", nil)
	}
	if a.ThresholdMM <= 0 {
		return NewAppError(ErrCodeValidationThreshold, "threshold_mm must be strictly positive", nil)
	}
	return nil
}

// IsSnoozed reports whether the alert is snoozed at the given instant.
func (a *AlertConfig) IsSnoozed(now time.Time) bool {
	return a.SnoozedUntil != nil && a.SnoozedUntil.After(now)
}

// AlertHistory is an append-only record of one surfaced notification.
// Rows are never mutated; they are removed only by bulk retention.
type AlertHistory struct {
	ID             string    `json:"id" db:"id"`
	AlertID        string    `json:"alert_id" db:"alert_id"`
	TriggeredAt    time.Time `json:"triggered_at" db:"triggered_at"`
	WeatherValueMM float64   `json:"weather_value_mm" db:"weather_value_mm"`
	ThresholdMM    float64   `json:"threshold_mm" db:"threshold_mm"`
	CityName       string    `json:"city_name" db:"city_name"`
	Category       Category  `json:"category" db:"category"`
}

// AlertTriggerEvent is emitted by the evaluator when a forecast value exceeds
// a configured threshold. Non-triggering evaluations emit nothing; there is no
// "cleared" event.
type AlertTriggerEvent struct {
	AlertID     string   `json:"alert_id"`
	CityID      string   `json:"city_id"`
	CityName    string   `json:"city_name"`
	Category    Category `json:"category"`
	ValueMM     float64  `json:"value_mm"`
	ThresholdMM float64  `json:"threshold_mm"`
}

// Validator is implemented by entities to self-validate.
type Validator interface {
	Validate() error
}
