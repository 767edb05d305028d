package types

// Category identifies the precipitation kind an alert watches.
type Category string

const (
	CategorySnow Category = "snow"
	CategoryRain Category = "rain"
)

// Valid reports whether the category is one of the supported values.
func (c Category) Valid() bool {
	return c == CategorySnow || c == CategoryRain
}

// ProviderKind identifies one of the supported upstream weather APIs.
type ProviderKind string

const (
	ProviderOpenWeather ProviderKind = "openweather"
	ProviderTomorrowIO  ProviderKind = "tomorrowio"
	ProviderOpenMeteo   ProviderKind = "openmeteo"
	ProviderWeatherAPI  ProviderKind = "weatherapi"
)

// AllProviders lists every supported provider kind, in preference order.
var AllProviders = []ProviderKind{
	ProviderOpenWeather,
	ProviderTomorrowIO,
	ProviderOpenMeteo,
	ProviderWeatherAPI,
}

// Valid reports whether the provider kind is one of the supported values.
func (p ProviderKind) Valid() bool {
	for _, k := range AllProviders {
		if p == k {
			return true
		}
	}
	return false
}

// SnoozeOption enumerates the snooze durations a user may pick for an alert.
type SnoozeOption string

const (
	SnoozeOneHour    SnoozeOption = "1h"
	SnoozeThreeHours SnoozeOption = "3h"
	// SnoozeUntilTomorrow suppresses until 08:00 local time on the next
	// calendar day, regardless of the current time of day.
	SnoozeUntilTomorrow SnoozeOption = "until_tomorrow"
	SnoozeOneWeek       SnoozeOption = "1w"
)

// Valid reports whether the snooze option is one of the supported values.
func (o SnoozeOption) Valid() bool {
	switch o {
	case SnoozeOneHour, SnoozeThreeHours, SnoozeUntilTomorrow, SnoozeOneWeek:
		return true
	}
	return false
}

// MetricNamespace is the CloudWatch namespace for all service metrics.
const MetricNamespace = "PrecipWatch"

// Metric names and dimensions emitted by the check cycle and notifier.
const (
	MetricAlertTriggered     = "AlertTriggered"
	MetricNotificationResult = "NotificationResult"
	MetricCheckCycleDuration = "CheckCycleDuration"

	DimCategory = "Category"
	DimProvider = "Provider"
	DimResult   = "Result"
)
