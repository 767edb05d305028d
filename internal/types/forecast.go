package types

import "time"

// HourlyLayout is the wire format for hourly precipitation timestamps:
// ISO-8601 with a numeric zone offset (e.g. "2026-01-07T14:00:00+01:00").
const HourlyLayout = "2006-01-02T15:04:05Z07:00"

// Snow holds normalized snow volumes for one forecast snapshot, in millimeters.
type Snow struct {
	// DailyCumulativeMM is the rolling sum over the next 24 hourly points
	// starting at "now", not a calendar day. Provider-specific windowing
	// quirks are documented on each normalizer.
	DailyCumulativeMM float64 `json:"daily_cumulative_mm"`
	// NextDayMM is the provider's own "tomorrow" aggregate when available,
	// else derived from the hourly series.
	NextDayMM          float64 `json:"next_day_mm"`
	WeeklyCumulativeMM float64 `json:"weekly_cumulative_mm"`
}

// Rain holds normalized rain volumes for one forecast snapshot, in millimeters.
type Rain struct {
	DailyCumulativeMM  float64 `json:"daily_cumulative_mm"`
	NextDayMM          float64 `json:"next_day_mm"`
	WeeklyCumulativeMM float64 `json:"weekly_cumulative_mm"`
}

// HourlyPrecipitation is one point of the normalized hourly series.
// Timestamps carry the local zone offset and the series is ascending by time.
type HourlyPrecipitation struct {
	Time   time.Time `json:"time"`
	RainMM float64   `json:"rain_mm"`
	SnowMM float64   `json:"snow_mm"`
}

// ForecastData is the canonical forecast representation every provider
// normalizer produces and all alert logic consumes. All volumes are
// non-negative millimeters; missing provider fields resolve to zero at the
// normalizer boundary and never leak into arithmetic.
type ForecastData struct {
	Latitude  float64               `json:"latitude"`
	Longitude float64               `json:"longitude"`
	Snow      Snow                  `json:"snow"`
	Rain      Rain                  `json:"rain"`
	Hourly    []HourlyPrecipitation `json:"hourly_precipitation"`
}

// CumulativeFor returns the rolling 24h cumulative volume for the category.
func (f *ForecastData) CumulativeFor(c Category) float64 {
	if c == CategorySnow {
		return f.Snow.DailyCumulativeMM
	}
	return f.Rain.DailyCumulativeMM
}

// NextDayFor returns the next-day aggregate volume for the category.
func (f *ForecastData) NextDayFor(c Category) float64 {
	if c == CategorySnow {
		return f.Snow.NextDayMM
	}
	return f.Rain.NextDayMM
}
