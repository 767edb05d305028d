package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"precipwatch/internal/types"
)

// openMeteoBaseURL is the Open-Meteo forecast endpoint. The API is keyless.
const openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// openMeteoHourlyLayout is the timestamp format of Open-Meteo series entries:
// local wall-clock time with no zone designator.
const openMeteoHourlyLayout = "2006-01-02T15:04"

// cmToMM converts Open-Meteo's centimeter precipitation values to millimeters.
const cmToMM = 10.0

// OpenMeteoProvider integrates the Open-Meteo forecast API. Precipitation
// arrives as parallel keyed series in centimeters; timestamps are local
// wall-clock strings resolved against the configured zone.
type OpenMeteoProvider struct {
	baseURL string
	zone    *time.Location
}

// NewOpenMeteoProvider creates the Open-Meteo integration.
func NewOpenMeteoProvider(zone *time.Location) *OpenMeteoProvider {
	if zone == nil {
		zone = time.UTC
	}
	return &OpenMeteoProvider{
		baseURL: openMeteoBaseURL,
		zone:    zone,
	}
}

// Kind returns the provider identity.
func (p *OpenMeteoProvider) Kind() types.ProviderKind { return types.ProviderOpenMeteo }

// RequestURL builds the forecast query. No API key is required.
func (p *OpenMeteoProvider) RequestURL(lat, lon float64, _ types.SecretString) string {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%f", lat))
	q.Set("longitude", fmt.Sprintf("%f", lon))
	q.Set("hourly", "snowfall,snow_depth,rain")
	q.Set("daily", "snowfall_sum,rain_sum")
	q.Set("timezone", "auto")
	return p.baseURL + "?" + q.Encode()
}

// openMeteoResponse is the typed parse target for the forecast payload.
// Series are parallel arrays aligned by index with hourly.time.
type openMeteoResponse struct {
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Hourly    openMeteoHourly  `json:"hourly"`
	Daily     openMeteoDaily   `json:"daily"`
}

type openMeteoHourly struct {
	Time      []string  `json:"time"`
	Snowfall  []float64 `json:"snowfall"`
	SnowDepth []float64 `json:"snow_depth"`
	Rain      []float64 `json:"rain"`
}

type openMeteoDaily struct {
	Time        []string  `json:"time"`
	SnowfallSum []float64 `json:"snowfall_sum"`
	RainSum     []float64 `json:"rain_sum"`
}

// Normalize converts an Open-Meteo response into canonical ForecastData.
//
// Hourly entries are filtered to strictly future timestamps (time > now)
// before the 24-point cumulative sums and before the hourly series is built.
// Snow values are centimeters and convert ×10 to millimeters; the next-day
// aggregates come from daily.snowfall_sum/rain_sum[0] with the same
// conversion.
//
// The per-hour rain value in the canonical series is fixed at 0.0. That gap
// is observed current behavior and is preserved as-is pending a decision on
// the intended hourly rain source.
func (p *OpenMeteoProvider) Normalize(raw []byte, lat, lon float64, now time.Time) (*types.ForecastData, error) {
	var resp openMeteoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, parseError(p.Kind(), err)
	}

	var snowSum, rainSum float64
	counted := 0
	hourly := make([]types.HourlyPrecipitation, 0, len(resp.Hourly.Time))
	for i, tstr := range resp.Hourly.Time {
		ts, err := time.ParseInLocation(openMeteoHourlyLayout, tstr, p.zone)
		if err != nil {
			return nil, parseError(p.Kind(), fmt.Errorf("hourly timestamp %q: %w", tstr, err))
		}
		if !ts.After(now) {
			continue
		}

		snowMM := seriesAt(resp.Hourly.Snowfall, i) * cmToMM
		rainMM := seriesAt(resp.Hourly.Rain, i) * cmToMM

		if counted < dailyWindow {
			snowSum += snowMM
			rainSum += rainMM
			counted++
		}

		hourly = append(hourly, types.HourlyPrecipitation{
			Time:   ts,
			RainMM: 0.0, // hourly rain source not wired for this provider
			SnowMM: snowMM,
		})
	}

	var nextDaySnow, nextDayRain float64
	if len(resp.Daily.SnowfallSum) > 0 {
		nextDaySnow = nonNegative(resp.Daily.SnowfallSum[0]) * cmToMM
	}
	if len(resp.Daily.RainSum) > 0 {
		nextDayRain = nonNegative(resp.Daily.RainSum[0]) * cmToMM
	}

	var weeklySnow, weeklyRain float64
	for _, v := range resp.Daily.SnowfallSum {
		weeklySnow += nonNegative(v) * cmToMM
	}
	for _, v := range resp.Daily.RainSum {
		weeklyRain += nonNegative(v) * cmToMM
	}

	return &types.ForecastData{
		Latitude:  coordOrFallback(resp.Latitude, lat),
		Longitude: coordOrFallback(resp.Longitude, lon),
		Snow: types.Snow{
			DailyCumulativeMM:  snowSum,
			NextDayMM:          nextDaySnow,
			WeeklyCumulativeMM: weeklySnow,
		},
		Rain: types.Rain{
			DailyCumulativeMM:  rainSum,
			NextDayMM:          nextDayRain,
			WeeklyCumulativeMM: weeklyRain,
		},
		Hourly: hourly,
	}, nil
}

// seriesAt reads a parallel series value by index, resolving short or missing
// series to zero rather than panicking on ragged payloads.
func seriesAt(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	return nonNegative(series[i])
}
