package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"precipwatch/internal/types"
)

// tomorrowIOBaseURL is the Tomorrow.io forecast endpoint.
const tomorrowIOBaseURL = "https://api.tomorrow.io/v4/weather/forecast"

// TomorrowIOProvider integrates the Tomorrow.io forecast API. Values arrive
// keyed by name under timelines.hourly/timelines.daily with UTC timestamps.
type TomorrowIOProvider struct {
	baseURL string
	zone    *time.Location
}

// NewTomorrowIOProvider creates the Tomorrow.io integration. Hourly UTC
// timestamps are converted into the given zone's offset.
func NewTomorrowIOProvider(zone *time.Location) *TomorrowIOProvider {
	if zone == nil {
		zone = time.UTC
	}
	return &TomorrowIOProvider{
		baseURL: tomorrowIOBaseURL,
		zone:    zone,
	}
}

// Kind returns the provider identity.
func (p *TomorrowIOProvider) Kind() types.ProviderKind { return types.ProviderTomorrowIO }

// RequestURL builds the forecast query with hourly and daily timesteps.
func (p *TomorrowIOProvider) RequestURL(lat, lon float64, key types.SecretString) string {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("timesteps", "1h,1d")
	q.Set("units", "metric")
	q.Set("apikey", key.Unmask())
	return p.baseURL + "?" + q.Encode()
}

// tomorrowIOResponse is the typed parse target for the forecast payload.
type tomorrowIOResponse struct {
	Timelines tomorrowIOTimelines `json:"timelines"`
	Location  tomorrowIOLocation  `json:"location"`
}

type tomorrowIOTimelines struct {
	Hourly []tomorrowIOEntry `json:"hourly"`
	Daily  []tomorrowIOEntry `json:"daily"`
}

type tomorrowIOEntry struct {
	Time   string            `json:"time"`
	Values tomorrowIOValues  `json:"values"`
}

// tomorrowIOValues picks the accumulation fields out of the keyed value map.
// Other keyed values in the payload (snowDepth, temperature, ...) do not feed
// any canonical volume and are left undecoded.
type tomorrowIOValues struct {
	RainAccumulation *float64 `json:"rainAccumulation"`
	SnowAccumulation *float64 `json:"snowAccumulation"`
}

type tomorrowIOLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Normalize converts a Tomorrow.io response into canonical ForecastData.
// Both daily cumulative sums are windowed to the first 24 hourly entries.
// Every hourly entry is mapped into the canonical series with its UTC
// timestamp converted to the configured zone offset.
func (p *TomorrowIOProvider) Normalize(raw []byte, lat, lon float64, _ time.Time) (*types.ForecastData, error) {
	var resp tomorrowIOResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, parseError(p.Kind(), err)
	}

	var snowSum, rainSum float64
	hourly := make([]types.HourlyPrecipitation, 0, len(resp.Timelines.Hourly))
	for i, entry := range resp.Timelines.Hourly {
		ts, err := time.Parse(time.RFC3339, entry.Time)
		if err != nil {
			return nil, parseError(p.Kind(), fmt.Errorf("hourly timestamp %q: %w", entry.Time, err))
		}

		snowMM := derefVolume(entry.Values.SnowAccumulation)
		rainMM := derefVolume(entry.Values.RainAccumulation)

		if i < dailyWindow {
			snowSum += snowMM
			rainSum += rainMM
		}

		hourly = append(hourly, types.HourlyPrecipitation{
			Time:   ts.In(p.zone),
			RainMM: rainMM,
			SnowMM: snowMM,
		})
	}

	var nextDaySnow, nextDayRain float64
	if len(resp.Timelines.Daily) > 0 {
		nextDaySnow = derefVolume(resp.Timelines.Daily[0].Values.SnowAccumulation)
		nextDayRain = derefVolume(resp.Timelines.Daily[0].Values.RainAccumulation)
	}

	var weeklySnow, weeklyRain float64
	for _, entry := range resp.Timelines.Daily {
		weeklySnow += derefVolume(entry.Values.SnowAccumulation)
		weeklyRain += derefVolume(entry.Values.RainAccumulation)
	}

	return &types.ForecastData{
		Latitude:  coordOrFallback(resp.Location.Lat, lat),
		Longitude: coordOrFallback(resp.Location.Lon, lon),
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
