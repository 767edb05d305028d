package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"precipwatch/internal/types"
)

// openWeatherBaseURL is the One Call 3.0 endpoint.
const openWeatherBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

// OpenWeatherProvider integrates the OpenWeather One Call API. The response
// carries ~48 hourly points and ~8 daily points; precipitation volumes arrive
// as nullable nested objects keyed by "1h".
type OpenWeatherProvider struct {
	baseURL string
	zone    *time.Location
}

// NewOpenWeatherProvider creates the OpenWeather integration. Hourly
// timestamps are rendered in the given zone.
func NewOpenWeatherProvider(zone *time.Location) *OpenWeatherProvider {
	if zone == nil {
		zone = time.UTC
	}
	return &OpenWeatherProvider{
		baseURL: openWeatherBaseURL,
		zone:    zone,
	}
}

// Kind returns the provider identity.
func (p *OpenWeatherProvider) Kind() types.ProviderKind { return types.ProviderOpenWeather }

// RequestURL builds the One Call query. Minutely, current, and alert blocks
// are excluded; metric units keep precipitation in millimeters.
func (p *OpenWeatherProvider) RequestURL(lat, lon float64, key types.SecretString) string {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("exclude", "minutely,current,alerts")
	q.Set("units", "metric")
	q.Set("appid", key.Unmask())
	return p.baseURL + "?" + q.Encode()
}

// openWeatherResponse is the typed parse target for the One Call payload.
// Only the fields the normalizer consumes are modeled.
type openWeatherResponse struct {
	Lat    float64             `json:"lat"`
	Lon    float64             `json:"lon"`
	Hourly []openWeatherHourly `json:"hourly"`
	Daily  []openWeatherDaily  `json:"daily"`
}

type openWeatherHourly struct {
	Dt   int64              `json:"dt"`
	Rain *openWeatherVolume `json:"rain"`
	Snow *openWeatherVolume `json:"snow"`
}

// openWeatherVolume is the nullable nested volume object: {"1h": <mm>}.
type openWeatherVolume struct {
	OneHour float64 `json:"1h"`
}

// mm returns the volume in millimeters, resolving a missing object to zero.
func (v *openWeatherVolume) mm() float64 {
	if v == nil {
		return 0
	}
	return nonNegative(v.OneHour)
}

type openWeatherDaily struct {
	Dt   int64    `json:"dt"`
	Rain *float64 `json:"rain"`
	Snow *float64 `json:"snow"`
}

// Normalize converts a One Call response into canonical ForecastData.
//
// Windowing note: the daily cumulative snow sum iterates the FULL hourly
// array (~48 points) while the rain sum takes only the first 24 entries.
// The asymmetry is long-standing observed behavior that existing alert
// thresholds are tuned against; it is reproduced deliberately and is
// flagged for product review rather than silently unified.
func (p *OpenWeatherProvider) Normalize(raw []byte, lat, lon float64, _ time.Time) (*types.ForecastData, error) {
	var resp openWeatherResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, parseError(p.Kind(), err)
	}

	var snowSum, rainSum float64
	hourly := make([]types.HourlyPrecipitation, 0, len(resp.Hourly))
	for i, h := range resp.Hourly {
		snowMM := h.Snow.mm()
		rainMM := h.Rain.mm()

		snowSum += snowMM
		if i < dailyWindow {
			rainSum += rainMM
		}

		hourly = append(hourly, types.HourlyPrecipitation{
			Time:   time.Unix(h.Dt, 0).In(p.zone),
			RainMM: rainMM,
			SnowMM: snowMM,
		})
	}

	var nextDaySnow, nextDayRain float64
	if len(resp.Daily) > 0 {
		nextDaySnow = derefVolume(resp.Daily[0].Snow)
		nextDayRain = derefVolume(resp.Daily[0].Rain)
	}

	var weeklySnow, weeklyRain float64
	for _, d := range resp.Daily {
		weeklySnow += derefVolume(d.Snow)
		weeklyRain += derefVolume(d.Rain)
	}

	return &types.ForecastData{
		Latitude:  coordOrFallback(resp.Lat, lat),
		Longitude: coordOrFallback(resp.Lon, lon),
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

// derefVolume resolves a nullable daily volume to a non-negative value.
func derefVolume(v *float64) float64 {
	if v == nil {
		return 0
	}
	return nonNegative(*v)
}

// coordOrFallback prefers the coordinate echoed by the provider, falling back
// to the queried coordinate when the response omits it.
func coordOrFallback(fromResponse, queried float64) float64 {
	if fromResponse != 0 {
		return fromResponse
	}
	return queried
}
