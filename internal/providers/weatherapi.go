package providers

import (
	"fmt"
	"net/url"
	"time"

	"precipwatch/internal/types"
)

// weatherAPIBaseURL is the WeatherAPI.com forecast endpoint.
const weatherAPIBaseURL = "https://api.weatherapi.com/v1/forecast.json"

// WeatherAPIProvider is the minimal WeatherAPI.com integration. The upstream
// call is wired, but the normalizer intentionally returns zeroed volumes and
// an empty hourly series regardless of the response content: precipitation
// mapping for this provider has never been implemented, and an explicit
// always-zero normalizer is preferred over inventing field semantics.
type WeatherAPIProvider struct {
	baseURL string
}

// NewWeatherAPIProvider creates the WeatherAPI.com integration.
func NewWeatherAPIProvider() *WeatherAPIProvider {
	return &WeatherAPIProvider{baseURL: weatherAPIBaseURL}
}

// Kind returns the provider identity.
func (p *WeatherAPIProvider) Kind() types.ProviderKind { return types.ProviderWeatherAPI }

// RequestURL builds the two-day forecast query.
func (p *WeatherAPIProvider) RequestURL(lat, lon float64, key types.SecretString) string {
	q := url.Values{}
	q.Set("key", key.Unmask())
	q.Set("q", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("days", "2")
	return p.baseURL + "?" + q.Encode()
}

// Normalize returns a zeroed canonical forecast for the queried coordinate.
func (p *WeatherAPIProvider) Normalize(_ []byte, lat, lon float64, _ time.Time) (*types.ForecastData, error) {
	return &types.ForecastData{
		Latitude:  lat,
		Longitude: lon,
		Snow:      types.Snow{},
		Rain:      types.Rain{},
		Hourly:    []types.HourlyPrecipitation{},
	}, nil
}
