// Package providers implements the integrations with the supported upstream
// weather APIs. Each provider pairs a typed response model with a pure
// Normalize function that converts the provider's JSON into the canonical
// types.ForecastData shape. All unit conversion, window aggregation, and
// hourly-series construction happens at this boundary; alert logic downstream
// only ever sees canonical millimeter values.
package providers

import (
	"time"

	"precipwatch/internal/types"
)

// Provider is the contract each upstream integration satisfies. The four
// implementations form a flat set selected at runtime by the Resolver; there
// is no inheritance hierarchy.
type Provider interface {
	// Kind returns the provider identity.
	Kind() types.ProviderKind

	// RequestURL builds the full provider query URL for a coordinate.
	// The key is empty for keyless providers.
	RequestURL(lat, lon float64, key types.SecretString) string

	// Normalize converts one raw response body into canonical ForecastData.
	// It is pure: the same payload and instant always produce the same
	// result, and it never returns partial data alongside an error.
	// Missing or negative precipitation fields resolve to zero; they are
	// never allowed to propagate into the aggregate sums.
	Normalize(raw []byte, lat, lon float64, now time.Time) (*types.ForecastData, error)
}

// dailyWindow is the number of hourly points in the rolling "daily" cumulative
// sum. It counts forecast points from "now", not a calendar day.
const dailyWindow = 24

// nonNegative clamps negative provider values to zero. Providers occasionally
// report small negative accumulations after unit rounding.
func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// parseError wraps a JSON decoding failure in the standard taxonomy.
func parseError(kind types.ProviderKind, err error) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamParse,
		"malformed provider response",
		err,
		map[string]any{"provider": string(kind)},
	)
}
