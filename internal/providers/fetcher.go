package providers

import (
	"context"
	"time"

	"precipwatch/internal/types"
)

// Fetcher combines the active provider, its API key, and the resilient HTTP
// client into a single forecast-retrieval entry point for the check cycle.
type Fetcher struct {
	resolver *Resolver
	client   *Client
	clock    types.Clock
	logger   types.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(resolver *Resolver, client *Client, clock types.Clock, logger types.Logger) *Fetcher {
	return &Fetcher{
		resolver: resolver,
		client:   client,
		clock:    clock,
		logger:   logger,
	}
}

// Fetch retrieves and normalizes the forecast for a coordinate using the
// configured provider. All failures surface as typed AppErrors from the
// client or normalizer.
func (f *Fetcher) Fetch(ctx context.Context, lat, lon float64) (*types.ForecastData, error) {
	provider, key, err := f.resolver.Active()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := f.client.Fetch(ctx, provider.RequestURL(lat, lon, key))
	if err != nil {
		f.logger.Error("forecast fetch failed",
			"provider", string(provider.Kind()),
			"latitude", lat,
			"longitude", lon,
			"error", err,
		)
		return nil, err
	}

	data, err := provider.Normalize(raw, lat, lon, f.clock.Now())
	if err != nil {
		f.logger.Error("forecast normalization failed",
			"provider", string(provider.Kind()),
			"latitude", lat,
			"longitude", lon,
			"error", err,
		)
		return nil, err
	}

	f.logger.Debug("forecast fetched",
		"provider", string(provider.Kind()),
		"latitude", lat,
		"longitude", lon,
		"duration_ms", time.Since(start).Milliseconds(),
		"hourly_points", len(data.Hourly),
	)
	return data, nil
}

// ActiveKind reports the configured provider kind without fetching. Used for
// cache keys and metric dimensions.
func (f *Fetcher) ActiveKind() types.ProviderKind {
	return types.ProviderKind(f.resolver.cfg.Active)
}
