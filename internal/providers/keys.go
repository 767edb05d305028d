package providers

import (
	"regexp"
	"time"

	"precipwatch/internal/config"
	"precipwatch/internal/types"
)

// Key format patterns per provider. Providers without a pattern are keyless
// (or accept any key) and always validate.
var (
	openWeatherKeyPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
	tomorrowIOKeyPattern  = regexp.MustCompile(`^[A-Za-z0-9]{32}$`)
)

// IsValidKeyFormat reports whether the key matches the provider's expected
// shape. It checks format only; it does not verify the key upstream.
func IsValidKeyFormat(kind types.ProviderKind, key string) bool {
	switch kind {
	case types.ProviderOpenWeather:
		return openWeatherKeyPattern.MatchString(key)
	case types.ProviderTomorrowIO:
		return tomorrowIOKeyPattern.MatchString(key)
	default:
		return true
	}
}

// Resolver selects the active provider and resolves its API key. It replaces
// the preferences-backed global the mobile client used: the active provider is
// explicit configuration handed to the check cycle, not process-wide mutable
// state.
type Resolver struct {
	cfg       config.ProviderConfig
	providers map[types.ProviderKind]Provider
}

// NewResolver builds a Resolver for the configured provider set. The zone is
// used by normalizers to render hourly timestamps with a local offset.
func NewResolver(cfg config.ProviderConfig, zone *time.Location) *Resolver {
	return &Resolver{
		cfg: cfg,
		providers: map[types.ProviderKind]Provider{
			types.ProviderOpenWeather: NewOpenWeatherProvider(zone),
			types.ProviderTomorrowIO:  NewTomorrowIOProvider(zone),
			types.ProviderOpenMeteo:   NewOpenMeteoProvider(zone),
			types.ProviderWeatherAPI:  NewWeatherAPIProvider(),
		},
	}
}

// Active returns the configured provider and its API key. A key with an
// invalid format is rejected up front so the cycle surfaces a configuration
// problem instead of burning quota on guaranteed 401s.
func (r *Resolver) Active() (Provider, types.SecretString, error) {
	kind := types.ProviderKind(r.cfg.Active)
	provider, ok := r.providers[kind]
	if !ok {
		return nil, "", types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"unknown weather provider",
			nil,
			map[string]any{"provider": r.cfg.Active},
		)
	}

	key := r.keyFor(kind)
	if key != "" && !IsValidKeyFormat(kind, key.Unmask()) {
		return nil, "", types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidAPIKey,
			"provider API key has an invalid format",
			nil,
			map[string]any{"provider": string(kind)},
		)
	}

	return provider, key, nil
}

// keyFor returns the configured key for a provider kind, empty for keyless
// providers.
func (r *Resolver) keyFor(kind types.ProviderKind) types.SecretString {
	switch kind {
	case types.ProviderOpenWeather:
		return r.cfg.OpenWeatherAPIKey
	case types.ProviderTomorrowIO:
		return r.cfg.TomorrowIOAPIKey
	case types.ProviderWeatherAPI:
		return r.cfg.WeatherAPIKey
	default:
		return ""
	}
}
