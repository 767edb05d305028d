// Package config defines the global configuration structure for the precipwatch
// service. Configuration is loaded once at process startup and is immutable
// thereafter. It follows 12-Factor App principles by strictly separating code
// from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import (
	"time"

	"precipwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the precipwatch service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	Provider      ProviderConfig
	Checker       CheckerConfig
	Webhook       WebhookConfig
	Retention     RetentionConfig
	Observability ObservabilityConfig

	// Build Metadata (injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration for the management API.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// ProviderConfig selects the active weather provider and carries per-provider
// credentials. Exactly one provider is active at a time.
type ProviderConfig struct {
	Active string `envconfig:"WEATHER_PROVIDER" default:"openmeteo" validate:"required,oneof=openweather tomorrowio openmeteo weatherapi"`

	OpenWeatherAPIKey SecretString `envconfig:"OPENWEATHER_API_KEY"`
	TomorrowIOAPIKey  SecretString `envconfig:"TOMORROWIO_API_KEY"`
	WeatherAPIKey     SecretString `envconfig:"WEATHERAPI_API_KEY"`

	// Timeout bounds each provider HTTP call.
	Timeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"20s"`

	// Timezone is the IANA zone used to render hourly forecast timestamps
	// with a local offset. The process clock itself stays in UTC.
	Timezone string `envconfig:"FORECAST_TIMEZONE" default:"UTC"`
}

// CheckerConfig tunes the periodic check cycle.
type CheckerConfig struct {
	// IntervalHours is the cadence of the scheduled check cycle.
	IntervalHours int `envconfig:"CHECK_INTERVAL_HOURS" default:"6" validate:"oneof=6 12 18"`
	// Concurrency bounds the number of alerts processed in parallel.
	Concurrency int `envconfig:"CHECK_CONCURRENCY" default:"6" validate:"min=1,max=16"`
	// RunOnStart triggers one check cycle immediately at process startup.
	RunOnStart bool `envconfig:"CHECK_RUN_ON_START" default:"false"`
}

// WebhookConfig holds settings for outbound webhook notification delivery.
type WebhookConfig struct {
	URL            string        `envconfig:"NOTIFY_WEBHOOK_URL" validate:"omitempty,url"`
	UserAgent      string        `envconfig:"NOTIFY_USER_AGENT" default:"PrecipWatch-Notify/1.0"`
	DefaultTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
}

// RetentionConfig tunes the alert-history retention job.
type RetentionConfig struct {
	// MaxAge is how long AlertHistory rows are kept before being archived
	// and bulk-deleted.
	MaxAge time.Duration `envconfig:"HISTORY_MAX_AGE" default:"2160h"`
	// ArchiveDir is where gzip-compressed history exports are written.
	ArchiveDir string `envconfig:"HISTORY_ARCHIVE_DIR" default:"./archive"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"PrecipWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
