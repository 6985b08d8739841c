// Package config defines the global configuration structure for the ClimaRoute
// risk service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any invalid value causes startup to fail immediately (fail fast). A missing
// model artifact is deliberately NOT a config error: the service starts in a
// degraded state and reports not-ready instead of crash-looping.
package config

import (
	"time"

	"climaroute/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the risk service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"climaroute-risk"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Weather  WeatherConfig
	Model    ModelConfig
	Risk     RiskConfig
	Database DatabaseConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"5001"`
	// RequestTimeout is the soft deadline applied to every request context.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// WeatherConfig holds the upstream weather provider settings.
type WeatherConfig struct {
	BaseURL string `envconfig:"WEATHER_BASE_URL" default:"https://api.open-meteo.com" validate:"required,url"`
	// FetchTimeout bounds a single provider call so one slow upstream
	// cannot hang the whole service.
	FetchTimeout time.Duration `envconfig:"WEATHER_FETCH_TIMEOUT" default:"10s"`
	PastDays     int           `envconfig:"WEATHER_PAST_DAYS" default:"1"`
	ForecastDays int           `envconfig:"WEATHER_FORECAST_DAYS" default:"1"`
	UserAgent    string        `envconfig:"WEATHER_USER_AGENT" default:"ClimaRoute/1.0"`
}

// ModelConfig holds the artifact paths for the trained classifier and the
// fitted feature scaler. Both are produced by the external training process.
type ModelConfig struct {
	ModelPath  string `envconfig:"MODEL_PATH" default:"artifacts/rainfall_model.json"`
	ScalerPath string `envconfig:"SCALER_PATH" default:"artifacts/scaler.json.gz"`
}

// RiskConfig holds inference pipeline tuning parameters.
type RiskConfig struct {
	// SegmentConcurrency bounds the number of parallel per-segment weather
	// fetches in a batch request.
	SegmentConcurrency int `envconfig:"SEGMENT_CONCURRENCY" default:"5" validate:"min=1"`
}

// DatabaseConfig holds the optional assessment-history database settings.
// History recording is disabled entirely when URL is empty.
type DatabaseConfig struct {
	URL      SecretString `envconfig:"DATABASE_URL"`
	MaxConns int          `envconfig:"DB_MAX_CONNS" default:"4"`
}

// SecurityConfig holds browser-facing security settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// HistoryEnabled reports whether assessment-history persistence is configured.
func (c *Config) HistoryEnabled() bool {
	return c.Database.URL.Unmask() != ""
}
