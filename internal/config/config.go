// Package config defines service configuration and its layered loading.
package config

import (
	"context"
	"time"
)

// CategoryConfig is the influence radius and weight of one incident
// category. File overrides the GeoJSON file name for the category.
type CategoryConfig struct {
	RadiusMeters float64 `koanf:"radius_meters" validate:"gt=0"`
	Weight       float64 `koanf:"weight" validate:"gt=0"`
	File         string  `koanf:"file"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the encoder: json or console.
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// WorkerCount sets the number of point scoring workers; 0 means one per CPU.
	WorkerCount int `koanf:"worker_count" validate:"gte=0"`

	// Sampling selects the route sampling policy: count or interval.
	Sampling         string  `koanf:"sampling" validate:"oneof=count interval"`
	SampleCount      int     `koanf:"sample_count" validate:"gte=1,lte=100000"`
	SampleStepMeters float64 `koanf:"sample_step_meters" validate:"gt=0"`

	// Smoothing is the saturation constant K of the score transform.
	Smoothing float64 `koanf:"smoothing" validate:"gt=0"`

	// Categories maps category names to their scoring parameters. A
	// configured map replaces the defaults entirely.
	Categories map[string]CategoryConfig `koanf:"categories" validate:"required,min=1,dive"`

	// Source selects the incident source: geojson or postgres.
	Source            string `koanf:"source" validate:"oneof=geojson postgres"`
	DataDir           string `koanf:"data_dir" validate:"required_if=Source geojson"`
	TimestampProperty string `koanf:"timestamp_property"`
	PostgresDSN       string `koanf:"postgres_dsn" validate:"required_if=Source postgres"`
	PostgresTable     string `koanf:"postgres_table"`

	// StrictLoad fails startup when any category cannot be loaded. When
	// false the category is reported as unavailable instead.
	StrictLoad bool `koanf:"strict_load"`

	MapboxToken      string  `koanf:"mapbox_token"`
	MapboxBaseURL    string  `koanf:"mapbox_base_url" validate:"omitempty,url"`
	RoutingTimeoutMS int     `koanf:"routing_timeout_ms" validate:"gt=0"`
	RoutingRPS       float64 `koanf:"routing_rps" validate:"gte=0"`

	// RequestTimeoutMS bounds each HTTP request end to end.
	RequestTimeoutMS int `koanf:"request_timeout_ms" validate:"gt=0"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "json",
		Addr:             ":9080",
		WorkerCount:      0,
		Sampling:         "count",
		SampleCount:      75,
		SampleStepMeters: 50,
		Smoothing:        75,
		Categories: map[string]CategoryConfig{
			"Shootings":            {RadiusMeters: 300, Weight: 2.0},
			"Homicides":            {RadiusMeters: 400, Weight: 2.0},
			"Assaults":             {RadiusMeters: 200, Weight: 1.7},
			"Robberies":            {RadiusMeters: 200, Weight: 1.2},
			"Auto Thefts":          {RadiusMeters: 300, Weight: 1.0},
			"Motor Vehicle Thefts": {RadiusMeters: 300, Weight: 0.8},
			"Bicycle Thefts":       {RadiusMeters: 200, Weight: 0.4},
			"Property Thefts":      {RadiusMeters: 200, Weight: 0.2},
		},
		Source:           "geojson",
		DataDir:          "public/layer-data",
		PostgresTable:    "incidents",
		StrictLoad:       true,
		MapboxBaseURL:    "https://api.mapbox.com",
		RoutingTimeoutMS: 10_000,
		RoutingRPS:       5,
		RequestTimeoutMS: 15_000,
	}
}

// RoutingTimeout returns RoutingTimeoutMS as a duration.
func (c *Config) RoutingTimeout() time.Duration {
	return time.Duration(c.RoutingTimeoutMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
