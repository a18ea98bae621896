package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvLoader is the name of the environment-only driver.
const EnvLoader = "env"

// DefaultEnvPrefix prefixes every variable read by the env driver.
const DefaultEnvPrefix = "CORE_"

// envSettings is the subset of settings the env driver understands.
type envSettings struct {
	Name        string `env:"NAME"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Version     string `env:"VERSION"`
	Debug       bool   `env:"DEBUG"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	StatusEnabled bool   `env:"STATUS_ENABLED"`
	StatusAddr    string `env:"STATUS_ADDR" envDefault:":4040"`

	TelemetryEnabled    bool          `env:"TELEMETRY_ENABLED"`
	TelemetryEndpoint   string        `env:"TELEMETRY_ENDPOINT"    envDefault:"localhost:4318"`
	TelemetryInsecure   bool          `env:"TELEMETRY_INSECURE"    envDefault:"true"`
	TelemetrySampleRate float64       `env:"TELEMETRY_SAMPLE_RATE" envDefault:"1.0"`
	TelemetryInterval   time.Duration `env:"TELEMETRY_INTERVAL"    envDefault:"15s"`

	DisabledProviders []string `env:"PROVIDERS_DISABLED" envSeparator:","`
}

// EnvDriver loads configuration from prefixed environment variables only.
type EnvDriver struct {
	prefix  string
	environ map[string]string
}

// EnvOption configures an EnvDriver.
type EnvOption func(*EnvDriver)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) EnvOption {
	return func(d *EnvDriver) { d.prefix = prefix }
}

// WithEnviron reads variables from environ instead of the process.
func WithEnviron(environ map[string]string) EnvOption {
	return func(d *EnvDriver) { d.environ = environ }
}

// NewEnvDriver creates the "env" driver.
func NewEnvDriver(opts ...EnvOption) *EnvDriver {
	d := &EnvDriver{prefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoadConfiguration parses the prefixed variables and merges them into repo.
func (d *EnvDriver) LoadConfiguration(ctx context.Context, repo *Repository) error {
	var s envSettings
	if err := env.ParseWithOptions(&s, env.Options{
		Prefix:      d.prefix,
		Environment: d.environ,
	}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	settings := map[string]any{
		"environment": s.Environment,
		"debug":       s.Debug,
		"logging": map[string]any{
			"level":  s.LogLevel,
			"format": s.LogFormat,
		},
		"status": map[string]any{
			"enabled": s.StatusEnabled,
			"addr":    s.StatusAddr,
		},
		"telemetry": map[string]any{
			"enabled":     s.TelemetryEnabled,
			"endpoint":    s.TelemetryEndpoint,
			"insecure":    s.TelemetryInsecure,
			"sample_rate": s.TelemetrySampleRate,
			"interval":    s.TelemetryInterval,
		},
		"providers": map[string]any{
			"disabled": s.DisabledProviders,
		},
	}
	// Identity keys are left alone when unset so defaults merged earlier survive.
	if s.Name != "" {
		settings["name"] = s.Name
	}
	if s.Version != "" {
		settings["version"] = s.Version
	}
	return repo.Merge(settings)
}
