package config

import (
	"time"

	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/validation"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error", "fatal", "trace"}
	logFormats = []string{"json", "console", "pretty", "text"}
)

// ServiceConfig contains the settings the kernel itself reads after the
// configuration step. Applications extend it by embedding.
//
// Example:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
//	}
type ServiceConfig struct {
	Name         string          `yaml:"name" mapstructure:"name" validate:"required"`
	Environment  string          `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version      string          `yaml:"version" mapstructure:"version"`
	Debug        bool            `yaml:"debug" mapstructure:"debug"`
	ConfigLoader string          `yaml:"configLoader" mapstructure:"configLoader"`
	Logging      logger.Config   `yaml:"logging" mapstructure:"logging"`
	Status       StatusConfig    `yaml:"status" mapstructure:"status"`
	Telemetry    TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Providers    ProvidersConfig `yaml:"providers" mapstructure:"providers"`
}

// StatusConfig controls the provider status HTTP API.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// TelemetryConfig controls OTLP trace and metric export.
type TelemetryConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ProvidersConfig lists operator overrides for provider activation.
type ProvidersConfig struct {
	// Disabled names providers whose enable predicate should report false.
	Disabled []string `yaml:"disabled" mapstructure:"disabled"`
}

// IsDisabled reports whether name is listed in Disabled.
func (c *ProvidersConfig) IsDisabled(name string) bool {
	for _, d := range c.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// GetServiceConfig returns the base ServiceConfig. Promoted through
// embedding so larger config structs satisfy the same accessor.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.ConfigLoader == "" {
		c.ConfigLoader = DefaultLoader
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":4040"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = 15 * time.Second
	}
	c.Logging.ApplyDefaults()
}

// Validate checks struct tags first, then the cross-field rules.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}

	v := validation.New().
		OneOf("logging.level", c.Logging.Level, logLevels).
		OneOf("logging.format", c.Logging.Format, logFormats)
	if c.Status.Enabled {
		v.Required("status.addr", c.Status.Addr)
	}
	if c.Telemetry.Enabled {
		v.Required("telemetry.endpoint", c.Telemetry.Endpoint)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Load decodes repo into a ServiceConfig, applies defaults and validates.
func Load(repo *Repository) (*ServiceConfig, error) {
	cfg := &ServiceConfig{}
	if err := repo.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
