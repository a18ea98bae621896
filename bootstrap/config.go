package bootstrap

import (
	"github.com/kbukum/gokernel/config"
)

// Config is implemented by application configuration types decoded with
// App.Decode. Any struct that embeds config.ServiceConfig satisfies it
// through promoted methods.
//
// Example:
//
//	type LedgerConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
//	}
//
//	var cfg LedgerConfig
//	err := app.Decode(&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
