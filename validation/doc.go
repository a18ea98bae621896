// Package validation provides struct tag validation for configuration and
// programmatic checks with error collection.
//
// # Struct Tag Validation
//
//	type StatusConfig struct {
//	    Addr string `mapstructure:"addr" validate:"required,hostname_port"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New().
//	    Required("status.addr", cfg.Addr).
//	    OneOf("logging.level", cfg.Level, levels)
//	if appErr := v.Validate(); appErr != nil {
//	    return appErr
//	}
package validation
