package bootstrap

import (
	"context"

	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/providers"
)

// RegisterServiceProviders calls Register on every provider in registration
// order. A required provider that fails aborts startup; an optional one is
// marked failed and never booted.
type RegisterServiceProviders struct {
	registry *providers.Registry
	log      *logger.Logger
}

// NewRegisterServiceProviders creates the register step.
func NewRegisterServiceProviders(registry *providers.Registry, log *logger.Logger) *RegisterServiceProviders {
	if log == nil {
		log = logger.Get(logger.ComponentBootstrap)
	}
	return &RegisterServiceProviders{registry: registry, log: log}
}

// SetLogger replaces the step logger.
func (s *RegisterServiceProviders) SetLogger(l *logger.Logger) { s.log = l }

// Name implements Bootstrapper.
func (s *RegisterServiceProviders) Name() string { return "register-service-providers" }

// Bootstrap implements Bootstrapper.
func (s *RegisterServiceProviders) Bootstrap(ctx context.Context) error {
	for _, entry := range s.registry.All() {
		p := entry.Provider

		s.log.Debug("Registering "+p.Name(), map[string]interface{}{
			logger.FieldProvider: entry.Name,
		})

		err := p.Register(ctx)
		if err == nil {
			continue
		}
		if p.Required(ctx) {
			return errors.ProviderCannotBeRegistered(p.Name(), err)
		}

		s.log.Warn("Optional service provider failed to register", map[string]interface{}{
			logger.FieldProvider: entry.Name,
			logger.FieldError:    err.Error(),
		})
		if err := s.registry.Fail(ctx, entry.Name); err != nil {
			return err
		}
	}
	return nil
}
