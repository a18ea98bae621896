package bootstrap

import (
	"context"

	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/logger"
)

// LoadConfiguration selects the driver named by the configLoader key
// (default "local") and loads configuration into the repository. It must
// complete before any provider is touched.
type LoadConfiguration struct {
	repo    *config.Repository
	manager *config.Manager
	log     *logger.Logger
}

// NewLoadConfiguration creates the configuration step.
func NewLoadConfiguration(repo *config.Repository, manager *config.Manager, log *logger.Logger) *LoadConfiguration {
	if log == nil {
		log = logger.Get(logger.ComponentBootstrap)
	}
	return &LoadConfiguration{repo: repo, manager: manager, log: log}
}

// Name implements Bootstrapper.
func (s *LoadConfiguration) Name() string { return "load-configuration" }

// Bootstrap implements Bootstrapper. Every failure is fatal; a driver error
// is wrapped with its cause intact.
func (s *LoadConfiguration) Bootstrap(ctx context.Context) error {
	name := s.repo.GetString(config.KeyConfigLoader, config.DefaultLoader)

	driver, err := s.manager.Driver(name)
	if err != nil {
		return err
	}

	s.log.Debug("Loading configuration", map[string]interface{}{
		logger.FieldDriver: name,
	})

	if err := driver.LoadConfiguration(ctx, s.repo); err != nil {
		return errors.ConfigLoadFailed(name, err)
	}
	return nil
}
