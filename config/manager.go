package config

import (
	"context"
	"sort"
	"sync"

	"github.com/kbukum/gokernel/errors"
)

// Repository keys read by the kernel before any driver has run.
const (
	// KeyConfigLoader selects the driver used by the configuration step.
	KeyConfigLoader = "configLoader"
	// DefaultLoader is used when KeyConfigLoader is unset.
	DefaultLoader = "local"
)

// Driver is a strategy that populates a Repository from some source.
type Driver interface {
	LoadConfiguration(ctx context.Context, repo *Repository) error
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, repo *Repository) error

// LoadConfiguration calls f.
func (f DriverFunc) LoadConfiguration(ctx context.Context, repo *Repository) error {
	return f(ctx, repo)
}

// Manager resolves configuration drivers by name.
type Manager struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewManager creates a manager with no drivers.
func NewManager() *Manager {
	return &Manager{drivers: make(map[string]Driver)}
}

// NewDefaultManager creates a manager with the "local" and "env" drivers
// registered for serviceName.
func NewDefaultManager(serviceName string, opts ...LoaderOption) *Manager {
	m := NewManager()
	m.Extend(DefaultLoader, NewLocalDriver(serviceName, opts...))
	m.Extend(EnvLoader, NewEnvDriver())
	return m
}

// Extend registers d under name, replacing any previous driver.
func (m *Manager) Extend(name string, d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[name] = d
}

// Driver returns the driver registered under name.
func (m *Manager) Driver(name string) (Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drivers[name]
	if !ok {
		return nil, errors.ConfigDriverNotFound(name)
	}
	return d, nil
}

// Drivers returns the registered driver names, sorted.
func (m *Manager) Drivers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.drivers))
	for name := range m.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
