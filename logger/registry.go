package logger

import (
	"sync"
)

// Component loggers owned by the kernel.
const (
	ComponentBootstrap = "bootstrap"
	ComponentProviders = "providers"
	ComponentEvents    = "events"
	ComponentConfig    = "config"
)

// KernelComponents lists the loggers RegisterDefaults seeds when called
// without names.
var KernelComponents = []string{ComponentBootstrap, ComponentProviders, ComponentEvents, ComponentConfig}

var registry = struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register stores l under name, replacing any earlier logger.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	registry.loggers[name] = l
	registry.mu.Unlock()
}

// Get returns the logger registered under name. Unknown names get the
// global logger tagged with name, so callers never receive nil.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults derives one component logger per name from the current
// global logger and registers it. With no names it seeds KernelComponents.
// It returns the registered loggers by name. Call it after Init so the
// components write in the configured format and to the configured output.
func RegisterDefaults(names ...string) map[string]*Logger {
	if len(names) == 0 {
		names = KernelComponents
	}
	base := GetGlobalLogger()

	out := make(map[string]*Logger, len(names))
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, name := range names {
		l := base.WithComponent(name)
		registry.loggers[name] = l
		out[name] = l
	}
	return out
}
