package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Repository is the process-wide configuration store. Keys are
// case-insensitive and dot-separated for nested values.
type Repository struct {
	mu sync.RWMutex
	v  *viper.Viper
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{v: viper.New()}
}

// Get returns the raw value at key, or nil.
func (r *Repository) Get(key string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.Get(key)
}

// GetString returns the value at key, or def when unset.
func (r *Repository) GetString(key, def string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.v.IsSet(key) {
		return def
	}
	return r.v.GetString(key)
}

// GetBool returns the value at key, or def when unset.
func (r *Repository) GetBool(key string, def bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.v.IsSet(key) {
		return def
	}
	return r.v.GetBool(key)
}

// GetInt returns the value at key, or def when unset.
func (r *Repository) GetInt(key string, def int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.v.IsSet(key) {
		return def
	}
	return r.v.GetInt(key)
}

// GetDuration returns the value at key, or def when unset.
func (r *Repository) GetDuration(key string, def time.Duration) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.v.IsSet(key) {
		return def
	}
	return r.v.GetDuration(key)
}

// GetStringSlice returns the value at key, or nil when unset.
func (r *Repository) GetStringSlice(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.GetStringSlice(key)
}

// Set overrides the value at key. An override takes precedence over any
// value merged later.
func (r *Repository) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.v.Set(key, value)
}

// Has reports whether key has a value.
func (r *Repository) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.IsSet(key)
}

// Merge deep-merges settings into the repository. Values already present
// for the same keys are replaced.
func (r *Repository) Merge(settings map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v.MergeConfigMap(settings)
}

// Unmarshal decodes the subtree at key into out using mapstructure tags.
// An empty key decodes the whole repository.
func (r *Repository) Unmarshal(key string, out any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == "" {
		return r.v.Unmarshal(out)
	}
	return r.v.UnmarshalKey(key, out)
}

// AllSettings returns a nested copy of every value.
func (r *Repository) AllSettings() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.AllSettings()
}
