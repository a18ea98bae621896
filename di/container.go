package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kbukum/gokernel/logger"
)

// RegistrationMode determines how a binding is resolved.
type RegistrationMode int

const (
	Lazy      RegistrationMode = iota // Constructed on first resolve
	Singleton                         // Pre-created instance
)

// String returns the mode name.
func (m RegistrationMode) String() string {
	if m == Singleton {
		return "singleton"
	}
	return "lazy"
}

// Constructor builds a binding. It may resolve other bindings from c.
type Constructor func(ctx context.Context, c Container) (any, error)

// Container is the dependency container handed to providers while they
// register and boot.
type Container interface {
	Bind(key string, constructor Constructor) error
	Singleton(key string, instance any) error
	Resolve(ctx context.Context, key string) (any, error)
	Has(key string) bool
	Registrations() []RegistrationInfo
	Close() error
}

// RegistrationInfo describes a binding for introspection.
type RegistrationInfo struct {
	Key         string           `json:"key"`
	Mode        RegistrationMode `json:"mode"`
	Initialized bool             `json:"initialized"`
}

type binding struct {
	key         string
	constructor Constructor
	mode        RegistrationMode

	mu          sync.Mutex
	instance    any
	initialized bool
}

// resolvingKey carries the keys being constructed on the current call path.
type resolvingKey struct{}

func withResolving(ctx context.Context, key string) (context.Context, bool) {
	path, _ := ctx.Value(resolvingKey{}).([]string)
	for _, k := range path {
		if k == key {
			return ctx, false
		}
	}
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return context.WithValue(ctx, resolvingKey{}, append(next, key)), true
}

// container is the default Container implementation.
type container struct {
	mu       sync.RWMutex
	bindings map[string]*binding
	order    []string // initialization order, for Close
	log      *logger.Logger
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		bindings: make(map[string]*binding),
		log:      logger.Get("di"),
	}
}

// Bind registers a lazily constructed binding. Rebinding a key that has not
// been resolved yet replaces it; rebinding a resolved key is an error.
func (c *container) Bind(key string, constructor Constructor) error {
	if constructor == nil {
		return fmt.Errorf("di: constructor for %s is nil", key)
	}
	return c.add(&binding{key: key, constructor: constructor, mode: Lazy})
}

// Singleton registers an already constructed instance.
func (c *container) Singleton(key string, instance any) error {
	return c.add(&binding{key: key, mode: Singleton, instance: instance, initialized: true})
}

func (c *container) add(b *binding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.bindings[b.key]; ok {
		existing.mu.Lock()
		initialized := existing.initialized
		existing.mu.Unlock()
		if initialized {
			return fmt.Errorf("di: %s is already resolved", b.key)
		}
	}
	c.bindings[b.key] = b
	if b.initialized {
		c.order = append(c.order, b.key)
	}
	return nil
}

// Resolve returns the instance bound to key, constructing it on first use.
func (c *container) Resolve(ctx context.Context, key string) (any, error) {
	c.mu.RLock()
	b, ok := c.bindings[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("di: %s is not registered", key)
	}

	ctx, ok = withResolving(ctx, key)
	if !ok {
		return nil, fmt.Errorf("di: circular dependency while resolving %s", key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return b.instance, nil
	}

	instance, err := b.constructor(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("di: constructing %s: %w", key, err)
	}

	b.instance = instance
	b.initialized = true

	c.mu.Lock()
	c.order = append(c.order, key)
	c.mu.Unlock()

	c.log.Debug("Binding resolved", map[string]interface{}{
		logger.FieldComponent: key,
	})
	return instance, nil
}

// Has reports whether key is bound.
func (c *container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[key]
	return ok
}

// Registrations returns every binding sorted by key.
func (c *container) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]RegistrationInfo, 0, len(c.bindings))
	for key, b := range c.bindings {
		b.mu.Lock()
		infos = append(infos, RegistrationInfo{Key: key, Mode: b.mode, Initialized: b.initialized})
		b.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// Close closes every initialized instance implementing io.Closer, in
// reverse initialization order.
func (c *container) Close() error {
	c.mu.Lock()
	order := c.order
	c.order = nil
	bindings := c.bindings
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		b := bindings[order[i]]
		closer, ok := b.instance.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("di: closing %s: %w", b.key, err))
		}
	}
	return stderrors.Join(errs...)
}
