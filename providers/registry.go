package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/observability"
	"github.com/kbukum/gokernel/validation"
)

// Entry pairs a registry key with its provider.
type Entry struct {
	Name     string
	Provider ServiceProvider
}

// Status is a point-in-time view of one provider record.
type Status struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	State       State  `json:"state"`
}

// record holds a provider and its lifecycle state.
type record struct {
	name     string
	provider ServiceProvider
	state    State

	// transition serializes Boot/Dispose/Defer/Fail for this provider so a
	// provider call never overlaps another transition of the same provider.
	transition sync.Mutex
}

// Registry is the single owner and writer of provider lifecycle state.
// Providers are kept in registration order; records are never removed.
type Registry struct {
	mu      sync.RWMutex
	records []*record
	lookup  map[string]*record

	emitter events.Emitter
	metrics *observability.KernelMetrics
	log     atomic.Pointer[logger.Logger]
}

// Option configures a Registry.
type Option func(*Registry)

// WithEmitter dispatches kernel.provider.* events after each transition.
func WithEmitter(e events.Emitter) Option {
	return func(r *Registry) { r.emitter = e }
}

// WithMetrics records transition counts and durations.
func WithMetrics(m *observability.KernelMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log.Store(l) }
}

// NewRegistry creates an empty provider registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records: make([]*record, 0),
		lookup:  make(map[string]*record),
	}
	r.log.Store(logger.Get(logger.ComponentProviders))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(l *logger.Logger) {
	r.log.Store(l)
}

// Set adds a provider under name in state Registered. Names are lowercase
// keys such as "cache" or "p2p.peers". Providers are booted in the order
// they are set, so set dependencies first.
func (r *Registry) Set(name string, p ServiceProvider) error {
	if err := validation.ProviderName(name); err != nil {
		return err
	}
	if p == nil {
		return errors.InvalidInput("provider", "provider must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lookup[name]; exists {
		return errors.ProviderAlreadyRegistered(name)
	}

	rec := &record{name: name, provider: p, state: StateRegistered}
	r.records = append(r.records, rec)
	r.lookup[name] = rec

	r.log.Load().Debug("Service provider registered", map[string]interface{}{
		logger.FieldProvider: name,
	})
	return nil
}

// All returns every provider in registration order.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, Entry{Name: rec.name, Provider: rec.provider})
	}
	return result
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (ServiceProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.lookup[name]; ok {
		return rec.provider, true
	}
	return nil, false
}

// Has reports whether name has ever been registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// State returns the current state of name.
func (r *Registry) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.lookup[name]; ok {
		return rec.state, true
	}
	return StateRegistered, false
}

// Snapshot returns the status of every provider in registration order.
func (r *Registry) Snapshot() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Status, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, Status{
			Name:        rec.name,
			DisplayName: rec.provider.Name(),
			State:       rec.state,
		})
	}
	return result
}

// Loaded reports whether name is currently booted.
func (r *Registry) Loaded(name string) bool {
	s, ok := r.State(name)
	return ok && s == StateBooted
}

// Deferred reports whether name is inactive and waiting on the enable path:
// either deferred at startup or disposed by a later re-evaluation.
func (r *Registry) Deferred(name string) bool {
	s, ok := r.State(name)
	return ok && (s == StateDeferred || s == StateDisposed)
}

// Failed reports whether name is permanently failed.
func (r *Registry) Failed(name string) bool {
	s, ok := r.State(name)
	return ok && s == StateFailed
}

// Boot activates name. Booting an already booted provider is a no-op and a
// failed provider can never be booted again. When the provider's Boot
// returns an error the state is left unchanged and that error is returned.
func (r *Registry) Boot(ctx context.Context, name string) error {
	rec, err := r.record(name)
	if err != nil {
		return err
	}

	changed, err := r.boot(ctx, rec)
	if err != nil {
		return err
	}
	if changed {
		r.emit(ctx, events.ProviderBooted, rec.name, StateBooted)
	}
	return nil
}

func (r *Registry) boot(ctx context.Context, rec *record) (bool, error) {
	rec.transition.Lock()
	defer rec.transition.Unlock()

	from := r.stateOf(rec)
	switch from {
	case StateBooted:
		return false, nil
	case StateFailed:
		return false, errors.InvalidTransition(rec.name, from.String(), StateBooted.String())
	}

	ctx, span := observability.StartProviderSpan(ctx, observability.SpanProviderBoot, rec.name)
	start := time.Now()
	err := rec.provider.Boot(ctx)
	observability.EndSpan(span, err)

	if err != nil {
		r.metrics.RecordTransitionError(ctx, rec.name, "boot")
		return false, err
	}

	r.setState(rec, StateBooted)
	r.metrics.RecordTransition(ctx, rec.name, from.String(), StateBooted.String(), time.Since(start))
	return true, nil
}

// Dispose deactivates name if it is booted; in every other state it is a
// no-op, so a provider is never disposed twice in a row. When the provider's
// Dispose returns an error the provider stays booted.
func (r *Registry) Dispose(ctx context.Context, name string) error {
	rec, err := r.record(name)
	if err != nil {
		return err
	}

	changed, err := r.dispose(ctx, rec)
	if err != nil {
		return err
	}
	if changed {
		r.emit(ctx, events.ProviderDisposed, rec.name, StateDisposed)
	}
	return nil
}

func (r *Registry) dispose(ctx context.Context, rec *record) (bool, error) {
	rec.transition.Lock()
	defer rec.transition.Unlock()

	if r.stateOf(rec) != StateBooted {
		return false, nil
	}

	ctx, span := observability.StartProviderSpan(ctx, observability.SpanProviderDispose, rec.name)
	start := time.Now()
	err := rec.provider.Dispose(ctx)
	observability.EndSpan(span, err)

	if err != nil {
		r.metrics.RecordTransitionError(ctx, rec.name, "dispose")
		return false, err
	}

	r.setState(rec, StateDisposed)
	r.metrics.RecordTransition(ctx, rec.name, StateBooted.String(), StateDisposed.String(), time.Since(start))
	return true, nil
}

// Defer marks an inactive provider as deferred without booting it.
func (r *Registry) Defer(ctx context.Context, name string) error {
	return r.mark(ctx, name, StateDeferred, events.ProviderDeferred, func(from State) bool {
		return from.Inactive()
	})
}

// Fail marks a provider that is not running as permanently failed.
func (r *Registry) Fail(ctx context.Context, name string) error {
	return r.mark(ctx, name, StateFailed, events.ProviderFailed, func(from State) bool {
		return from != StateBooted
	})
}

// mark performs a transition that involves no provider call.
func (r *Registry) mark(ctx context.Context, name string, to State, topic events.Topic, allowed func(State) bool) error {
	rec, err := r.record(name)
	if err != nil {
		return err
	}

	rec.transition.Lock()
	from := r.stateOf(rec)
	if from == to {
		rec.transition.Unlock()
		return nil
	}
	if !allowed(from) {
		rec.transition.Unlock()
		return errors.InvalidTransition(name, from.String(), to.String())
	}
	r.setState(rec, to)
	rec.transition.Unlock()

	r.metrics.RecordTransition(ctx, name, from.String(), to.String(), 0)
	r.emit(ctx, topic, name, to)
	return nil
}

// Names returns every registered key in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		names = append(names, rec.name)
	}
	return names
}

func (r *Registry) record(name string) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.lookup[name]
	if !ok {
		return nil, errors.ProviderNotFound(name)
	}
	return rec, nil
}

func (r *Registry) stateOf(rec *record) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rec.state
}

func (r *Registry) setState(rec *record, s State) {
	r.mu.Lock()
	rec.state = s
	r.mu.Unlock()

	r.log.Load().Debug("Service provider state changed", map[string]interface{}{
		logger.FieldProvider: rec.name,
		logger.FieldState:    s.String(),
	})
}

func (r *Registry) emit(ctx context.Context, topic events.Topic, name string, s State) {
	if r.emitter == nil {
		return
	}
	payload := events.ProviderPayload{Name: name, State: s.String()}
	if err := r.emitter.Dispatch(ctx, topic, payload); err != nil {
		r.log.Load().Warn("Provider event listener failed", map[string]interface{}{
			logger.FieldProvider: name,
			logger.FieldTopic:    string(topic),
			logger.FieldError:    err.Error(),
		})
	}
}
