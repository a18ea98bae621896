package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/observability"
	"github.com/kbukum/gokernel/providers"
)

// Reaction outcomes recorded per re-evaluation.
const (
	OutcomeSkipped       = "skipped"
	OutcomeUnchanged     = "unchanged"
	OutcomeBooted        = "booted"
	OutcomeDisposed      = "disposed"
	OutcomeBootFailed    = "boot_failed"
	OutcomeDisposeFailed = "dispose_failed"
)

// BootServiceProviders runs the initial boot pass over the registry and then
// keeps re-evaluating every provider's predicates each time the
// re-evaluation topic fires.
type BootServiceProviders struct {
	registry *providers.Registry
	listener events.Listener
	topic    events.Topic
	metrics  *observability.KernelMetrics
	log      atomic.Pointer[logger.Logger]

	mu            sync.Mutex
	started       bool
	subscriptions []events.Subscription
	locks         map[string]*sync.Mutex
}

// BootOption configures BootServiceProviders.
type BootOption func(*BootServiceProviders)

// WithReevaluationTopic replaces events.BlockApplied as the trigger.
func WithReevaluationTopic(topic events.Topic) BootOption {
	return func(b *BootServiceProviders) { b.topic = topic }
}

// WithBootMetrics records reaction outcomes.
func WithBootMetrics(m *observability.KernelMetrics) BootOption {
	return func(b *BootServiceProviders) { b.metrics = m }
}

// WithBootLogger sets the diagnostics sink.
func WithBootLogger(l *logger.Logger) BootOption {
	return func(b *BootServiceProviders) { b.log.Store(l) }
}

// NewBootServiceProviders creates the orchestrator over registry, listening
// for re-evaluation events on listener.
func NewBootServiceProviders(registry *providers.Registry, listener events.Listener, opts ...BootOption) *BootServiceProviders {
	b := &BootServiceProviders{
		registry: registry,
		listener: listener,
		topic:    events.BlockApplied,
		locks:    make(map[string]*sync.Mutex),
	}
	b.log.Store(logger.Get(logger.ComponentBootstrap))
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetLogger replaces the diagnostics sink. Reactions already installed pick
// it up on their next run.
func (b *BootServiceProviders) SetLogger(l *logger.Logger) {
	b.log.Store(l)
}

// Name implements Bootstrapper.
func (b *BootServiceProviders) Name() string { return "boot-service-providers" }

// Bootstrap walks the providers once, strictly in registration order. An
// enabled provider is booted and a disabled one deferred. When the boot of
// a required provider fails the pass stops and a PROVIDER_CANNOT_BE_BOOTED
// error is returned; an optional provider that fails is marked failed.
// Every provider reached gets a standing reaction, failed ones included.
func (b *BootServiceProviders) Bootstrap(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("service providers already booted")
	}
	b.started = true
	b.mu.Unlock()

	for _, entry := range b.registry.All() {
		if err := b.bootProvider(ctx, entry); err != nil {
			return err
		}
		b.subscribe(entry.Name)
	}
	return nil
}

func (b *BootServiceProviders) bootProvider(ctx context.Context, entry providers.Entry) error {
	p := entry.Provider
	fields := map[string]interface{}{logger.FieldProvider: entry.Name}

	if b.registry.Failed(entry.Name) {
		b.log.Load().Debug("Skipping failed "+p.Name(), fields)
		return nil
	}

	if !p.EnableWhen(ctx) {
		b.log.Load().Debug("Deferring "+p.Name(), fields)
		return b.registry.Defer(ctx, entry.Name)
	}

	b.log.Load().Debug("Booting "+p.Name(), fields)
	err := b.registry.Boot(ctx, entry.Name)
	if err == nil {
		return nil
	}

	if p.Required(ctx) {
		return errors.ProviderCannotBeBooted(p.Name(), err)
	}

	b.log.Load().Warn("Optional service provider failed to boot", logger.MergeWithError(fields, err))
	return b.registry.Fail(ctx, entry.Name)
}

// subscribe installs the standing reaction for one provider. The name is
// passed by value so every closure is bound to its own provider.
func (b *BootServiceProviders) subscribe(name string) {
	b.mu.Lock()
	lock, ok := b.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[name] = lock
	}
	b.mu.Unlock()

	sub := b.listener.Listen(b.topic, func(ctx context.Context, ev events.Event) error {
		ctx, ok := withReacting(ctx, name)
		if !ok {
			// A listener of this provider's own transition dispatched the
			// topic again. The outer reaction still holds the lock.
			b.log.Load().Debug("Skipping nested re-evaluation", map[string]interface{}{
				logger.FieldProvider: name,
			})
			b.metrics.RecordReaction(ctx, name, OutcomeSkipped)
			return nil
		}

		lock.Lock()
		defer lock.Unlock()

		ctx, span := observability.StartProviderSpan(ctx, observability.SpanReaction, name)
		span.SetAttributes(attribute.String(observability.AttrEventTopic, string(ev.Topic)))
		outcome := b.reevaluate(ctx, name)
		span.SetAttributes(attribute.String("reaction.outcome", outcome))
		span.End()

		b.metrics.RecordReaction(ctx, name, outcome)
		return nil
	})

	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, sub)
	b.mu.Unlock()
}

// reactingKey carries the providers whose reaction is running on the
// current dispatch chain.
type reactingKey struct{}

func withReacting(ctx context.Context, name string) (context.Context, bool) {
	chain, _ := ctx.Value(reactingKey{}).([]string)
	for _, n := range chain {
		if n == name {
			return ctx, false
		}
	}
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, reactingKey{}, append(next, name)), true
}

// reevaluate applies one round of the predicates to name. Failures are
// reported but never escalated: the required policy applies only to the
// initial pass.
func (b *BootServiceProviders) reevaluate(ctx context.Context, name string) string {
	p, ok := b.registry.Get(name)
	if !ok || b.registry.Failed(name) {
		return OutcomeSkipped
	}
	fields := map[string]interface{}{logger.FieldProvider: name}

	switch {
	case b.registry.Loaded(name) && p.DisableWhen(ctx):
		b.log.Load().Debug("Disposing "+p.Name(), fields)
		if err := b.registry.Dispose(ctx, name); err != nil {
			b.log.Load().Error("Service provider failed to dispose", logger.MergeWithError(fields, err))
			b.metrics.RecordReactionError(ctx, name, "dispose")
			return OutcomeDisposeFailed
		}
		return OutcomeDisposed

	case b.registry.Deferred(name) && p.EnableWhen(ctx):
		b.log.Load().Debug("Booting "+p.Name(), fields)
		if err := b.registry.Boot(ctx, name); err != nil {
			b.log.Load().Error("Deferred service provider failed to boot", logger.MergeWithError(fields, err))
			b.metrics.RecordReactionError(ctx, name, "boot")
			return OutcomeBootFailed
		}
		return OutcomeBooted
	}
	return OutcomeUnchanged
}

// Subscriptions returns the standing reactions installed so far, in
// registration order.
func (b *BootServiceProviders) Subscriptions() []events.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Subscription, len(b.subscriptions))
	copy(out, b.subscriptions)
	return out
}

// Close detaches every standing reaction. Providers keep their state.
func (b *BootServiceProviders) Close() {
	b.mu.Lock()
	subs := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
