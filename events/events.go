package events

import (
	"context"
	"time"
)

// Topic names an event stream.
type Topic string

// State topics are emitted by the host process as the chain advances.
const (
	// BlockApplied fires whenever a new block has been committed. The
	// provider orchestrator re-evaluates every provider's predicates on it.
	BlockApplied Topic = "state.block.applied"
)

// Kernel topics are emitted by the kernel itself.
const (
	Bootstrapping    Topic = "kernel.bootstrapping"
	Bootstrapped     Topic = "kernel.bootstrapped"
	Terminated       Topic = "kernel.terminated"
	ProviderBooted   Topic = "kernel.provider.booted"
	ProviderDisposed Topic = "kernel.provider.disposed"
	ProviderDeferred Topic = "kernel.provider.deferred"
	ProviderFailed   Topic = "kernel.provider.failed"
)

// Event is a single dispatched occurrence of a topic.
type Event struct {
	ID        string
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler reacts to an event. A returned error is reported by Dispatch but
// does not stop the remaining handlers.
type Handler func(ctx context.Context, ev Event) error

// Subscription is a standing association between a topic and a handler.
type Subscription interface {
	ID() string
	Topic() Topic
	// Unsubscribe detaches the handler. Safe to call more than once.
	Unsubscribe()
}

// Listener attaches handlers to topics.
type Listener interface {
	Listen(topic Topic, handler Handler) Subscription
}

// Emitter dispatches events to their listeners.
type Emitter interface {
	Dispatch(ctx context.Context, topic Topic, payload any) error
}

// ProviderPayload is the payload of the kernel.provider.* topics.
type ProviderPayload struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// StepPayload is the payload of the kernel.bootstrapping and
// kernel.bootstrapped topics.
type StepPayload struct {
	Step string `json:"step"`
}

// BlockPayload is the payload of the state.block.* topics.
type BlockPayload struct {
	Height uint64 `json:"height"`
}
