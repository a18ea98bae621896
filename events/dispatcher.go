package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gokernel/logger"
)

// Dispatcher is a synchronous, topic-based event dispatcher.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Topic][]*subscription
	closed    bool
	log       atomic.Pointer[logger.Logger]
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) { d.log.Store(l) }
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[Topic][]*subscription),
	}
	d.log.Store(logger.Get(logger.ComponentEvents))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetLogger replaces the logger used for dispatch diagnostics.
func (d *Dispatcher) SetLogger(l *logger.Logger) {
	d.log.Store(l)
}

type subscription struct {
	id      string
	topic   Topic
	handler Handler
	active  atomic.Bool
	owner   *Dispatcher
}

func (s *subscription) ID() string   { return s.id }
func (s *subscription) Topic() Topic { return s.topic }

func (s *subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.owner.remove(s)
}

// Listen attaches handler to topic and returns the owning subscription.
// Handlers run in the order they were attached. Listening on a closed
// dispatcher returns an inactive subscription.
func (d *Dispatcher) Listen(topic Topic, handler Handler) Subscription {
	sub := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
		owner:   d,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return sub
	}
	sub.active.Store(true)
	d.listeners[topic] = append(d.listeners[topic], sub)

	d.log.Load().Debug("Listener attached", map[string]interface{}{
		logger.FieldTopic: string(topic),
		"subscription":    sub.id,
	})
	return sub
}

// Dispatch delivers payload to every listener of topic and waits for all of
// them. Listener errors and panics are collected into the returned error.
// A cancelled context stops delivery to the listeners not yet run.
func (d *Dispatcher) Dispatch(ctx context.Context, topic Topic, payload any) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil
	}
	subs := make([]*subscription, len(d.listeners[topic]))
	copy(subs, d.listeners[topic])
	d.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	ev := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	var errs []error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !sub.active.Load() {
			continue
		}
		if err := invoke(ctx, sub, ev); err != nil {
			d.log.Load().Warn("Listener failed", map[string]interface{}{
				logger.FieldTopic:   string(topic),
				logger.FieldEventID: ev.ID,
				logger.FieldError:   err.Error(),
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// invoke runs a single handler, converting a panic into an error.
func invoke(ctx context.Context, sub *subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %s on %s panicked: %v", sub.id, sub.topic, r)
		}
	}()
	if err := sub.handler(ctx, ev); err != nil {
		return fmt.Errorf("listener %s on %s: %w", sub.id, sub.topic, err)
	}
	return nil
}

// Listeners returns the number of active listeners for topic.
func (d *Dispatcher) Listeners(topic Topic) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[topic])
}

// Close detaches all listeners; later Dispatch calls are no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for topic, subs := range d.listeners {
		for _, sub := range subs {
			sub.active.Store(false)
		}
		delete(d.listeners, topic)
	}
}

func (d *Dispatcher) remove(target *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.listeners[target.topic]
	for i, sub := range subs {
		if sub == target {
			d.listeners[target.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(d.listeners[target.topic]) == 0 {
		delete(d.listeners, target.topic)
	}
}
