// Package events delivers execution lifecycle events to subscribers.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/canopy/pkg/domain"
)

// Handler receives one event. Handlers run synchronously on the
// emitting goroutine; a slow handler slows the tick that produced the
// event.
type Handler func(ev domain.Event)

type subscription struct {
	id      string
	types   map[domain.EventType]bool // nil means all types
	handler Handler
}

// Emitter fans events out to subscribers in registration order. It
// belongs to one execution instance; the instance id is stamped on
// every event.
type Emitter struct {
	executionID string

	mu   sync.RWMutex
	subs []subscription
}

// NewEmitter creates an emitter for one execution.
func NewEmitter(executionID string) *Emitter {
	return &Emitter{executionID: executionID}
}

// Subscribe registers a handler for the given event types; no types
// means every type. The returned id cancels the subscription via
// Unsubscribe.
func (e *Emitter) Subscribe(handler Handler, types ...domain.EventType) string {
	sub := subscription{id: uuid.NewString(), handler: handler}
	if len(types) > 0 {
		sub.types = make(map[domain.EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, sub)
	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are a no-op.
func (e *Emitter) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit stamps and delivers the event to matching subscribers in
// registration order. A panicking handler is contained: the remaining
// handlers still run, and the panic surfaces as an ERROR_OCCURRED
// event delivered to everyone else.
func (e *Emitter) Emit(ev domain.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.ExecutionID = e.executionID

	e.mu.RLock()
	subs := append([]subscription(nil), e.subs...)
	e.mu.RUnlock()

	for _, sub := range subs {
		if sub.types != nil && !sub.types[ev.Type] {
			continue
		}
		e.deliver(sub, ev, subs)
	}
}

func (e *Emitter) deliver(sub subscription, ev domain.Event, subs []subscription) {
	defer func() {
		if r := recover(); r != nil {
			// Never recurse on the error event itself.
			if ev.Type == domain.EventErrorOccurred {
				return
			}
			errEv := domain.Event{
				Type:        domain.EventErrorOccurred,
				Timestamp:   time.Now(),
				ExecutionID: e.executionID,
				Payload: domain.ErrorPayload{
					Message: fmt.Sprintf("event handler panicked on %s: %v", ev.Type, r),
				},
			}
			for _, other := range subs {
				if other.id == sub.id {
					continue
				}
				if other.types != nil && !other.types[domain.EventErrorOccurred] {
					continue
				}
				e.deliver(other, errEv, subs)
			}
		}
	}()
	sub.handler(ev)
}

// EmitType is shorthand for Emit with just a type and payload.
func (e *Emitter) EmitType(t domain.EventType, payload any) {
	e.Emit(domain.Event{Type: t, Payload: payload})
}

// Channel subscribes a buffered channel to the given types. Events are
// dropped, not blocked on, when the buffer is full; cancel with the
// returned id as usual.
func (e *Emitter) Channel(buffer int, types ...domain.EventType) (<-chan domain.Event, string) {
	ch := make(chan domain.Event, buffer)
	id := e.Subscribe(func(ev domain.Event) {
		select {
		case ch <- ev:
		default:
		}
	}, types...)
	return ch, id
}
