package shared

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DomainEvent is implemented by every lifecycle event.
type DomainEvent interface {
	EventName() string
	OccurredOn() time.Time
	GetAggregateID() string
}

// Vetoable is implemented by Before-events. A subscriber may request a
// rollback of the operation that is about to run; the publisher of the
// Before-event must check the flag after dispatch and abort before any
// state is persisted.
//
// Semantics are last-write-wins: the event carries one mutable flag and
// every handler writes through it, so the handler registered last has
// the final say. Handlers that do not care simply leave the flag alone.
type Vetoable interface {
	DomainEvent

	// SetRollback overwrites the rollback flag and its reason.
	SetRollback(requested bool, reason string)

	// RollbackRequested reports the current flag state.
	RollbackRequested() bool

	// RollbackReason returns the reason of the most recent SetRollback.
	RollbackReason() string
}

// VetoFlag is the embeddable implementation of the Vetoable flag.
type VetoFlag struct {
	requested bool
	reason    string
}

func (f *VetoFlag) SetRollback(requested bool, reason string) {
	f.requested = requested
	f.reason = reason
}

func (f *VetoFlag) RollbackRequested() bool { return f.requested }
func (f *VetoFlag) RollbackReason() string  { return f.reason }

// EventHandler reacts to one event kind.
type EventHandler interface {
	Handle(event DomainEvent) error
	Name() string
}

// EventPublisher is the collaborator contract the lifecycle core
// publishes through. Dispatch is synchronous and in registration order;
// a handler failure must not prevent later handlers from running.
type EventPublisher interface {
	Publish(event DomainEvent) error
	Subscribe(eventName string, handler EventHandler) error
	Unsubscribe(eventName string, handler EventHandler) error
}

// ErrSubscriberFailed classifies handler failures surfaced by Publish.
// The triggering state change has already been committed when an
// After-event handler fails; callers count the failure but must not
// roll the state back.
var ErrSubscriberFailed = errors.New("event subscriber failed")

// SubscriberError aggregates the handlers that failed during one
// Publish call.
type SubscriberError struct {
	EventName string
	Failures  map[string]error // handler name -> error
}

func (e *SubscriberError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	return fmt.Sprintf("event %s: %d subscriber(s) failed: %s",
		e.EventName, len(e.Failures), strings.Join(names, ", "))
}

func (e *SubscriberError) Unwrap() error { return ErrSubscriberFailed }

// ValidateEvent rejects structurally broken events before dispatch.
func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.EventName() == "" {
		return fmt.Errorf("event name cannot be empty")
	}
	if event.GetAggregateID() == "" {
		return fmt.Errorf("aggregate ID cannot be empty")
	}
	if event.OccurredOn().IsZero() {
		return fmt.Errorf("occurred on time cannot be zero")
	}
	return nil
}

// EventBus is the in-process EventPublisher. Handlers run inline on the
// publishing goroutine, in the order they were registered, so the
// caller of a lifecycle operation observes every side effect (or its
// failure) before the operation returns.
type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// Publish dispatches the event to every handler registered for its
// name. Handler failures are isolated: every handler runs regardless
// of earlier failures, and the failures come back aggregated in a
// *SubscriberError. A nil return means every handler succeeded.
func (bus *EventBus) Publish(event DomainEvent) error {
	if err := ValidateEvent(event); err != nil {
		return err
	}

	bus.mu.RLock()
	handlers := bus.handlers[event.EventName()]
	bus.mu.RUnlock()

	var failures map[string]error
	for _, handler := range handlers {
		if err := safeHandle(handler, event); err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[handler.Name()] = err
		}
	}

	if len(failures) > 0 {
		return &SubscriberError{EventName: event.EventName(), Failures: failures}
	}
	return nil
}

// safeHandle contains a panicking handler so one broken subscriber
// cannot take down a whole sweep run.
func safeHandle(handler EventHandler, event DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(event)
}

// Subscribe registers a handler for an event name. Duplicate handler
// names on the same event are rejected so registration order (which
// drives dispatch order and veto precedence) stays unambiguous.
func (bus *EventBus) Subscribe(eventName string, handler EventHandler) error {
	if eventName == "" {
		return fmt.Errorf("event name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	for _, h := range bus.handlers[eventName] {
		if h.Name() == handler.Name() {
			return fmt.Errorf("handler %s already subscribed to %s", handler.Name(), eventName)
		}
	}

	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	return nil
}

// Unsubscribe removes a handler by name. Removing an unknown handler
// is a no-op.
func (bus *EventBus) Unsubscribe(eventName string, handler EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	handlers := bus.handlers[eventName]
	for i, h := range handlers {
		if h.Name() == handler.Name() {
			bus.handlers[eventName] = append(handlers[:i], handlers[i+1:]...)
			return nil
		}
	}
	return nil
}

// FuncHandler adapts a function to EventHandler.
type FuncHandler struct {
	name string
	fn   func(DomainEvent) error
}

// NewFuncHandler wraps fn under the given handler name.
func NewFuncHandler(name string, fn func(DomainEvent) error) *FuncHandler {
	if name == "" {
		name = fmt.Sprintf("func-handler-%d", time.Now().UnixNano())
	}
	return &FuncHandler{name: name, fn: fn}
}

func (h *FuncHandler) Handle(event DomainEvent) error {
	return h.fn(event)
}

func (h *FuncHandler) Name() string {
	return h.name
}

var _ EventPublisher = (*EventBus)(nil)
