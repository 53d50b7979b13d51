package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	name        string
	occurredOn  time.Time
	aggregateID string
}

func (e *testEvent) EventName() string      { return e.name }
func (e *testEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *testEvent) GetAggregateID() string { return e.aggregateID }

type vetoableTestEvent struct {
	testEvent
	VetoFlag
}

func newTestEvent(name string) *testEvent {
	return &testEvent{name: name, occurredOn: time.Now(), aggregateID: "agg-1"}
}

func TestPublishDispatchesInRegistrationOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		require.NoError(t, bus.Subscribe("e", NewFuncHandler(name, func(DomainEvent) error {
			calls = append(calls, name)
			return nil
		})))
	}

	require.NoError(t, bus.Publish(newTestEvent("e")))
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestPublishIsolatesHandlerFailures(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	boom := errors.New("boom")

	require.NoError(t, bus.Subscribe("e", NewFuncHandler("fails", func(DomainEvent) error {
		calls = append(calls, "fails")
		return boom
	})))
	require.NoError(t, bus.Subscribe("e", NewFuncHandler("panics", func(DomainEvent) error {
		calls = append(calls, "panics")
		panic("kaboom")
	})))
	require.NoError(t, bus.Subscribe("e", NewFuncHandler("works", func(DomainEvent) error {
		calls = append(calls, "works")
		return nil
	})))

	err := bus.Publish(newTestEvent("e"))
	assert.Equal(t, []string{"fails", "panics", "works"}, calls,
		"every handler must run despite earlier failures")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubscriberFailed)

	var subErr *SubscriberError
	require.ErrorAs(t, err, &subErr)
	assert.Len(t, subErr.Failures, 2)
	assert.ErrorIs(t, subErr.Failures["fails"], boom)
	assert.Contains(t, subErr.Failures["panics"].Error(), "panicked")
}

func TestPublishWithNoHandlers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.Publish(newTestEvent("nobody-listens")))
}

func TestSubscribeRejectsDuplicateHandlerName(t *testing.T) {
	bus := NewEventBus()
	h := NewFuncHandler("dup", func(DomainEvent) error { return nil })
	require.NoError(t, bus.Subscribe("e", h))
	assert.Error(t, bus.Subscribe("e", h))
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	called := false
	h := NewFuncHandler("h", func(DomainEvent) error {
		called = true
		return nil
	})
	require.NoError(t, bus.Subscribe("e", h))
	require.NoError(t, bus.Unsubscribe("e", h))
	require.NoError(t, bus.Publish(newTestEvent("e")))
	assert.False(t, called)

	assert.NoError(t, bus.Unsubscribe("e", h), "removing an unknown handler is a no-op")
}

func TestValidateEvent(t *testing.T) {
	assert.Error(t, ValidateEvent(nil))
	assert.Error(t, ValidateEvent(&testEvent{name: "", occurredOn: time.Now(), aggregateID: "a"}))
	assert.Error(t, ValidateEvent(&testEvent{name: "e", occurredOn: time.Now(), aggregateID: ""}))
	assert.Error(t, ValidateEvent(&testEvent{name: "e", aggregateID: "a"}))
	assert.NoError(t, ValidateEvent(newTestEvent("e")))
}

func TestVetoLastWriteWins(t *testing.T) {
	bus := NewEventBus()
	require.NoError(t, bus.Subscribe("e", NewFuncHandler("vetoes", func(e DomainEvent) error {
		e.(Vetoable).SetRollback(true, "not enough stock")
		return nil
	})))
	require.NoError(t, bus.Subscribe("e", NewFuncHandler("clears", func(e DomainEvent) error {
		e.(Vetoable).SetRollback(false, "")
		return nil
	})))

	event := &vetoableTestEvent{testEvent: *newTestEvent("e")}
	require.NoError(t, bus.Publish(event))
	assert.False(t, event.RollbackRequested(),
		"the handler registered last has the final say")

	// Registration order reversed: the veto sticks.
	bus2 := NewEventBus()
	require.NoError(t, bus2.Subscribe("e", NewFuncHandler("clears", func(e DomainEvent) error {
		e.(Vetoable).SetRollback(false, "")
		return nil
	})))
	require.NoError(t, bus2.Subscribe("e", NewFuncHandler("vetoes", func(e DomainEvent) error {
		e.(Vetoable).SetRollback(true, "not enough stock")
		return nil
	})))

	event2 := &vetoableTestEvent{testEvent: *newTestEvent("e")}
	require.NoError(t, bus2.Publish(event2))
	assert.True(t, event2.RollbackRequested())
	assert.Equal(t, "not enough stock", event2.RollbackReason())
}
