package event

import (
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the form engine. These strings are the public
// contract UI adapters subscribe to.
const (
	FormChange   = "form:change"
	FormSubmit   = "form:submit"
	FormReset    = "form:reset"
	FormValidate = "form:validate"
	FormDestroy  = "form:destroy"

	FieldChange     = "field:change"
	FieldValidate   = "field:validate"
	FieldTouch      = "field:touch"
	FieldRegister   = "field:register"
	FieldUnregister = "field:unregister"
	FieldDestroy    = "field:destroy"

	StateChange = "state:change"

	ValidationStart = "validation:start"
	ValidationEnd   = "validation:end"
	ValidationError = "validation:error"
)

// Event is a single emission delivered to listeners.
// Events are immutable once created.
type Event struct {
	// ID uniquely identifies this emission.
	ID string

	// Name is the event name (e.g. "form:change").
	Name string

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Payload is the event data. Its concrete type is fixed per event
	// name; use a Topic for typed access.
	Payload any
}

// newEvent creates an event with a fresh ID.
func newEvent(name string, payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      name,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Topic binds an event name to its payload type so subscriptions and
// emissions are checked at compile time.
//
//	var Saved = event.NewTopic[SavedPayload]("doc:saved")
//	event.Subscribe(bus, Saved, func(p SavedPayload) { ... })
//	event.Publish(bus, Saved, SavedPayload{...})
type Topic[T any] struct {
	name string
}

// NewTopic creates a typed topic for the given event name.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the event name.
func (t Topic[T]) Name() string {
	return t.name
}

// Subscribe registers a typed listener for a topic.
// Emissions on the topic's name whose payload is not a T are ignored.
func Subscribe[T any](b *Bus, t Topic[T], fn func(T)) ListenerID {
	return b.On(t.name, typed(fn))
}

// SubscribeOnce registers a typed listener that fires at most once.
func SubscribeOnce[T any](b *Bus, t Topic[T], fn func(T)) ListenerID {
	return b.Once(t.name, typed(fn))
}

// Publish emits a typed payload on a topic.
func Publish[T any](b *Bus, t Topic[T], payload T) {
	b.Emit(t.name, payload)
}

func typed[T any](fn func(T)) Listener {
	return func(evt Event) {
		if p, ok := evt.Payload.(T); ok {
			fn(p)
		}
	}
}
