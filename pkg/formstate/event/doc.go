// Package event provides the publish/subscribe hub shared by a form and
// all of its fields.
//
// # Overview
//
// A Bus is the only channel through which UI adapters observe form state
// without polling. Every Form owns one Bus; its Fields, state trackers and
// validator executor emit on it.
//
// Delivery is synchronous: Emit calls each listener in registration order
// in the emitting goroutine and returns when all have run. The listener
// list is snapshotted before dispatch, so listeners can subscribe and
// unsubscribe reentrantly without affecting the emission in progress.
//
// # Untyped Listeners
//
//	bus := event.NewBus(event.BusConfig{})
//	id := bus.On(event.FormChange, func(evt event.Event) {
//	    fmt.Println(evt.Name, evt.Payload)
//	})
//	defer bus.Off(event.FormChange, id)
//
// # Typed Topics
//
// Packages that emit events declare a Topic per event name, binding the
// name to its payload type:
//
//	var TopicFormChange = event.NewTopic[ChangeEvent](event.FormChange)
//
//	event.Subscribe(bus, TopicFormChange, func(c ChangeEvent) {
//	    fmt.Println(c.FieldName, c.Value)
//	})
//
// # Failure Isolation
//
// A listener that panics is recovered and logged through BusConfig.Logger;
// the remaining listeners still receive the event. BusConfig.OnPanic can be
// used to surface these in tests or metrics.
//
// # Once
//
// Once registers a listener that removes itself before it runs. Even when a
// listener re-emits the same event from inside a dispatch, a Once listener
// fires exactly one time.
package event
