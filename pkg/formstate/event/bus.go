package event

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
)

// Listener receives emitted events.
type Listener func(evt Event)

// ListenerID identifies a registration so it can be removed with Off.
type ListenerID uint64

// BusConfig configures bus behavior.
type BusConfig struct {
	// Logger receives listener panics.
	// Default: slog.Default()
	Logger *slog.Logger

	// OnPanic is called after a listener panic has been recovered and logged.
	OnPanic func(evt Event, id ListenerID, recovered any)
}

// Bus is a synchronous publish/subscribe hub.
//
// Emit runs listeners in registration order, in the caller's goroutine,
// over a snapshot of the listener list: listeners may register or remove
// listeners (including themselves) while being dispatched. A listener that
// panics is recovered and logged and never stops delivery to the listeners
// after it.
//
// Bus is safe for concurrent use. A nil *Bus accepts every call and
// delivers nothing.
type Bus struct {
	config BusConfig

	mu        sync.RWMutex
	listeners map[string][]*registration

	nextID atomic.Uint64
}

type registration struct {
	id    ListenerID
	fn    Listener
	fired atomic.Bool // once registrations only
	once  bool
}

// NewBus creates a bus.
func NewBus(config BusConfig) *Bus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Bus{
		config:    config,
		listeners: make(map[string][]*registration),
	}
}

// On registers a listener for an event name.
func (b *Bus) On(name string, fn Listener) ListenerID {
	return b.add(name, fn, false)
}

// Once registers a listener that is removed before its first invocation,
// so a reentrant Emit of the same event cannot fire it twice.
func (b *Bus) Once(name string, fn Listener) ListenerID {
	return b.add(name, fn, true)
}

func (b *Bus) add(name string, fn Listener, once bool) ListenerID {
	if b == nil || fn == nil {
		return 0
	}

	reg := &registration{
		id:   ListenerID(b.nextID.Add(1)),
		fn:   fn,
		once: once,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], reg)
	return reg.id
}

// Off removes a listener. Returns false if it was not registered.
func (b *Bus) Off(name string, id ListenerID) bool {
	if b == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.listeners[name]
	for i, reg := range regs {
		if reg.id != id {
			continue
		}
		// Copy instead of shifting in place: in-flight snapshots share
		// the old backing array.
		next := make([]*registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		if len(next) == 0 {
			delete(b.listeners, name)
		} else {
			b.listeners[name] = next
		}
		return true
	}
	return false
}

// Emit delivers payload to every listener registered for name.
func (b *Bus) Emit(name string, payload any) {
	if b == nil {
		return
	}

	b.mu.RLock()
	snapshot := b.listeners[name]
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	evt := newEvent(name, payload)
	for _, reg := range snapshot {
		if reg.once {
			if !reg.fired.CompareAndSwap(false, true) {
				continue
			}
			b.Off(name, reg.id)
		}
		b.dispatch(evt, reg)
	}
}

// dispatch runs one listener, recovering a panic.
func (b *Bus) dispatch(evt Event, reg *registration) {
	defer func() {
		if r := recover(); r != nil {
			b.config.Logger.Error("event listener panicked",
				slog.String("event", evt.Name),
				slog.Uint64("listener_id", uint64(reg.id)),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			if b.config.OnPanic != nil {
				b.config.OnPanic(evt, reg.id, r)
			}
		}
	}()
	reg.fn(evt)
}

// ListenerCount returns the number of listeners registered for name.
func (b *Bus) ListenerCount(name string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// EventNames returns the names that have at least one listener, sorted.
func (b *Bus) EventNames() []string {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveAllListeners removes the listeners for the given names,
// or every listener when called with no names.
func (b *Bus) RemoveAllListeners(names ...string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(names) == 0 {
		b.listeners = make(map[string][]*registration)
		return
	}
	for _, name := range names {
		delete(b.listeners, name)
	}
}
