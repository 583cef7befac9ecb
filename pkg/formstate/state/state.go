// Package state tracks the lifecycle flags of forms and fields.
//
// A Tracker holds a set of States. States are grouped into exclusivity
// axes ({PRISTINE, DIRTY} and {VALID, INVALID, PENDING}); adding one member
// of an axis removes the others first, so a tracker never holds two
// members of the same axis. SUBMITTED and TOUCHED are independent flags.
//
// Every membership change is emitted on the tracker's bus as a
// "state:change" event, one event per added or removed state.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
)

// State is a single lifecycle flag.
type State string

// Lifecycle flags.
const (
	Pristine  State = "PRISTINE"
	Dirty     State = "DIRTY"
	Valid     State = "VALID"
	Invalid   State = "INVALID"
	Pending   State = "PENDING"
	Submitted State = "SUBMITTED"
	Touched   State = "TOUCHED"
)

// Action describes a membership change.
type Action string

// Membership change actions.
const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Target identifies what kind of object a tracker belongs to.
type Target string

// Tracker targets.
const (
	TargetForm  Target = "form"
	TargetField Target = "field"
)

// Change is the payload of a "state:change" event.
type Change struct {
	Target Target
	ID     string
	State  State
	Action Action
}

// TopicChange is the typed "state:change" topic.
var TopicChange = event.NewTopic[Change](event.StateChange)

// ErrUnsupportedState indicates a state the tracker does not know about,
// such as TOUCHED on a form tracker.
var ErrUnsupportedState = errors.New("unsupported state")

// Exclusivity axes shared by forms and fields.
var (
	dirtinessAxis = []State{Pristine, Dirty}
	validityAxis  = []State{Valid, Invalid, Pending}
)

// Tracker is a set of lifecycle flags with exclusivity enforcement.
// It is safe for concurrent use; events are emitted after the tracker's
// lock is released.
type Tracker struct {
	target Target
	id     string
	bus    *event.Bus

	// known lists the accepted states in canonical order.
	known []State
	axes  [][]State

	mu     sync.Mutex
	states map[State]struct{}
}

func newTracker(target Target, id string, bus *event.Bus, known []State) *Tracker {
	return &Tracker{
		target: target,
		id:     id,
		bus:    bus,
		known:  known,
		axes:   [][]State{dirtinessAxis, validityAxis},
		states: map[State]struct{}{Pristine: {}},
	}
}

// Has reports whether s is currently held.
func (t *Tracker) Has(s State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.states[s]
	return ok
}

// Add adds s, first removing any other member of its exclusivity axis.
// Returns true if membership changed.
func (t *Tracker) Add(s State) (bool, error) {
	if !t.supports(s) {
		return false, t.unsupported(s)
	}

	t.mu.Lock()
	changes := t.addLocked(s)
	t.mu.Unlock()

	t.emit(changes)
	return len(changes) > 0, nil
}

// Remove removes s. Returns true if it was held.
func (t *Tracker) Remove(s State) (bool, error) {
	if !t.supports(s) {
		return false, t.unsupported(s)
	}

	t.mu.Lock()
	changes := t.removeLocked(s)
	t.mu.Unlock()

	t.emit(changes)
	return len(changes) > 0, nil
}

// States returns the held states in canonical order.
func (t *Tracker) States() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderedLocked()
}

// SetStates makes the held set equal to list, emitting only the
// differences. When list names several members of one axis, the last one
// wins.
func (t *Tracker) SetStates(list []State) error {
	for _, s := range list {
		if !t.supports(s) {
			return t.unsupported(s)
		}
	}

	want := make(map[State]struct{}, len(list))
	for _, s := range list {
		if axis := t.axisOf(s); axis != nil {
			for _, other := range axis {
				delete(want, other)
			}
		}
		want[s] = struct{}{}
	}

	t.mu.Lock()
	var changes []Change
	for _, s := range t.orderedLocked() {
		if _, keep := want[s]; !keep {
			changes = append(changes, t.removeLocked(s)...)
		}
	}
	for _, s := range t.known {
		if _, ok := want[s]; ok {
			changes = append(changes, t.addLocked(s)...)
		}
	}
	t.mu.Unlock()

	t.emit(changes)
	return nil
}

// Clear removes every held state.
func (t *Tracker) Clear() {
	t.mu.Lock()
	var changes []Change
	for _, s := range t.orderedLocked() {
		changes = append(changes, t.removeLocked(s)...)
	}
	t.mu.Unlock()

	t.emit(changes)
}

// addLocked returns the changes needed to add s. Caller holds t.mu.
func (t *Tracker) addLocked(s State) []Change {
	if _, ok := t.states[s]; ok {
		return nil
	}

	var changes []Change
	if axis := t.axisOf(s); axis != nil {
		for _, other := range axis {
			if other != s {
				changes = append(changes, t.removeLocked(other)...)
			}
		}
	}

	t.states[s] = struct{}{}
	return append(changes, t.change(s, ActionAdd))
}

// removeLocked returns the change for removing s, if held. Caller holds t.mu.
func (t *Tracker) removeLocked(s State) []Change {
	if _, ok := t.states[s]; !ok {
		return nil
	}
	delete(t.states, s)
	return []Change{t.change(s, ActionRemove)}
}

func (t *Tracker) orderedLocked() []State {
	out := make([]State, 0, len(t.states))
	for _, s := range t.known {
		if _, ok := t.states[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (t *Tracker) change(s State, action Action) Change {
	return Change{Target: t.target, ID: t.id, State: s, Action: action}
}

func (t *Tracker) emit(changes []Change) {
	for _, c := range changes {
		event.Publish(t.bus, TopicChange, c)
	}
}

func (t *Tracker) axisOf(s State) []State {
	for _, axis := range t.axes {
		for _, member := range axis {
			if member == s {
				return axis
			}
		}
	}
	return nil
}

func (t *Tracker) supports(s State) bool {
	for _, k := range t.known {
		if k == s {
			return true
		}
	}
	return false
}

func (t *Tracker) unsupported(s State) error {
	return fmt.Errorf("%s %s: %w: %q", t.target, t.id, ErrUnsupportedState, s)
}
