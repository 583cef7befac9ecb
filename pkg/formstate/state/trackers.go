package state

import "github.com/randalmurphal/formstate/pkg/formstate/event"

var (
	formStates  = []State{Pristine, Dirty, Valid, Invalid, Pending, Submitted}
	fieldStates = []State{Pristine, Dirty, Valid, Invalid, Pending, Touched}
)

// FormTracker tracks the lifecycle flags of a form.
type FormTracker struct {
	*Tracker
}

// NewFormTracker creates a form tracker in the {PRISTINE} state.
func NewFormTracker(formID string, bus *event.Bus) *FormTracker {
	return &FormTracker{Tracker: newTracker(TargetForm, formID, bus, formStates)}
}

// FieldTracker tracks the lifecycle flags of a field.
type FieldTracker struct {
	*Tracker
}

// NewFieldTracker creates a field tracker in the {PRISTINE} state.
func NewFieldTracker(fieldID string, bus *event.Bus) *FieldTracker {
	return &FieldTracker{Tracker: newTracker(TargetField, fieldID, bus, fieldStates)}
}

// mark adds a state known to be supported.
func (t *Tracker) mark(s State) {
	_, _ = t.Add(s)
}

// IsPristine reports whether the value equals its initial value.
func (t *Tracker) IsPristine() bool { return t.Has(Pristine) }

// IsDirty reports whether the value differs from its initial value.
func (t *Tracker) IsDirty() bool { return t.Has(Dirty) }

// IsValid reports whether the last validation passed.
func (t *Tracker) IsValid() bool { return t.Has(Valid) }

// IsInvalid reports whether the last validation failed.
func (t *Tracker) IsInvalid() bool { return t.Has(Invalid) }

// IsPending reports whether a validation is in flight.
func (t *Tracker) IsPending() bool { return t.Has(Pending) }

// MarkDirty adds DIRTY, removing PRISTINE.
func (t *Tracker) MarkDirty() { t.mark(Dirty) }

// MarkPristine adds PRISTINE, removing DIRTY.
func (t *Tracker) MarkPristine() { t.mark(Pristine) }

// MarkValid adds VALID, removing INVALID and PENDING.
func (t *Tracker) MarkValid() { t.mark(Valid) }

// MarkInvalid adds INVALID, removing VALID and PENDING.
func (t *Tracker) MarkInvalid() { t.mark(Invalid) }

// MarkPending adds PENDING, removing VALID and INVALID.
func (t *Tracker) MarkPending() { t.mark(Pending) }

// SetDirty marks DIRTY when dirty is true, PRISTINE otherwise.
func (t *Tracker) SetDirty(dirty bool) {
	if dirty {
		t.MarkDirty()
	} else {
		t.MarkPristine()
	}
}

// SetValidity marks VALID when valid is true, INVALID otherwise.
func (t *Tracker) SetValidity(valid bool) {
	if valid {
		t.MarkValid()
	} else {
		t.MarkInvalid()
	}
}

// ClearValidity drops VALID, INVALID and PENDING.
func (t *Tracker) ClearValidity() {
	for _, s := range validityAxis {
		_, _ = t.Remove(s)
	}
}

// IsSubmitted reports whether the form has been submitted.
func (t *FormTracker) IsSubmitted() bool { return t.Has(Submitted) }

// MarkSubmitted adds SUBMITTED.
func (t *FormTracker) MarkSubmitted() { t.mark(Submitted) }

// IsTouched reports whether the field has received a value.
func (t *FieldTracker) IsTouched() bool { return t.Has(Touched) }

// MarkTouched adds TOUCHED. Returns true if the field was untouched.
func (t *FieldTracker) MarkTouched() bool {
	changed, _ := t.Add(Touched)
	return changed
}

// MarkUntouched removes TOUCHED.
func (t *FieldTracker) MarkUntouched() {
	_, _ = t.Remove(Touched)
}
