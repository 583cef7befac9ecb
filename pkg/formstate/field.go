package formstate

import (
	"context"

	"github.com/google/uuid"
	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/observability"
	"github.com/randalmurphal/formstate/pkg/formstate/path"
	"github.com/randalmurphal/formstate/pkg/formstate/state"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// FieldConfig declares a field.
type FieldConfig struct {
	// Name is the field's dot-path in the form data.
	Name string

	// Label is a display name. It is not used by the engine.
	Label string

	// InitialValue seeds the form data when the field is registered.
	InitialValue any

	// DefaultValue is used when InitialValue is nil.
	DefaultValue any

	// Rules is the field's validation chain, run in order.
	Rules []validator.Rule

	// StopOnFirstError stops the chain at the first failing rule.
	StopOnFirstError bool
}

func (c FieldConfig) seed() any {
	if c.InitialValue != nil {
		return c.InitialValue
	}
	return c.DefaultValue
}

// Field is a named slot in a form's data tree with its own lifecycle
// flags and validation chain.
//
// A field's value always mirrors the form data at its path; writes on
// either side are reflected on the other. Field shares its form's lock.
type Field struct {
	id      string
	name    string
	cfg     FieldConfig
	form    *Form
	tracker *state.FieldTracker

	// Guarded by form.mu.
	value        any
	initialValue any
	validation   *validator.Result
	destroyed    bool

	// generation counts value changes. Background validations commit
	// only when the generation they started at is still current.
	generation   uint64
	validatedGen uint64
	pending      int
}

// NewField creates a field bound to form without registering it.
// Form.RegisterField is the usual way to add a field.
//
// Its initial value is InitialValue, then DefaultValue, then whatever
// the form data holds at the field's path.
func NewField(cfg FieldConfig, form *Form) (*Field, error) {
	if form == nil {
		return nil, fieldErr(cfg.Name, "create", ErrNilForm)
	}
	if cfg.Name == "" {
		return nil, fieldErr(cfg.Name, "create", ErrFieldNameRequired)
	}

	id := uuid.New().String()
	fd := &Field{
		id:      id,
		name:    cfg.Name,
		cfg:     cfg,
		form:    form,
		tracker: state.NewFieldTracker(id, form.bus),
	}

	form.mu.Lock()
	initial := cfg.seed()
	if initial == nil {
		initial = path.Lookup(form.data, cfg.Name)
	}
	fd.value = path.Clone(initial)
	fd.initialValue = path.Clone(initial)
	form.mu.Unlock()

	return fd, nil
}

// ID returns the field's unique identifier.
func (fd *Field) ID() string { return fd.id }

// Name returns the field's dot-path.
func (fd *Field) Name() string { return fd.name }

// Label returns the configured label.
func (fd *Field) Label() string { return fd.cfg.Label }

// Config returns the field's configuration.
func (fd *Field) Config() FieldConfig { return fd.cfg }

// Form returns the owning form.
func (fd *Field) Form() *Form { return fd.form }

// Value returns a copy of the current value.
func (fd *Field) Value() any {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return path.Clone(fd.value)
}

// GetValue is an alias for Value.
func (fd *Field) GetValue() any { return fd.Value() }

// InitialValue returns a copy of the value dirtiness is measured against.
func (fd *Field) InitialValue() any {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return path.Clone(fd.initialValue)
}

// Validation returns the latest validation result, or nil.
func (fd *Field) Validation() *validator.Result {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	if fd.validation == nil {
		return nil
	}
	r := *fd.validation
	return &r
}

// Destroyed reports whether Destroy has been called on the field or
// its form.
func (fd *Field) Destroyed() bool {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return fd.destroyed || fd.form.destroyed
}

// States returns the field's lifecycle flags.
func (fd *Field) States() []state.State { return fd.tracker.States() }

// HasState reports whether s is held.
func (fd *Field) HasState(s state.State) bool { return fd.tracker.Has(s) }

// IsDirty reports whether the value differs from the initial value.
func (fd *Field) IsDirty() bool { return fd.tracker.IsDirty() }

// IsTouched reports whether the field has received a value.
func (fd *Field) IsTouched() bool { return fd.tracker.IsTouched() }

// IsValid reports whether the last validation passed.
func (fd *Field) IsValid() bool { return fd.tracker.IsValid() }

// AddState adds s, enforcing exclusivity.
func (fd *Field) AddState(s state.State) error {
	if err := fd.guard("add state"); err != nil {
		return err
	}
	_, err := fd.tracker.Add(s)
	return err
}

// RemoveState removes s.
func (fd *Field) RemoveState(s state.State) error {
	if err := fd.guard("remove state"); err != nil {
		return err
	}
	_, err := fd.tracker.Remove(s)
	return err
}

// SetStates replaces the held flags with list.
func (fd *Field) SetStates(list []state.State) error {
	if err := fd.guard("set states"); err != nil {
		return err
	}
	return fd.tracker.SetStates(list)
}

// SetValue writes value to the field and the form data.
//
// Writing a value deeply equal to the current one is a no-op apart from
// marking the field touched. Otherwise it recomputes dirtiness, emits
// "field:change" and "form:change", and validates the change-trigger
// rules in the background.
func (fd *Field) SetValue(value any, opts ...SetOption) error {
	return fd.form.write(fd.name, value, buildSetOptions(opts), fd, "set value")
}

// Touch marks the field TOUCHED, emitting "field:touch" the first time.
func (fd *Field) Touch() error {
	if err := fd.guard("touch"); err != nil {
		return err
	}
	fd.touch(false)
	return nil
}

// Untouch removes TOUCHED.
func (fd *Field) Untouch() error {
	if err := fd.guard("untouch"); err != nil {
		return err
	}
	fd.tracker.MarkUntouched()
	return nil
}

func (fd *Field) touch(silent bool) {
	if fd.tracker.MarkTouched() && !silent {
		event.Publish(fd.form.bus, TopicFieldTouch, FieldPayload{FieldName: fd.name})
	}
}

// Reset restores the initial value and clears dirty, touched and
// validation state. ResetTo also makes the given value the new initial
// value.
func (fd *Field) Reset(opts ...ResetOption) error {
	o := buildResetOptions(opts)
	f := fd.form

	f.mu.Lock()
	if err := fd.guardLocked("reset"); err != nil {
		f.mu.Unlock()
		return err
	}

	registered := f.isRegisteredLocked(fd)
	target := fd.initialValue
	if o.hasValue {
		target = o.value
		fd.initialValue = path.Clone(target)
		if registered {
			path.Set(f.initial, fd.name, path.Clone(target))
		}
	}

	old := path.Clone(fd.value)
	if _, seeded := path.Get(f.initial, fd.name); target == nil && !seeded {
		path.Delete(f.data, fd.name)
	} else {
		path.Set(f.data, fd.name, path.Clone(target))
	}
	fd.value = path.Clone(target)
	fd.generation++
	updates := f.syncLocked(fd.name, fd)

	if !o.keepValidation {
		fd.validation = nil
		delete(f.validation, fd.name)
	}
	formDirty := f.dirtyLocked()
	value := path.Clone(fd.value)
	formData := path.CloneTree(f.data)
	f.mu.Unlock()

	f.applyDirty(updates, formDirty)
	if !o.keepState {
		fd.tracker.MarkPristine()
		fd.tracker.MarkUntouched()
	}
	if !o.keepValidation {
		fd.tracker.ClearValidity()
	}

	if !o.silent {
		ev := ChangeEvent{FieldName: fd.name, Value: value, OldValue: old, Type: ChangeTypeReset}
		event.Publish(f.bus, TopicFieldChange, ev)
		ev.FormData = formData
		event.Publish(f.bus, TopicFormChange, ev)
	}
	return nil
}

// Validate runs the field's rule chain against its current value and
// records the merged result. A field without rules validates as valid.
func (fd *Field) Validate(ctx context.Context, opts ...ValidateOption) (validator.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := buildValidateOptions(opts)
	f := fd.form

	f.mu.Lock()
	if err := fd.guardLocked("validate"); err != nil {
		f.mu.Unlock()
		return validator.Result{}, err
	}
	rules := fd.cfg.Rules
	if o.hasRules {
		rules = o.rules
	}
	rules = validator.FilterRules(rules, o.trigger)
	stop := fd.cfg.StopOnFirstError
	if o.stop != nil {
		stop = *o.stop
	}
	value := path.Clone(fd.value)
	values := path.Flatten(path.CloneTree(f.data))
	gen := fd.generation
	f.mu.Unlock()

	for k, v := range o.contextValues {
		values[k] = v
	}

	result := validator.Pass()
	if len(rules) > 0 {
		fd.tracker.MarkPending()
		vc := validator.Context{FieldName: fd.name, Values: values}
		result = validator.Merge(f.executor.ExecuteRules(ctx, rules, value, vc, stop))
	}

	if !fd.commit(result, gen) {
		return result, fieldErr(fd.name, "validate", ErrDestroyed)
	}
	return result, nil
}

// commit records a validation result. Returns false if the field was
// destroyed in the meantime.
func (fd *Field) commit(result validator.Result, gen uint64) bool {
	f := fd.form
	f.mu.Lock()
	if fd.destroyed || f.destroyed {
		f.mu.Unlock()
		return false
	}
	stored := result
	fd.validation = &stored
	fd.validatedGen = gen
	if f.isRegisteredLocked(fd) {
		f.validation[fd.name] = result
	}
	f.mu.Unlock()

	fd.tracker.SetValidity(result.Valid)
	event.Publish(f.bus, TopicFieldValidate, FieldValidatePayload{FieldName: fd.name, Result: result})
	return true
}

// ClearValidation drops the field's validation result and validity flags.
func (fd *Field) ClearValidation() error {
	f := fd.form
	f.mu.Lock()
	if err := fd.guardLocked("clear validation"); err != nil {
		f.mu.Unlock()
		return err
	}
	fd.validation = nil
	if f.isRegisteredLocked(fd) {
		delete(f.validation, fd.name)
	}
	f.mu.Unlock()

	fd.tracker.ClearValidity()
	return nil
}

// OnChange subscribes to "field:change" events for this field.
func (fd *Field) OnChange(fn func(ChangeEvent)) event.ListenerID {
	return event.Subscribe(fd.form.bus, TopicFieldChange, func(ev ChangeEvent) {
		if ev.FieldName == fd.name {
			fn(ev)
		}
	})
}

// OnValidate subscribes to "field:validate" events for this field.
func (fd *Field) OnValidate(fn func(validator.Result)) event.ListenerID {
	return event.Subscribe(fd.form.bus, TopicFieldValidate, func(p FieldValidatePayload) {
		if p.FieldName == fd.name {
			fn(p.Result)
		}
	})
}

// Off removes a listener added with OnChange or OnValidate.
func (fd *Field) Off(id event.ListenerID) bool {
	if fd.form.bus.Off(event.FieldChange, id) {
		return true
	}
	return fd.form.bus.Off(event.FieldValidate, id)
}

// Destroy clears the field's flags, detaches it from its form and emits
// "field:destroy". The form data at its path is left in place.
// Calling Destroy again does nothing.
func (fd *Field) Destroy() {
	f := fd.form
	f.mu.Lock()
	if fd.destroyed {
		f.mu.Unlock()
		return
	}
	if f.isRegisteredLocked(fd) {
		f.fields.Delete(fd.name)
		delete(f.validation, fd.name)
	}
	f.mu.Unlock()

	fd.destroy()
}

func (fd *Field) destroy() {
	f := fd.form
	f.mu.Lock()
	if fd.destroyed {
		f.mu.Unlock()
		return
	}
	fd.destroyed = true
	fd.generation++
	f.mu.Unlock()

	fd.tracker.Clear()
	event.Publish(f.bus, TopicFieldDestroy, FieldPayload{FieldName: fd.name})
}

func (fd *Field) guard(op string) error {
	fd.form.mu.Lock()
	defer fd.form.mu.Unlock()
	return fd.guardLocked(op)
}

// guardLocked fails when the field or its form is destroyed.
// Caller holds form.mu.
func (fd *Field) guardLocked(op string) error {
	if fd.destroyed || fd.form.destroyed {
		return fieldErr(fd.name, op, ErrDestroyed)
	}
	return nil
}

// scheduleValidation runs the change-trigger rules on a goroutine.
// PENDING is set before it returns. The result is dropped if the value
// changes before it commits, unless WithStaleValidationCommit is set.
func (fd *Field) scheduleValidation() {
	rules := validator.FilterRules(fd.cfg.Rules, validator.TriggerChange)
	if len(rules) == 0 {
		return
	}
	f := fd.form

	f.mu.Lock()
	if fd.destroyed || f.destroyed {
		f.mu.Unlock()
		return
	}
	fd.pending++
	gen := fd.generation
	value := path.Clone(fd.value)
	values := path.Flatten(path.CloneTree(f.data))
	f.wg.Add(1)
	f.mu.Unlock()

	fd.tracker.MarkPending()
	go fd.runBackground(rules, value, values, gen)
}

func (fd *Field) runBackground(rules []validator.Rule, value any, values map[string]any, gen uint64) {
	f := fd.form
	defer f.wg.Done()

	var result validator.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				observability.LogBackgroundValidationError(observability.EnrichLogger(f.logger, f.id, ""), fd.name, &validator.PanicError{Validator: "chain", Value: r})
				result = validator.Fail(validator.CodeError, "validation failed")
			}
		}()
		vc := validator.Context{FieldName: fd.name, Values: values}
		result = validator.Merge(f.executor.ExecuteRules(f.ctx, rules, value, vc, fd.cfg.StopOnFirstError))
	}()

	f.mu.Lock()
	fd.pending--
	if fd.destroyed || f.destroyed {
		f.mu.Unlock()
		return
	}
	if !f.cfg.staleCommit && gen != fd.generation {
		current := fd.generation
		// Nothing newer will settle the flags: drop PENDING.
		settle := fd.pending == 0 && fd.validatedGen != current
		f.mu.Unlock()

		observability.LogStaleValidation(observability.EnrichLogger(f.logger, f.id, ""), fd.name, gen, current)
		if settle {
			fd.tracker.ClearValidity()
		}
		return
	}
	f.mu.Unlock()

	fd.commit(result, gen)
}
