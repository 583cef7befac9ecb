package formstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/observability"
	"github.com/randalmurphal/formstate/pkg/formstate/path"
	"github.com/randalmurphal/formstate/pkg/formstate/registry"
	"github.com/randalmurphal/formstate/pkg/formstate/state"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// Config declares a form.
type Config struct {
	// ID identifies the form. Generated if empty.
	ID string

	// InitialValues seeds the data tree. It is copied, never retained.
	InitialValues map[string]any

	// Fields are registered in order.
	Fields []FieldConfig

	// Validators are registered into the form's validator registry.
	Validators map[string]validator.Func
}

// Form owns a nested data tree, the fields bound to paths in it, their
// validation results and the form's lifecycle flags. Every change is
// announced on the form's event bus.
//
// Form is safe for concurrent use. Events are emitted with no lock held,
// so listeners may call back into the form.
type Form struct {
	id       string
	cfg      formConfig
	logger   *slog.Logger
	bus      *event.Bus
	tracker  *state.FormTracker
	executor *validator.Executor

	// ctx is cancelled by Destroy; background validations run under it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards the fields below and every field's mutable state.
	mu         sync.Mutex
	data       map[string]any
	initial    map[string]any
	fields     *registry.Registry[string, *Field]
	validation map[string]validator.Result
	destroyed  bool
}

// fieldUpdate records a field whose value moved during a write.
type fieldUpdate struct {
	field *Field
	dirty bool
}

// New creates a form and registers cfg.Fields in order.
//
// Example:
//
//	form, err := formstate.New(formstate.Config{
//	    InitialValues: map[string]any{"email": ""},
//	    Fields: []formstate.FieldConfig{{
//	        Name:  "email",
//	        Rules: []validator.Rule{{Validator: validator.Named("required")}},
//	    }},
//	}, formstate.WithLogger(logger))
func New(cfg Config, opts ...Option) (*Form, error) {
	fc := defaultFormConfig()
	for _, opt := range opts {
		opt(&fc)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}
	logger := fc.logger
	scoped := observability.EnrichLogger(logger, id, "")

	reg := fc.registry
	if reg == nil {
		reg = validator.NewDefaultRegistry()
	}
	if len(cfg.Validators) > 0 {
		reg.RegisterMany(cfg.Validators)
	}

	bc := event.BusConfig{Logger: scoped}
	if fc.busConfig != nil {
		bc = *fc.busConfig
		if bc.Logger == nil {
			bc.Logger = scoped
		}
	}
	bus := event.NewBus(bc)

	ctx, cancel := context.WithCancel(fc.baseCtx)
	f := &Form{
		id:         id,
		cfg:        fc,
		logger:     logger,
		bus:        bus,
		tracker:    state.NewFormTracker(id, bus),
		ctx:        ctx,
		cancel:     cancel,
		data:       path.CloneTree(cfg.InitialValues),
		initial:    path.CloneTree(cfg.InitialValues),
		fields:     registry.New[string, *Field](),
		validation: make(map[string]validator.Result),
	}
	f.executor = validator.NewExecutor(reg,
		validator.WithBus(bus),
		validator.WithLogger(scoped),
		validator.WithMetrics(fc.metrics),
		validator.WithSpans(fc.spans),
		validator.WithConditions(validator.NewConditionEvaluator(fc.condOpts...)),
		validator.WithExpander(validator.NewExpander(fc.expanderOps...)),
	)

	for _, fieldCfg := range cfg.Fields {
		if _, err := f.RegisterField(fieldCfg); err != nil {
			cancel()
			return nil, err
		}
	}

	observability.LogFormCreated(logger, id, len(cfg.Fields))
	return f, nil
}

// ID returns the form identifier.
func (f *Form) ID() string { return f.id }

// Events returns the form's event bus.
func (f *Form) Events() *event.Bus { return f.bus }

// Registry returns the validator registry rules are resolved against.
func (f *Form) Registry() *validator.Registry { return f.executor.Registry() }

// Values returns a deep copy of the form data.
func (f *Form) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return path.CloneTree(f.data)
}

// Data is an alias for Values.
func (f *Form) Data() map[string]any { return f.Values() }

// FieldValue returns a copy of the value at name, or nil if absent.
func (f *Form) FieldValue(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return path.Clone(path.Lookup(f.data, name))
}

// InitialValue returns a copy of the initial value at name, or nil.
func (f *Form) InitialValue(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return path.Clone(path.Lookup(f.initial, name))
}

// Field returns the field registered under name.
func (f *Form) Field(name string) (*Field, bool) {
	return f.fields.Get(name)
}

// Fields returns the registered fields in registration order.
func (f *Form) Fields() []*Field {
	return f.fields.Values()
}

// FieldNames returns the registered field names in registration order.
func (f *Form) FieldNames() []string {
	return f.fields.Keys()
}

// Validation returns a copy of the latest result for every validated field.
func (f *Form) Validation() map[string]validator.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validationLocked()
}

func (f *Form) validationLocked() map[string]validator.Result {
	out := make(map[string]validator.Result, len(f.validation))
	for k, v := range f.validation {
		out[k] = v
	}
	return out
}

// States returns the form's lifecycle flags.
func (f *Form) States() []state.State { return f.tracker.States() }

// HasState reports whether s is held.
func (f *Form) HasState(s state.State) bool { return f.tracker.Has(s) }

// IsDirty reports whether any value differs from its initial value.
func (f *Form) IsDirty() bool { return f.tracker.IsDirty() }

// IsValid reports whether the last form validation passed.
func (f *Form) IsValid() bool { return f.tracker.IsValid() }

// IsSubmitted reports whether Submit has completed.
func (f *Form) IsSubmitted() bool { return f.tracker.IsSubmitted() }

// Destroyed reports whether Destroy has been called.
func (f *Form) Destroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

// SetFieldValue writes value at name. A field registered under name, or
// under a parent or child path, picks the change up without emitting its
// own change event.
func (f *Form) SetFieldValue(name string, value any, opts ...SetOption) error {
	if name == "" {
		return fieldErr(name, "set value", ErrFieldNameRequired)
	}
	return f.write(name, value, buildSetOptions(opts), nil, "set value")
}

// write stores value at name and propagates it. origin is the field the
// write came through, if any; it gets a "field:change" event and the
// touch. A write through the form touches the field registered at name.
func (f *Form) write(name string, value any, o setOptions, origin *Field, op string) error {
	f.mu.Lock()
	if origin != nil {
		if err := origin.guardLocked(op); err != nil {
			f.mu.Unlock()
			return err
		}
	}
	if f.destroyed {
		f.mu.Unlock()
		return formErr(f.id, op, ErrDestroyed)
	}

	target := origin
	if target == nil {
		target, _ = f.fields.Get(name)
	}

	old, _ := path.Get(f.data, name)
	next := path.Clone(value)
	if o.merge {
		next = mergeShallow(old, next)
	}
	if path.Equal(old, next) {
		f.mu.Unlock()
		if target != nil && !o.skipTouch {
			target.touch(o.silent)
		}
		return nil
	}

	oldValue := path.Clone(old)
	newValue := path.Clone(next)
	path.Set(f.data, name, next)
	updates := f.syncLocked(name, origin)
	formDirty := f.dirtyLocked()
	var formData map[string]any
	if !o.silent {
		formData = path.CloneTree(f.data)
	}
	f.mu.Unlock()

	f.applyDirty(updates, formDirty)

	if !o.silent {
		ev := ChangeEvent{FieldName: name, Value: newValue, OldValue: oldValue, Type: ChangeTypeChange}
		if origin != nil {
			event.Publish(f.bus, TopicFieldChange, ev)
		}
		ev.FormData = formData
		event.Publish(f.bus, TopicFormChange, ev)
	}

	if !o.skipValidation {
		for _, u := range updates {
			u.field.scheduleValidation()
		}
	}

	if target != nil && !o.skipTouch {
		target.touch(o.silent)
	}
	return nil
}

func mergeShallow(old, next any) any {
	om, ok := old.(map[string]any)
	if !ok {
		return next
	}
	nm, ok := next.(map[string]any)
	if !ok {
		return next
	}
	merged := path.CloneTree(om)
	for k, v := range nm {
		merged[k] = v
	}
	return merged
}

// SetValues writes several values at once. Each key is written as its
// own path; with Replace the whole tree is swapped for values.
// One "form:change" event of type set_values is emitted.
func (f *Form) SetValues(values map[string]any, opts ...SetOption) error {
	o := buildSetOptions(opts)

	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return formErr(f.id, "set values", ErrDestroyed)
	}

	old := path.CloneTree(f.data)
	if o.replace {
		f.data = path.CloneTree(values)
	} else {
		for _, k := range path.Keys(values) {
			path.Set(f.data, k, path.Clone(values[k]))
		}
	}
	if path.Equal(old, f.data) {
		f.mu.Unlock()
		return nil
	}

	updates := f.syncLocked("", nil)
	formDirty := f.dirtyLocked()
	formData := path.CloneTree(f.data)
	f.mu.Unlock()

	f.applyDirty(updates, formDirty)

	if !o.silent {
		event.Publish(f.bus, TopicFormChange, ChangeEvent{
			Value:    path.CloneTree(values),
			OldValue: old,
			FormData: formData,
			Type:     ChangeTypeSetValues,
		})
	}
	if !o.skipValidation {
		for _, u := range updates {
			u.field.scheduleValidation()
		}
	}
	return nil
}

// syncLocked copies the tree value into every field whose path is
// related to written ("" means every field). origin is included even
// when it is not registered. Caller holds f.mu.
func (f *Form) syncLocked(written string, origin *Field) []fieldUpdate {
	var updates []fieldUpdate
	visit := func(fd *Field) {
		if fd.destroyed || !path.Related(fd.name, written) {
			return
		}
		cur := path.Lookup(f.data, fd.name)
		if path.Equal(fd.value, cur) {
			return
		}
		fd.value = path.Clone(cur)
		fd.generation++
		updates = append(updates, fieldUpdate{field: fd, dirty: !path.Equal(fd.value, fd.initialValue)})
	}

	f.fields.Range(func(_ string, fd *Field) bool {
		visit(fd)
		return true
	})
	if origin != nil && !f.isRegisteredLocked(origin) {
		visit(origin)
	}
	return updates
}

// dirtyLocked reports whether any field or the tree itself differs from
// its initial value. Caller holds f.mu.
func (f *Form) dirtyLocked() bool {
	dirty := false
	f.fields.Range(func(_ string, fd *Field) bool {
		dirty = !path.Equal(fd.value, fd.initialValue)
		return !dirty
	})
	return dirty || !path.Equal(f.data, f.initial)
}

func (f *Form) applyDirty(updates []fieldUpdate, formDirty bool) {
	for _, u := range updates {
		u.field.tracker.SetDirty(u.dirty)
	}
	f.tracker.SetDirty(formDirty)
}

// isRegisteredLocked reports whether fd is the field registered under
// its name. Caller holds f.mu.
func (f *Form) isRegisteredLocked(fd *Field) bool {
	cur, ok := f.fields.Get(fd.name)
	return ok && cur == fd
}

// RegisterField creates a field and adds it to the form. A configured
// InitialValue or DefaultValue is written into both the data and the
// initial values; otherwise the field starts from the data at its path.
func (f *Form) RegisterField(cfg FieldConfig) (*Field, error) {
	fd, err := NewField(cfg, f)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return nil, formErr(f.id, "register field", ErrDestroyed)
	}
	if f.fields.Has(cfg.Name) {
		f.mu.Unlock()
		return nil, fieldErr(cfg.Name, "register", ErrFieldExists)
	}

	if seed := cfg.seed(); seed != nil {
		path.Set(f.data, cfg.Name, path.Clone(seed))
		path.Set(f.initial, cfg.Name, path.Clone(seed))
	}
	cur := path.Lookup(f.data, cfg.Name)
	fd.value = path.Clone(cur)
	fd.initialValue = path.Clone(cur)
	_ = f.fields.Add(cfg.Name, fd)

	updates := f.syncLocked(cfg.Name, nil)
	formDirty := f.dirtyLocked()
	f.mu.Unlock()

	f.applyDirty(updates, formDirty)
	event.Publish(f.bus, TopicFieldRegister, FieldPayload{FieldName: cfg.Name})
	return fd, nil
}

// UnregisterField removes a field, deletes its value from the data and
// the initial values, and destroys it.
func (f *Form) UnregisterField(name string) error {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return formErr(f.id, "unregister field", ErrDestroyed)
	}
	fd, ok := f.fields.Delete(name)
	if !ok {
		f.mu.Unlock()
		return fieldErr(name, "unregister", ErrFieldNotFound)
	}
	path.Delete(f.data, name)
	path.Delete(f.initial, name)
	delete(f.validation, name)

	updates := f.syncLocked(name, nil)
	formDirty := f.dirtyLocked()
	f.mu.Unlock()

	f.applyDirty(updates, formDirty)
	fd.destroy()
	event.Publish(f.bus, TopicFieldUnregister, FieldPayload{FieldName: name})
	return nil
}

// Reset restores every value to its initial value and clears dirty,
// touched, submitted and validation state. ResetValues replaces the
// initial values first.
func (f *Form) Reset(opts ...ResetOption) error {
	o := buildResetOptions(opts)

	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return formErr(f.id, "reset", ErrDestroyed)
	}

	if o.hasValues {
		f.initial = path.CloneTree(o.values)
	}
	f.data = path.CloneTree(f.initial)

	fields := f.fields.Values()
	for _, fd := range fields {
		if o.hasValues {
			if v, ok := path.Get(f.initial, fd.name); ok {
				fd.initialValue = path.Clone(v)
			} else if fd.initialValue != nil {
				path.Set(f.initial, fd.name, path.Clone(fd.initialValue))
				path.Set(f.data, fd.name, path.Clone(fd.initialValue))
			}
		}
		fd.value = path.Clone(path.Lookup(f.data, fd.name))
		fd.generation++
		if !o.keepValidation {
			fd.validation = nil
		}
	}
	if !o.keepValidation {
		f.validation = make(map[string]validator.Result)
	}
	formDirty := f.dirtyLocked()
	values := path.CloneTree(f.data)
	f.mu.Unlock()

	for _, fd := range fields {
		if !o.keepState {
			fd.tracker.MarkPristine()
			fd.tracker.MarkUntouched()
		}
		if !o.keepValidation {
			fd.tracker.ClearValidity()
		}
	}
	if !o.keepState {
		f.tracker.SetDirty(formDirty)
		_, _ = f.tracker.Remove(state.Submitted)
	}
	if !o.keepValidation {
		f.tracker.ClearValidity()
	}

	if !o.silent {
		event.Publish(f.bus, TopicFormReset, ResetPayload{Values: values})
	}
	return nil
}

// Validate validates the selected fields concurrently (every field by
// default) and sets the form's validity from their results. It returns
// the results for the selected fields and emits "form:validate" with
// the results for all fields.
func (f *Form) Validate(ctx context.Context, opts ...ValidateOption) (map[string]validator.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := buildValidateOptions(opts)

	selected, err := f.selectFields(o)
	if err != nil {
		return nil, err
	}

	ctx, span := f.cfg.spans.StartValidateSpan(ctx, f.id, len(selected))
	start := time.Now()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	results := make(map[string]validator.Result, len(selected))
	for _, fd := range selected {
		wg.Add(1)
		go func(fd *Field) {
			defer wg.Done()
			res, err := fd.Validate(ctx, opts...)
			mu.Lock()
			defer mu.Unlock()
			results[fd.name] = res
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(fd)
	}
	wg.Wait()

	valid := true
	for _, r := range results {
		if !r.Valid {
			valid = false
			break
		}
	}
	f.tracker.SetValidity(valid)
	event.Publish(f.bus, TopicFormValidate, FormValidatePayload{Valid: valid, Validation: f.Validation()})

	elapsed := time.Since(start)
	f.cfg.metrics.RecordFormValidate(ctx, f.id, elapsed, valid)
	observability.LogValidationComplete(f.logger, f.id, valid, len(selected), float64(elapsed.Microseconds())/1000)
	f.cfg.spans.EndSpanWithError(span, firstErr)

	return results, firstErr
}

func (f *Form) selectFields(o validateOptions) ([]*Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return nil, formErr(f.id, "validate", ErrDestroyed)
	}

	var candidates []*Field
	if len(o.onlyFields) > 0 {
		for _, name := range o.onlyFields {
			fd, ok := f.fields.Get(name)
			if !ok {
				return nil, fieldErr(name, "validate", ErrFieldNotFound)
			}
			candidates = append(candidates, fd)
		}
	} else {
		candidates = f.fields.Values()
	}

	if !o.dirtyOnly {
		return candidates, nil
	}
	selected := candidates[:0]
	for _, fd := range candidates {
		if !path.Equal(fd.value, fd.initialValue) {
			selected = append(selected, fd)
		}
	}
	return selected, nil
}

// ValidateField validates one field and refreshes the form's validity.
func (f *Form) ValidateField(ctx context.Context, name string, opts ...ValidateOption) (validator.Result, error) {
	fd, ok := f.fields.Get(name)
	if !ok {
		return validator.Result{}, fieldErr(name, "validate", ErrFieldNotFound)
	}
	res, err := fd.Validate(ctx, opts...)
	if err != nil {
		return res, err
	}
	f.refreshValidity()
	return res, nil
}

// refreshValidity sets the form's validity from the stored results.
func (f *Form) refreshValidity() {
	f.mu.Lock()
	n := len(f.validation)
	valid := allValid(f.validation)
	f.mu.Unlock()

	if n == 0 {
		f.tracker.ClearValidity()
		return
	}
	f.tracker.SetValidity(valid)
}

func allValid(results map[string]validator.Result) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}

// ClearValidation drops the results of the named fields, or of every
// field when no names are given.
func (f *Form) ClearValidation(names ...string) error {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return formErr(f.id, "clear validation", ErrDestroyed)
	}
	var targets []*Field
	if len(names) == 0 {
		targets = f.fields.Values()
	} else {
		for _, name := range names {
			fd, ok := f.fields.Get(name)
			if !ok {
				f.mu.Unlock()
				return fieldErr(name, "clear validation", ErrFieldNotFound)
			}
			targets = append(targets, fd)
		}
	}
	for _, fd := range targets {
		fd.validation = nil
		delete(f.validation, fd.name)
	}
	f.mu.Unlock()

	for _, fd := range targets {
		fd.tracker.ClearValidity()
	}
	f.refreshValidity()
	return nil
}

// Submit validates the form, marks it SUBMITTED and emits "form:submit".
// The form is submitted even when invalid; SubmitResult.Valid tells the
// caller which. A processor error or a destroyed form aborts the submit.
func (f *Form) Submit(ctx context.Context, opts ...SubmitOption) (SubmitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := buildSubmitOptions(opts)

	if f.Destroyed() {
		return SubmitResult{}, formErr(f.id, "submit", ErrDestroyed)
	}

	ctx, span := f.cfg.spans.StartSubmitSpan(ctx, f.id)
	done := observability.TimedOperation()

	fail := func(err error) (SubmitResult, error) {
		err = formErr(f.id, "submit", err)
		observability.LogSubmitError(f.logger, f.id, err)
		f.cfg.spans.EndSpanWithError(span, err)
		return SubmitResult{}, err
	}

	if !o.skipValidation {
		if _, err := f.Validate(ctx, o.validate...); err != nil {
			return fail(err)
		}
	}

	validation := f.Validation()
	valid := allValid(validation)

	var data any = f.Values()
	if o.processor != nil {
		out, err := o.processor(ctx, f.Values())
		if err != nil {
			return fail(err)
		}
		data = out
	}

	f.tracker.MarkSubmitted()
	result := SubmitResult{Data: data, Validation: validation, Valid: valid}
	event.Publish(f.bus, TopicFormSubmit, result)

	f.cfg.metrics.RecordSubmit(ctx, f.id, valid)
	observability.LogSubmit(f.logger, f.id, valid, done())
	f.cfg.spans.AddSpanEvent(ctx, "submitted")
	f.cfg.spans.EndSpanWithError(span, nil)
	return result, nil
}

// OnChange subscribes to "form:change".
func (f *Form) OnChange(fn func(ChangeEvent)) event.ListenerID {
	return event.Subscribe(f.bus, TopicFormChange, fn)
}

// OnSubmit subscribes to "form:submit".
func (f *Form) OnSubmit(fn func(SubmitResult)) event.ListenerID {
	return event.Subscribe(f.bus, TopicFormSubmit, fn)
}

// OnReset subscribes to "form:reset".
func (f *Form) OnReset(fn func(ResetPayload)) event.ListenerID {
	return event.Subscribe(f.bus, TopicFormReset, fn)
}

// OnValidate subscribes to "form:validate".
func (f *Form) OnValidate(fn func(FormValidatePayload)) event.ListenerID {
	return event.Subscribe(f.bus, TopicFormValidate, fn)
}

// Off removes the listener registered under id for the named event.
func (f *Form) Off(name string, id event.ListenerID) bool {
	return f.bus.Off(name, id)
}

// Wait blocks until every background validation started so far has
// finished.
func (f *Form) Wait() {
	f.wg.Wait()
}

// Destroy destroys every field, clears the form's flags, emits
// "form:destroy" and then removes all listeners. In-flight background
// validations are cancelled and their results discarded.
// Calling Destroy again does nothing.
func (f *Form) Destroy() {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return
	}
	f.destroyed = true
	fields := f.fields.Values()
	f.fields.Clear()
	f.validation = make(map[string]validator.Result)
	f.mu.Unlock()

	f.cancel()
	for _, fd := range fields {
		fd.destroy()
	}
	f.tracker.Clear()
	event.Publish(f.bus, TopicFormDestroy, DestroyPayload{FormID: f.id})
	f.bus.RemoveAllListeners()

	observability.LogFormDestroyed(f.logger, f.id)
}
