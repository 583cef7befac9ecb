/*
Package formstate provides a headless form state and validation engine.

# Overview

A Form owns a nested data tree (map[string]any) addressed by dot paths
such as "address.city". Fields bind to paths in the tree, track their own
lifecycle flags and run validation rule chains. Every change is announced
on the form's event bus so UI adapters can follow along without the
engine knowing anything about rendering.

# Basic Usage

	form, err := formstate.New(formstate.Config{
	    InitialValues: map[string]any{"username": ""},
	    Fields: []formstate.FieldConfig{{
	        Name: "username",
	        Rules: []validator.Rule{
	            {Validator: validator.Named("required")},
	            {Validator: validator.Named("minLength"), Params: validator.Params{"min": 3}},
	        },
	    }},
	})
	if err != nil {
	    log.Fatal(err)
	}
	defer form.Destroy()

	form.OnChange(func(ev formstate.ChangeEvent) {
	    fmt.Println(ev.FieldName, "=", ev.Value)
	})

	_ = form.SetFieldValue("username", "al")
	form.Wait() // let background validation settle

	res, _ := form.ValidateField(ctx, "username")
	fmt.Println(res.Valid, res.Message) // false "Must be at least 3 characters"

# Lifecycle Flags

Forms and fields carry PRISTINE or DIRTY, at most one of VALID, INVALID
and PENDING, plus SUBMITTED (forms) or TOUCHED (fields). Every flag change
is emitted as "state:change".

# Validation

Rules run in order against the field value. A rule names a registered
validator (validator.Named) or carries its own function (validator.Inline).
Rules may be conditional (When: "country == 'US'") and may be limited to a
trigger (change, blur, submit). A validator that errors or panics produces
an invalid result with code VALIDATION_ERROR; it never breaks the form.

Writing a value validates the field's change-trigger rules in the
background. A result computed for a value that has since been replaced is
discarded, so the result on record always belongs to the current value.
This closes a race where an earlier, slower validation could overwrite
the result of a later one. WithStaleValidationCommit(true) brings that
last-to-finish-wins behavior back. Form.Wait blocks until background
validations finish.

# Drafts

Snapshot and RestoreSnapshot capture and restore the whole form.
SaveDraft and LoadDraft persist snapshots through a snapshot.Store:

	store, err := snapshot.NewSQLiteStore("./drafts.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	err = form.SaveDraft(store, "autosave")

Wrap a store with snapshot.WithRetry to ride out SQLite busy errors
when several writers share one database file.

# Observability

	form, err := formstate.New(cfg,
	    formstate.WithLogger(logger),
	    formstate.WithMetrics(observability.NewMetricsRecorder()),
	    formstate.WithTracing(observability.NewSpanManager()))

Logs include structured fields: form_id, field, validator, duration_ms.
OpenTelemetry metrics: formstate.validation.runs, formstate.validation.latency_ms, etc.
OpenTelemetry tracing: formstate.validate > formstate.rule.{validator} spans.

# Error Handling

Usage errors carry context:

	err := field.SetValue("x")
	var fieldErr *formstate.FieldError
	if errors.As(err, &fieldErr) && errors.Is(err, formstate.ErrDestroyed) {
	    log.Printf("field %s is gone", fieldErr.Field)
	}

Validation failures are data, not errors.

# Thread Safety

  - Form and Field ARE safe for concurrent use
  - Events are emitted with no lock held; listeners may call back in
  - Validators run on their own goroutines and must be safe for concurrent use

# Subpackages

  - event: synchronous event bus and event names
  - state: lifecycle flag trackers
  - validator: rules, registry, executor and built-in validators
  - path: dot-path access, deep copy and deep equality
  - config: YAML/JSON form definitions
  - snapshot: draft stores (memory, SQLite)
  - observability: logging, metrics and tracing helpers
*/
package formstate
