package formstate

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/state"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestField(t *testing.T, cfg FieldConfig, opts ...Option) (*Form, *Field) {
	t.Helper()
	f := newTestForm(t, Config{}, opts...)
	fd, err := f.RegisterField(cfg)
	require.NoError(t, err)
	return f, fd
}

func TestNewField(t *testing.T) {
	f := newTestForm(t, Config{InitialValues: map[string]any{"a": "tree"}})

	fd, err := NewField(FieldConfig{Name: "a", Label: "A"}, f)
	require.NoError(t, err)
	assert.NotEmpty(t, fd.ID())
	assert.Equal(t, "a", fd.Name())
	assert.Equal(t, "A", fd.Label())
	assert.Same(t, f, fd.Form())
	assert.Equal(t, "tree", fd.Value())
	assert.Equal(t, "tree", fd.InitialValue())
	assert.Nil(t, fd.Validation())
	assert.Equal(t, []state.State{state.Pristine}, fd.States())

	_, ok := f.Field("a")
	assert.False(t, ok, "NewField does not register")

	_, err = NewField(FieldConfig{Name: "a"}, nil)
	assert.ErrorIs(t, err, ErrNilForm)
	_, err = NewField(FieldConfig{}, f)
	assert.ErrorIs(t, err, ErrFieldNameRequired)
}

func TestNewField_UnregisteredWritesThrough(t *testing.T) {
	f := newTestForm(t, Config{})
	fd, err := NewField(FieldConfig{Name: "loose"}, f)
	require.NoError(t, err)

	require.NoError(t, fd.SetValue("v"))
	assert.Equal(t, "v", fd.Value())
	assert.Equal(t, "v", f.FieldValue("loose"))
	assert.True(t, fd.IsDirty())
}

func TestSetValue_EventOrder(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{Name: "a"})
	log := recordEvents(f.Events(), event.FieldChange, event.FormChange, event.FieldTouch)

	var fieldEvents []ChangeEvent
	fd.OnChange(func(ev ChangeEvent) { fieldEvents = append(fieldEvents, ev) })

	require.NoError(t, fd.SetValue("x"))

	assert.Equal(t, []string{event.FieldChange, event.FormChange, event.FieldTouch}, log.Names())
	require.Len(t, fieldEvents, 1)
	assert.Equal(t, ChangeEvent{FieldName: "a", Value: "x", Type: ChangeTypeChange}, fieldEvents[0])
}

// Scenario: setting the same value twice notifies once.
func TestSetValue_Idempotent(t *testing.T) {
	f := newTestForm(t, Config{InitialValues: map[string]any{"a": ""}})
	fd, err := f.RegisterField(FieldConfig{Name: "a"})
	require.NoError(t, err)

	calls := 0
	fd.OnChange(func(ChangeEvent) { calls++ })
	var dirtyChanges []state.Change
	event.Subscribe(f.Events(), state.TopicChange, func(c state.Change) {
		if c.Target == state.TargetField && (c.State == state.Dirty || c.State == state.Pristine) {
			dirtyChanges = append(dirtyChanges, c)
		}
	})

	require.NoError(t, fd.SetValue("a"))
	require.NoError(t, fd.Untouch())
	require.NoError(t, fd.SetValue("a"))

	assert.Equal(t, 1, calls)
	assert.Len(t, dirtyChanges, 2, "PRISTINE removed and DIRTY added once")
	assert.True(t, fd.IsDirty())
	assert.True(t, fd.IsTouched(), "a no-op write still touches")
}

func TestSetValue_NaNIsIdempotent(t *testing.T) {
	_, fd := newTestField(t, FieldConfig{Name: "ratio"})

	calls := 0
	fd.OnChange(func(ChangeEvent) { calls++ })

	require.NoError(t, fd.SetValue(math.NaN()))
	require.NoError(t, fd.SetValue(math.NaN()))
	assert.Equal(t, 1, calls)
}

func TestSetValue_LargeIntegers(t *testing.T) {
	f := newTestForm(t, Config{InitialValues: map[string]any{
		"id":  int64(1 << 53),
		"big": uint64(math.MaxUint64 - 1),
	}})
	_, err := f.RegisterField(FieldConfig{Name: "id"})
	require.NoError(t, err)
	_, err = f.RegisterField(FieldConfig{Name: "big"})
	require.NoError(t, err)
	log := recordEvents(f.Events(), event.FormChange)

	require.NoError(t, f.SetFieldValue("id", int64(1<<53+1)))
	require.NoError(t, f.SetFieldValue("big", uint64(math.MaxUint64)))

	assert.Equal(t, int64(1<<53+1), f.FieldValue("id"))
	assert.Equal(t, uint64(math.MaxUint64), f.FieldValue("big"))
	assert.Equal(t, 2, log.Count(event.FormChange))
	assert.True(t, f.IsDirty())
}

func TestField_StateChangesCarryFieldID(t *testing.T) {
	f := newTestForm(t, Config{InitialValues: map[string]any{"a": ""}})
	var ids []string
	event.Subscribe(f.Events(), state.TopicChange, func(c state.Change) {
		if c.Target == state.TargetField {
			ids = append(ids, c.ID)
		}
	})
	fd, err := f.RegisterField(FieldConfig{Name: "a"})
	require.NoError(t, err)

	require.NoError(t, fd.SetValue("x", SkipValidation()))
	require.NotEmpty(t, ids)
	for _, id := range ids {
		assert.Equal(t, fd.ID(), id)
	}
}

func TestSetValue_DeepEqualIsNoOp(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{Name: "tags", InitialValue: []any{"a", "b"}})
	log := recordEvents(f.Events(), event.FormChange)

	require.NoError(t, fd.SetValue([]any{"a", "b"}))
	assert.Empty(t, log.Names())
	assert.False(t, fd.IsDirty())
}

func TestSetValue_Options(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{
		Name:  "a",
		Rules: []validator.Rule{rule("fail", failing("BAD", "bad"))},
	})
	log := recordEvents(f.Events(), event.FieldChange, event.FormChange, event.FieldTouch, event.FieldValidate)

	require.NoError(t, fd.SetValue("x", Silent(), SkipValidation(), SkipTouch()))
	f.Wait()

	assert.Empty(t, log.Names())
	assert.False(t, fd.IsTouched())
	assert.Nil(t, fd.Validation())
	assert.Equal(t, "x", fd.Value())
}

func TestSetValue_BackgroundValidation(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{
		Name: "a",
		Rules: []validator.Rule{
			rule("fail", failing("BAD", "bad")),
			{Validator: validator.Inline("blur", passing()), Trigger: validator.TriggerBlur},
		},
	})

	var results []validator.Result
	fd.OnValidate(func(r validator.Result) { results = append(results, r) })

	require.NoError(t, fd.SetValue("x"))
	f.Wait()

	require.NotNil(t, fd.Validation())
	assert.Equal(t, "BAD", fd.Validation().Code)
	assert.True(t, fd.HasState(state.Invalid))
	require.Len(t, results, 1)

	data, ok := fd.Validation().Data.([]validator.ExtendedResult)
	require.True(t, ok)
	assert.Len(t, data, 1, "only change-trigger rules run on write")
}

func TestSetValue_MarksPendingSynchronously(t *testing.T) {
	g := newGate("x", validator.Pass())
	f, fd := newTestField(t, FieldConfig{Name: "a", Rules: []validator.Rule{rule("gate", g.fn())}})

	require.NoError(t, fd.SetValue("x"))
	assert.True(t, fd.HasState(state.Pending))

	recv(t, g.started)
	close(g.release)
	f.Wait()
	assert.True(t, fd.IsValid())
}

// A slow validation for an old value finishes after the validation for
// the newer value. By default its result is discarded.
func TestSetValue_StaleValidationDiscarded(t *testing.T) {
	g := newGate("first", validator.Fail("STALE", "stale result"))
	f, fd := newTestField(t, FieldConfig{Name: "a", Rules: []validator.Rule{rule("gate", g.fn())}})

	validated := make(chan validator.Result, 4)
	fd.OnValidate(func(r validator.Result) { validated <- r })

	require.NoError(t, fd.SetValue("first"))
	recv(t, g.started)

	require.NoError(t, fd.SetValue("second"))
	assert.True(t, recv(t, validated).Valid)

	close(g.release)
	f.Wait()

	require.NotNil(t, fd.Validation())
	assert.True(t, fd.Validation().Valid)
	assert.True(t, fd.IsValid())
	assert.Len(t, validated, 0, "the stale result is not committed")
}

// With stale commits enabled the last validation to finish wins, even
// when it was computed for an older value.
func TestSetValue_StaleValidationCommitted(t *testing.T) {
	g := newGate("first", validator.Fail("STALE", "stale result"))
	f, fd := newTestField(t, FieldConfig{Name: "a", Rules: []validator.Rule{rule("gate", g.fn())}},
		WithStaleValidationCommit(true))

	validated := make(chan validator.Result, 4)
	fd.OnValidate(func(r validator.Result) { validated <- r })

	require.NoError(t, fd.SetValue("first"))
	recv(t, g.started)

	require.NoError(t, fd.SetValue("second"))
	assert.True(t, recv(t, validated).Valid)

	close(g.release)
	f.Wait()

	assert.Equal(t, "second", fd.Value())
	require.NotNil(t, fd.Validation())
	assert.Equal(t, "STALE", fd.Validation().Code)
	assert.True(t, fd.HasState(state.Invalid))
}

func TestSetValue_StaleValidationSettlesPending(t *testing.T) {
	g := newGate("first", validator.Pass())
	f, fd := newTestField(t, FieldConfig{Name: "a", Rules: []validator.Rule{rule("gate", g.fn())}})

	require.NoError(t, fd.SetValue("first"))
	recv(t, g.started)
	require.NoError(t, fd.SetValue("second", SkipValidation()))

	close(g.release)
	f.Wait()

	assert.Nil(t, fd.Validation())
	assert.False(t, fd.HasState(state.Pending))
	assert.False(t, fd.HasState(state.Valid))
}

func TestSetValue_DestroyDuringValidation(t *testing.T) {
	g := newGate("x", validator.Fail("LATE", "late"))
	f, err := New(Config{}, WithLogger(quietLogger()))
	require.NoError(t, err)
	fd, err := f.RegisterField(FieldConfig{Name: "a", Rules: []validator.Rule{rule("gate", g.fn())}})
	require.NoError(t, err)

	require.NoError(t, fd.SetValue("x"))
	recv(t, g.started)

	fd.Destroy()
	close(g.release)
	f.Wait()

	assert.Nil(t, fd.Validation())
	assert.Empty(t, fd.States())
	assert.Empty(t, f.Validation())
	f.Destroy()
}

// Scenario: a destroyed field rejects writes.
func TestField_Destroy(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{Name: "a"})
	log := recordEvents(f.Events(), event.FieldDestroy)

	fd.Destroy()

	err := fd.SetValue("y")
	require.Error(t, err)
	assert.Regexp(t, "destroyed", err.Error())
	assert.Equal(t, `field "a": set value: destroyed`, err.Error())
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "a", fieldErr.Field)

	_, ok := f.Field("a")
	assert.False(t, ok, "a destroyed field leaves the form")
	assert.Empty(t, fd.States())

	for _, err := range []error{
		fd.Touch(),
		fd.Untouch(),
		fd.Reset(),
		fd.ClearValidation(),
		fd.AddState(state.Dirty),
		fd.RemoveState(state.Dirty),
		fd.SetStates(nil),
	} {
		assert.ErrorIs(t, err, ErrDestroyed)
	}
	_, err = fd.Validate(context.Background())
	assert.ErrorIs(t, err, ErrDestroyed)

	assert.NotPanics(t, fd.Destroy)
	assert.Equal(t, 1, log.Count(event.FieldDestroy))

	_, err = f.RegisterField(FieldConfig{Name: "a"})
	assert.NoError(t, err, "the name is free again")
}

// Scenario: resetting to an explicit value re-bases the field.
func TestField_ResetTo(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{
		Name:  "a",
		Rules: []validator.Rule{rule("ok", passing())},
	})
	require.NoError(t, fd.SetValue("other"))
	f.Wait()
	require.NotNil(t, fd.Validation())

	require.NoError(t, fd.Reset(ResetTo("seed")))

	assert.Equal(t, "seed", fd.Value())
	assert.Equal(t, "seed", fd.InitialValue())
	assert.Equal(t, "seed", f.FieldValue("a"))
	assert.False(t, fd.HasState(state.Dirty))
	assert.False(t, fd.IsTouched())
	assert.Nil(t, fd.Validation())
	assert.False(t, f.IsDirty())
}

func TestField_Reset(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{Name: "a", InitialValue: "start"})
	require.NoError(t, fd.SetValue("changed"))

	var got []ChangeEvent
	f.OnChange(func(ev ChangeEvent) { got = append(got, ev) })

	require.NoError(t, fd.Reset())
	assert.Equal(t, "start", fd.Value())
	assert.True(t, fd.HasState(state.Pristine))
	require.Len(t, got, 1)
	assert.Equal(t, ChangeTypeReset, got[0].Type)
	assert.Equal(t, "changed", got[0].OldValue)

	require.NoError(t, fd.SetValue("again"))
	require.NoError(t, fd.Reset(KeepState(), ResetSilently()))
	assert.Len(t, got, 2, "only the write is announced")
	assert.True(t, fd.IsTouched())
}

func TestField_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("no rules", func(t *testing.T) {
		f, fd := newTestField(t, FieldConfig{
			Name:  "a",
			Rules: []validator.Rule{rule("fail", failing("BAD", "bad"))},
		})
		starts := recordEvents(f.Events(), event.ValidationStart)

		res, err := fd.Validate(ctx, WithRules())
		require.NoError(t, err)
		assert.Equal(t, validator.Result{Valid: true}, res)
		assert.True(t, fd.IsValid())
		assert.Empty(t, starts.Names(), "the executor is not invoked")
	})

	t.Run("first failure wins the message", func(t *testing.T) {
		_, fd := newTestField(t, FieldConfig{
			Name: "a",
			Rules: []validator.Rule{
				rule("pass", passing()),
				rule("failA", failing("A", "first failure")),
				rule("failB", failing("B", "second failure")),
			},
		})

		res, err := fd.Validate(ctx)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, "first failure", res.Message)
		assert.Equal(t, "A", res.Code)
		data, ok := res.Data.([]validator.ExtendedResult)
		require.True(t, ok)
		require.Len(t, data, 3)
		assert.Equal(t, []string{"pass", "failA", "failB"}, []string{data[0].Validator, data[1].Validator, data[2].Validator})
	})

	t.Run("stop on first error", func(t *testing.T) {
		_, fd := newTestField(t, FieldConfig{
			Name: "a",
			Rules: []validator.Rule{
				rule("failA", failing("A", "a")),
				rule("failB", failing("B", "b")),
			},
			StopOnFirstError: true,
		})

		res, err := fd.Validate(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Data, 1)

		res, err = fd.Validate(ctx, StopOnFirstError(false))
		require.NoError(t, err)
		assert.Len(t, res.Data, 2)
	})

	t.Run("context values", func(t *testing.T) {
		_, fd := newTestField(t, FieldConfig{
			Name: "confirm",
			Rules: []validator.Rule{rule("match", func(_ context.Context, v any, vc validator.Context) (validator.Result, error) {
				if v == vc.Values["password"] {
					return validator.Pass(), nil
				}
				return validator.Fail("MISMATCH", "passwords differ"), nil
			})},
		})
		require.NoError(t, fd.SetValue("s3cret", SkipValidation()))

		res, err := fd.Validate(ctx, WithContextValues(map[string]any{"password": "s3cret"}))
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})

	t.Run("trigger filter", func(t *testing.T) {
		_, fd := newTestField(t, FieldConfig{
			Name: "a",
			Rules: []validator.Rule{
				rule("change", failing("C", "c")),
				{Validator: validator.Inline("blur", passing()), Trigger: validator.TriggerBlur},
			},
		})

		res, err := fd.Validate(ctx, ForTrigger(validator.TriggerBlur))
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})

	// Scenario: two overlapping validations of the same field agree.
	t.Run("concurrent calls", func(t *testing.T) {
		f, fd := newTestField(t, FieldConfig{
			Name:  "a",
			Rules: []validator.Rule{{Validator: validator.Named("minLength"), Params: validator.Params{"min": 5}}},
		})
		require.NoError(t, f.SetFieldValue("a", "abc", SkipValidation()))

		var wg sync.WaitGroup
		results := make([]validator.Result, 2)
		errs := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = fd.Validate(ctx)
			}(i)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.Equal(t, results[0].Valid, results[1].Valid)
		assert.Equal(t, results[0].Code, results[1].Code)
		assert.Equal(t, results[0].Message, results[1].Message)
		assert.Equal(t, validator.CodeMinLength, results[0].Code)
	})
}

func TestField_States(t *testing.T) {
	_, fd := newTestField(t, FieldConfig{Name: "a"})

	require.NoError(t, fd.AddState(state.Valid))
	require.NoError(t, fd.AddState(state.Invalid))
	assert.False(t, fd.HasState(state.Valid))
	assert.True(t, fd.HasState(state.Invalid))

	require.NoError(t, fd.RemoveState(state.Invalid))
	assert.False(t, fd.HasState(state.Invalid))

	require.NoError(t, fd.SetStates([]state.State{state.Dirty, state.Touched}))
	assert.Equal(t, []state.State{state.Dirty, state.Touched}, fd.States())

	assert.ErrorIs(t, fd.AddState(state.Submitted), state.ErrUnsupportedState)
}

func TestField_Touch(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{Name: "a"})
	log := recordEvents(f.Events(), event.FieldTouch)

	require.NoError(t, fd.Touch())
	require.NoError(t, fd.Touch())
	assert.True(t, fd.IsTouched())
	assert.Equal(t, 1, log.Count(event.FieldTouch))

	require.NoError(t, fd.Untouch())
	assert.False(t, fd.IsTouched())
}

func TestField_ClearValidation(t *testing.T) {
	_, fd := newTestField(t, FieldConfig{Name: "a", Rules: []validator.Rule{rule("fail", failing("BAD", "bad"))}})
	_, err := fd.Validate(context.Background())
	require.NoError(t, err)
	require.True(t, fd.HasState(state.Invalid))

	require.NoError(t, fd.ClearValidation())
	assert.Nil(t, fd.Validation())
	assert.Equal(t, []state.State{state.Pristine}, fd.States())
	assert.NotContains(t, fd.Form().Validation(), "a")
}

func TestField_Off(t *testing.T) {
	_, fd := newTestField(t, FieldConfig{Name: "a"})

	calls := 0
	id := fd.OnChange(func(ChangeEvent) { calls++ })
	require.NoError(t, fd.SetValue(1))
	assert.True(t, fd.Off(id))
	require.NoError(t, fd.SetValue(2))
	assert.Equal(t, 1, calls)

	vid := fd.OnValidate(func(validator.Result) {})
	assert.True(t, fd.Off(vid))
	assert.False(t, fd.Off(vid))
}

func TestField_OnChangeFiltersByName(t *testing.T) {
	f := newTestForm(t, Config{})
	a, err := f.RegisterField(FieldConfig{Name: "a"})
	require.NoError(t, err)
	b, err := f.RegisterField(FieldConfig{Name: "b"})
	require.NoError(t, err)

	var names []string
	a.OnChange(func(ev ChangeEvent) { names = append(names, ev.FieldName) })

	require.NoError(t, b.SetValue(1))
	require.NoError(t, a.SetValue(1))
	assert.Equal(t, []string{"a"}, names)
}

// Random operation sequences must never leave a field or form holding
// two members of one exclusivity axis.
func TestExclusivityThroughFieldOperations(t *testing.T) {
	f, fd := newTestField(t, FieldConfig{
		Name:  "a",
		Rules: []validator.Rule{{Validator: validator.Named("required")}},
	})
	ctx := context.Background()
	values := []any{"", "x", "y", nil}

	check := func(states []state.State) {
		dirtiness, validity := 0, 0
		for _, s := range states {
			switch s {
			case state.Pristine, state.Dirty:
				dirtiness++
			case state.Valid, state.Invalid, state.Pending:
				validity++
			}
		}
		require.LessOrEqual(t, dirtiness, 1)
		require.LessOrEqual(t, validity, 1)
	}

	for i := 0; i < 200; i++ {
		switch i % 5 {
		case 0:
			require.NoError(t, fd.SetValue(values[i%len(values)]))
		case 1:
			_, err := fd.Validate(ctx)
			require.NoError(t, err)
		case 2:
			_, err := f.Validate(ctx)
			require.NoError(t, err)
		case 3:
			require.NoError(t, fd.Reset())
		case 4:
			require.NoError(t, f.SetFieldValue("a", values[(i/5)%len(values)]))
		}
		check(fd.States())
		check(f.States())
	}
	f.Wait()
	check(fd.States())
}
