package formstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
	"github.com/stretchr/testify/require"
)

// Test helpers shared across the package tests.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestForm creates a form with a discarded logger, destroyed at test end.
func newTestForm(t *testing.T, cfg Config, opts ...Option) *Form {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	f, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		f.Destroy()
		f.Wait()
	})
	return f
}

func rule(name string, fn validator.Func) validator.Rule {
	return validator.Rule{Validator: validator.Inline(name, fn)}
}

func passing() validator.Func {
	return func(context.Context, any, validator.Context) (validator.Result, error) {
		return validator.Pass(), nil
	}
}

func failing(code, msg string) validator.Func {
	return func(context.Context, any, validator.Context) (validator.Result, error) {
		return validator.Fail(code, msg), nil
	}
}

func panicking() validator.Func {
	return func(context.Context, any, validator.Context) (validator.Result, error) {
		panic("boom")
	}
}

func erroring() validator.Func {
	return func(context.Context, any, validator.Context) (validator.Result, error) {
		return validator.Result{}, errors.New("lookup failed")
	}
}

// gate is a validator that blocks on values equal to slowValue until
// released. Other values pass immediately.
type gate struct {
	slowValue any
	started   chan struct{}
	release   chan struct{}
	result    validator.Result
}

func newGate(slowValue any, result validator.Result) *gate {
	return &gate{
		slowValue: slowValue,
		started:   make(chan struct{}, 8),
		release:   make(chan struct{}),
		result:    result,
	}
}

func (g *gate) fn() validator.Func {
	return func(_ context.Context, value any, _ validator.Context) (validator.Result, error) {
		if value != g.slowValue {
			return validator.Pass(), nil
		}
		g.started <- struct{}{}
		<-g.release
		return g.result, nil
	}
}

// recv waits for a value on ch or fails the test.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting on channel")
	}
	var zero T
	return zero
}

// eventLog records the names of emitted events in order.
type eventLog struct {
	mu    sync.Mutex
	names []string
}

func recordEvents(bus *event.Bus, names ...string) *eventLog {
	log := &eventLog{}
	for _, name := range names {
		bus.On(name, func(evt event.Event) {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.names = append(log.names, evt.Name)
		})
	}
	return log
}

func (l *eventLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

func (l *eventLog) Count(name string) int {
	n := 0
	for _, got := range l.Names() {
		if got == name {
			n++
		}
	}
	return n
}

type fakeMetrics struct {
	mu        sync.Mutex
	rules     int
	validates []bool
	submits   []bool
}

func (m *fakeMetrics) RecordRule(context.Context, string, time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules++
}

func (m *fakeMetrics) RecordFormValidate(_ context.Context, _ string, _ time.Duration, valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validates = append(m.validates, valid)
}

func (m *fakeMetrics) RecordSubmit(_ context.Context, _ string, valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, valid)
}
