package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/observability"
)

// ErrNotFound indicates a named validator that is not registered.
var ErrNotFound = errors.New("validator not found")

// PanicError is the error a panicking validator is converted to.
type PanicError struct {
	Validator string
	Value     any
	Stack     string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("validator %s panicked: %v", e.Validator, e.Value)
}

// Executor runs rules against values. Validator failures of any kind,
// including returned errors and panics, come back as invalid results;
// the executor never returns an error or panics because of a validator.
type Executor struct {
	registry   *Registry
	bus        *event.Bus
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	expander   *Expander
	conditions *ConditionEvaluator
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBus emits validation:start, validation:end and validation:error
// on bus.
func WithBus(bus *event.Bus) ExecutorOption {
	return func(e *Executor) {
		e.bus = bus
	}
}

// WithLogger sets the logger for validator failures.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics records each validator invocation.
func WithMetrics(m observability.MetricsRecorder) ExecutorOption {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithSpans opens a span per validator invocation.
func WithSpans(s observability.SpanManager) ExecutorOption {
	return func(e *Executor) {
		if s != nil {
			e.spans = s
		}
	}
}

// WithExpander sets the message interpolator.
func WithExpander(x *Expander) ExecutorOption {
	return func(e *Executor) {
		if x != nil {
			e.expander = x
		}
	}
}

// WithConditions sets the evaluator for Rule.When.
func WithConditions(c *ConditionEvaluator) ExecutorOption {
	return func(e *Executor) {
		if c != nil {
			e.conditions = c
		}
	}
}

// NewExecutor creates an executor resolving named validators against
// registry. A nil registry resolves only inline validators.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:   registry,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		spans:      observability.NoopSpanManager{},
		expander:   defaultExpander,
		conditions: NewConditionEvaluator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the executor's registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// ExecuteRule runs one rule.
func (e *Executor) ExecuteRule(ctx context.Context, rule Rule, value any, vc Context) ExtendedResult {
	name := rule.Validator.Name()
	vc.Params = rule.Params
	res := ExtendedResult{
		Validator: name,
		Params:    rule.Params,
		Timestamp: time.Now(),
	}

	if rule.When != "" {
		ok, err := e.conditions.Evaluate(rule.When, vc.Values)
		if err != nil {
			return e.fail(ctx, rule, vc, res, err)
		}
		if !ok {
			res.Result = Pass()
			res.Skipped = true
			return res
		}
	}

	fn, ok := e.registry.resolve(rule.Validator)
	if !ok {
		event.Publish(e.bus, TopicStart, StartPayload{FieldName: vc.FieldName, Validator: name, Params: rule.Params})
		res.Result = Fail(CodeNotFound, fmt.Sprintf("validator %q not found", name))
		e.publishError(vc.FieldName, res, fmt.Errorf("%w: %s", ErrNotFound, name))
		return res
	}

	spanCtx, span := e.spans.StartRuleSpan(ctx, vc.FieldName, name)
	event.Publish(e.bus, TopicStart, StartPayload{FieldName: vc.FieldName, Validator: name, Params: rule.Params})

	result, err := e.invoke(spanCtx, name, fn, value, vc)
	res.Duration = time.Since(res.Timestamp)
	e.metrics.RecordRule(ctx, name, res.Duration, err == nil && result.Valid, err)

	if err != nil {
		e.spans.EndSpanWithError(span, err)
		return e.fail(ctx, rule, vc, res, err)
	}
	e.spans.EndSpanWithError(span, nil)

	if !result.Valid {
		if rule.Message != "" {
			result.Message = rule.Message
		}
		result.Message = e.expander.Expand(result.Message, e.messageVars(rule, vc))
	}
	res.Result = result

	event.Publish(e.bus, TopicEnd, EndPayload{
		FieldName: vc.FieldName,
		Validator: name,
		Result:    res,
		Duration:  res.Duration,
	})
	return res
}

// ExecuteRules runs rules in list order, one after another. With
// stopOnFirstError the rules after the first failure are not run and are
// absent from the returned list.
func (e *Executor) ExecuteRules(ctx context.Context, rules []Rule, value any, vc Context, stopOnFirstError bool) []ExtendedResult {
	results := make([]ExtendedResult, 0, len(rules))
	for _, rule := range rules {
		r := e.ExecuteRule(ctx, rule, value, vc)
		results = append(results, r)
		if stopOnFirstError && !r.Valid {
			break
		}
	}
	return results
}

// BatchEntry is one named rule chain for ExecuteBatch.
type BatchEntry struct {
	Name             string
	Rules            []Rule
	Value            any
	Context          Context
	StopOnFirstError bool
}

// ExecuteBatch runs each entry's rule chain concurrently and returns the
// results keyed by entry name. Rules within an entry keep their order.
func (e *Executor) ExecuteBatch(ctx context.Context, entries []BatchEntry) map[string][]ExtendedResult {
	out := make(map[string][]ExtendedResult, len(entries))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, entry := range entries {
		wg.Add(1)
		go func(entry BatchEntry) {
			defer wg.Done()
			vc := entry.Context
			if vc.FieldName == "" {
				vc.FieldName = entry.Name
			}
			results := e.ExecuteRules(ctx, entry.Rules, entry.Value, vc, entry.StopOnFirstError)

			mu.Lock()
			out[entry.Name] = results
			mu.Unlock()
		}(entry)
	}
	wg.Wait()
	return out
}

// invoke calls fn, converting a panic into a PanicError.
func (e *Executor) invoke(ctx context.Context, name string, fn Func, value any, vc Context) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Validator: name, Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx, value, vc)
}

// fail converts err into a CodeError result and reports it.
func (e *Executor) fail(ctx context.Context, rule Rule, vc Context, res ExtendedResult, err error) ExtendedResult {
	msg := err.Error()
	if rule.Message != "" {
		msg = e.expander.Expand(rule.Message, e.messageVars(rule, vc))
	}
	res.Result = Fail(CodeError, msg)

	observability.LogRuleError(e.logger, vc.FieldName, res.Validator, err)
	e.publishError(vc.FieldName, res, err)
	return res
}

func (e *Executor) publishError(fieldName string, res ExtendedResult, err error) {
	event.Publish(e.bus, TopicError, ErrorPayload{
		FieldName: fieldName,
		Validator: res.Validator,
		Err:       err,
		Result:    res,
	})
}

// messageVars are the placeholders available to messages: the rule
// params plus "field".
func (e *Executor) messageVars(rule Rule, vc Context) map[string]any {
	vars := make(map[string]any, len(rule.Params)+1)
	vars["field"] = vc.FieldName
	for k, v := range rule.Params {
		vars[k] = v
	}
	return vars
}
