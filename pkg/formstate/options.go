package formstate

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/observability"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// formConfig holds construction-time settings for a form.
type formConfig struct {
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	registry    *validator.Registry
	busConfig   *event.BusConfig
	baseCtx     context.Context
	staleCommit bool
	condOpts    []validator.ConditionOption
	expanderOps []validator.ExpanderOption
}

func defaultFormConfig() formConfig {
	return formConfig{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		baseCtx: context.Background(),
	}
}

// Option configures a form.
type Option func(*formConfig)

// WithLogger sets the logger for form, field and validator logging.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *formConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables validation and submit metrics.
//
// Example:
//
//	form, err := formstate.New(cfg, formstate.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *formConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables spans for Validate, Submit and each rule.
func WithTracing(s observability.SpanManager) Option {
	return func(c *formConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithContext sets the base context for background validations.
// Destroy cancels a context derived from it.
func WithContext(ctx context.Context) Option {
	return func(c *formConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithRegistry shares a validator registry between forms. Validators
// listed in Config.Validators are registered into it.
// Default: a fresh validator.NewDefaultRegistry() per form.
func WithRegistry(r *validator.Registry) Option {
	return func(c *formConfig) {
		c.registry = r
	}
}

// WithBusConfig configures the form's event bus.
func WithBusConfig(bc event.BusConfig) Option {
	return func(c *formConfig) {
		c.busConfig = &bc
	}
}

// WithStaleValidationCommit lets a background validation commit its
// result even when the field value changed after it started, so the
// last validation to finish wins, whichever value it checked. This is
// the ungated behavior: a slow validation of an old value can leave a
// stale result on record.
// Default: false (results for superseded values are discarded).
func WithStaleValidationCommit(enabled bool) Option {
	return func(c *formConfig) {
		c.staleCommit = enabled
	}
}

// WithConditionOperator adds a word operator to rule When conditions,
// used as "left name right".
//
//	formstate.WithConditionOperator("startsWith", func(l, r any) bool { ... })
func WithConditionOperator(name string, fn validator.BinaryOp) Option {
	return func(c *formConfig) {
		c.condOpts = append(c.condOpts, validator.WithOperator(name, fn))
	}
}

// WithMissingPlaceholders sets how rule messages treat ${name}
// placeholders with no matching param.
// Default: validator.MissingKeep
func WithMissingPlaceholders(action validator.MissingAction) Option {
	return func(c *formConfig) {
		c.expanderOps = append(c.expanderOps, validator.WithMissingAction(action))
	}
}

// setOptions controls a value write.
type setOptions struct {
	silent         bool
	skipValidation bool
	skipTouch      bool
	merge          bool
	replace        bool
}

// SetOption configures SetValue, SetFieldValue and SetValues.
type SetOption func(*setOptions)

// Silent suppresses change and touch events.
func Silent() SetOption {
	return func(o *setOptions) { o.silent = true }
}

// SkipValidation suppresses the background validation a write schedules.
func SkipValidation() SetOption {
	return func(o *setOptions) { o.skipValidation = true }
}

// SkipTouch leaves the written field's TOUCHED flag alone.
func SkipTouch() SetOption {
	return func(o *setOptions) { o.skipTouch = true }
}

// Merge shallow-merges a map value into the map already stored at the
// path. Only SetFieldValue honors it.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// Replace makes SetValues replace the whole data tree instead of writing
// each key.
func Replace() SetOption {
	return func(o *setOptions) { o.replace = true }
}

func buildSetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resetOptions controls Reset.
type resetOptions struct {
	value          any
	hasValue       bool
	values         map[string]any
	hasValues      bool
	keepState      bool
	keepValidation bool
	silent         bool
}

// ResetOption configures Field.Reset and Form.Reset.
type ResetOption func(*resetOptions)

// ResetTo resets a field to v and makes v its new initial value.
// Only Field.Reset honors it.
func ResetTo(v any) ResetOption {
	return func(o *resetOptions) {
		o.value = v
		o.hasValue = true
	}
}

// ResetValues resets a form to values and makes them the new initial
// values. Only Form.Reset honors it.
func ResetValues(values map[string]any) ResetOption {
	return func(o *resetOptions) {
		o.values = values
		o.hasValues = true
	}
}

// KeepState leaves dirty, touched and submitted flags alone.
func KeepState() ResetOption {
	return func(o *resetOptions) { o.keepState = true }
}

// KeepValidation leaves validation results and validity flags alone.
func KeepValidation() ResetOption {
	return func(o *resetOptions) { o.keepValidation = true }
}

// ResetSilently suppresses the reset events.
func ResetSilently() ResetOption {
	return func(o *resetOptions) { o.silent = true }
}

func buildResetOptions(opts []ResetOption) resetOptions {
	var o resetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// validateOptions controls Validate.
type validateOptions struct {
	rules         []validator.Rule
	hasRules      bool
	stop          *bool
	contextValues map[string]any
	trigger       validator.Trigger
	onlyFields    []string
	dirtyOnly     bool
}

// ValidateOption configures Field.Validate and Form.Validate.
type ValidateOption func(*validateOptions)

// WithRules validates against rules instead of the field's configured
// chain. An empty list validates trivially.
func WithRules(rules ...validator.Rule) ValidateOption {
	return func(o *validateOptions) {
		o.rules = rules
		o.hasRules = true
	}
}

// StopOnFirstError overrides the field's StopOnFirstError setting.
func StopOnFirstError(stop bool) ValidateOption {
	return func(o *validateOptions) { o.stop = &stop }
}

// WithContextValues adds entries to the flattened values validators see.
// Entries override form values with the same path.
func WithContextValues(values map[string]any) ValidateOption {
	return func(o *validateOptions) { o.contextValues = values }
}

// ForTrigger runs only the rules for trigger t.
// Default: every rule.
func ForTrigger(t validator.Trigger) ValidateOption {
	return func(o *validateOptions) { o.trigger = t }
}

// OnlyFields limits Form.Validate to the named fields.
func OnlyFields(names ...string) ValidateOption {
	return func(o *validateOptions) { o.onlyFields = names }
}

// DirtyOnly limits Form.Validate to dirty fields.
func DirtyOnly() ValidateOption {
	return func(o *validateOptions) { o.dirtyOnly = true }
}

func buildValidateOptions(opts []ValidateOption) validateOptions {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Processor transforms form data before it is handed to submit listeners.
type Processor func(ctx context.Context, data map[string]any) (any, error)

// submitOptions controls Submit.
type submitOptions struct {
	skipValidation bool
	validate       []ValidateOption
	processor      Processor
}

// SubmitOption configures Submit.
type SubmitOption func(*submitOptions)

// SkipSubmitValidation submits with the current validation results
// instead of validating first.
func SkipSubmitValidation() SubmitOption {
	return func(o *submitOptions) { o.skipValidation = true }
}

// WithValidateOptions passes options to the validation Submit runs.
func WithValidateOptions(opts ...ValidateOption) SubmitOption {
	return func(o *submitOptions) { o.validate = append(o.validate, opts...) }
}

// WithProcessor transforms the data before submit listeners see it.
// A processor error aborts the submit.
func WithProcessor(p Processor) SubmitOption {
	return func(o *submitOptions) { o.processor = p }
}

func buildSubmitOptions(opts []SubmitOption) submitOptions {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
