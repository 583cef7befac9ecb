package validator

import "context"

// Func is a validator. It returns an invalid Result for values that fail
// validation; a non-nil error means the validator itself could not run
// and is converted to a CodeError result by the executor.
type Func func(ctx context.Context, value any, vc Context) (Result, error)

// Context is what a validator sees besides the value.
type Context struct {
	// FieldName is the dot-path of the field being validated.
	FieldName string

	// Values is a flattened copy of the form data, keyed by dot-path.
	// Intermediate maps are included, so both "address" and
	// "address.city" resolve.
	Values map[string]any

	// Params are the rule's params.
	Params Params
}

// Trigger selects which interaction a rule runs on.
type Trigger string

// Rule triggers.
const (
	TriggerChange Trigger = "change"
	TriggerBlur   Trigger = "blur"
	TriggerSubmit Trigger = "submit"
)

// Ref identifies a rule's validator: either a name resolved against a
// Registry at execution time, or an inline function.
type Ref struct {
	name string
	fn   Func
}

// Named refers to a validator registered under name.
func Named(name string) Ref {
	return Ref{name: name}
}

// Inline wraps fn as a validator. name labels it in results, events and
// metrics; it defaults to "inline".
func Inline(name string, fn Func) Ref {
	if name == "" {
		name = "inline"
	}
	return Ref{name: name, fn: fn}
}

// Name returns the validator name.
func (r Ref) Name() string { return r.name }

// IsInline reports whether the ref carries its own function.
func (r Ref) IsInline() bool { return r.fn != nil }

// Rule is one entry in a field's rule chain.
type Rule struct {
	Validator Ref

	// Params are passed to the validator through Context.Params and
	// interpolated into messages as ${name}.
	Params Params

	// Message replaces the validator's message when the rule fails.
	Message string

	// Trigger is the interaction the rule runs on. Empty means change.
	Trigger Trigger

	// When is an optional condition over the form values, for example
	// "country == 'US'". The rule is skipped when it is false.
	When string
}

// RunsOn reports whether the rule runs for trigger t. An empty t
// matches every rule.
func (r Rule) RunsOn(t Trigger) bool {
	if t == "" {
		return true
	}
	own := r.Trigger
	if own == "" {
		own = TriggerChange
	}
	return own == t
}

// FilterRules returns the rules that run on t.
func FilterRules(rules []Rule, t Trigger) []Rule {
	if t == "" {
		return rules
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.RunsOn(t) {
			out = append(out, r)
		}
	}
	return out
}
