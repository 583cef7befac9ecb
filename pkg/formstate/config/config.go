package config

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// ErrInvalidSpec indicates a form definition that fails Validate.
var ErrInvalidSpec = errors.New("invalid form spec")

// FormSpec is a declarative form definition.
type FormSpec struct {
	ID            string         `yaml:"id" json:"id"`
	InitialValues map[string]any `yaml:"initialValues" json:"initialValues"`
	Fields        []FieldSpec    `yaml:"fields" json:"fields"`
}

// FieldSpec declares one field.
type FieldSpec struct {
	Name             string     `yaml:"name" json:"name"`
	Label            string     `yaml:"label,omitempty" json:"label,omitempty"`
	InitialValue     any        `yaml:"initialValue,omitempty" json:"initialValue,omitempty"`
	DefaultValue     any        `yaml:"defaultValue,omitempty" json:"defaultValue,omitempty"`
	Rules            []RuleSpec `yaml:"rules,omitempty" json:"rules,omitempty"`
	StopOnFirstError bool       `yaml:"stopOnFirstError,omitempty" json:"stopOnFirstError,omitempty"`
}

// RuleSpec declares one rule against a named validator.
type RuleSpec struct {
	Validator string         `yaml:"validator" json:"validator"`
	Params    map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Message   string         `yaml:"message,omitempty" json:"message,omitempty"`
	Trigger   string         `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	When      string         `yaml:"when,omitempty" json:"when,omitempty"`
}

// Validate checks that field names are present and unique, that every
// rule names a validator and that triggers are known.
func (s FormSpec) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: fields[%d]: name is required", ErrInvalidSpec, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidSpec, f.Name)
		}
		seen[f.Name] = true

		for j, r := range f.Rules {
			if r.Validator == "" {
				return fmt.Errorf("%w: field %q: rules[%d]: validator is required", ErrInvalidSpec, f.Name, j)
			}
			switch validator.Trigger(r.Trigger) {
			case "", validator.TriggerChange, validator.TriggerBlur, validator.TriggerSubmit:
			default:
				return fmt.Errorf("%w: field %q: rules[%d]: unknown trigger %q", ErrInvalidSpec, f.Name, j, r.Trigger)
			}
		}
	}
	return nil
}

// Rule converts the spec to a rule referencing a named validator.
func (r RuleSpec) Rule() validator.Rule {
	return validator.Rule{
		Validator: validator.Named(r.Validator),
		Params:    validator.Params(r.Params),
		Message:   r.Message,
		Trigger:   validator.Trigger(r.Trigger),
		When:      r.When,
	}
}

// ValidatorRules converts the field's rule specs.
func (f FieldSpec) ValidatorRules() []validator.Rule {
	if len(f.Rules) == 0 {
		return nil
	}
	rules := make([]validator.Rule, len(f.Rules))
	for i, r := range f.Rules {
		rules[i] = r.Rule()
	}
	return rules
}
