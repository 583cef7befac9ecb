/*
Package validator runs validation rules against field values.

# Rules

A Rule pairs a validator reference with params, an optional message
override, a trigger and an optional condition:

	rules := []validator.Rule{
	    {Validator: validator.Named("required")},
	    {Validator: validator.Named("minLength"), Params: validator.Params{"min": 8},
	        Message: "Use at least ${min} characters"},
	    {Validator: validator.Inline("unique", checkUnique), Trigger: validator.TriggerBlur},
	    {Validator: validator.Named("required"), When: "country == 'US'"},
	}

Named references resolve against a Registry when the rule runs. A missing
name yields an invalid result with code VALIDATOR_NOT_FOUND.

# Executor

Executor runs rules in list order. A validator that returns an error or
panics yields an invalid result with code VALIDATION_ERROR; the executor
itself never fails. With a bus attached it emits validation:start before
each validator and validation:end or validation:error after.

Merge folds a rule chain's results into one Result whose message comes
from the first failing rule.

# Built-ins

Required, Email, Length, MinLength, MaxLength, Pattern, Range and OneOf
return ready-to-use Funcs. NewDefaultRegistry registers the same
validators under lower camel case names; those read their settings from
rule params ("min", "max", "pattern", "values").
*/
package validator
