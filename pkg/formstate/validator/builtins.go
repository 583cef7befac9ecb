package validator

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/randalmurphal/formstate/pkg/formstate/path"
	"github.com/randalmurphal/formstate/pkg/formstate/registry"
)

// Codes set by the built-in validators.
const (
	CodeRequired  = "REQUIRED"
	CodeEmail     = "EMAIL"
	CodeMinLength = "MIN_LENGTH"
	CodeMaxLength = "MAX_LENGTH"
	CodePattern   = "PATTERN"
	CodeRange     = "RANGE"
	CodeNumber    = "NUMBER"
	CodeOneOf     = "ONE_OF"
	CodeType      = "TYPE"
)

// Option configures a built-in validator.
type Option func(*options)

type options struct {
	message string
}

// WithMessage replaces the default failure message. Placeholders such as
// ${min} are filled from the validator's settings.
func WithMessage(msg string) Option {
	return func(o *options) {
		o.message = msg
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) fail(code, def string, vars map[string]any) Result {
	msg := def
	if o.message != "" {
		msg = o.message
	}
	return Fail(code, FormatMessage(msg, vars))
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Required fails for nil, blank strings and empty collections.
func Required(opts ...Option) Func {
	o := buildOptions(opts)
	return func(_ context.Context, value any, _ Context) (Result, error) {
		if isEmpty(value) {
			return o.fail(CodeRequired, "This field is required", nil), nil
		}
		return Pass(), nil
	}
}

// Email fails for strings that are not email addresses. Empty values
// pass; combine with Required to reject them.
func Email(opts ...Option) Func {
	o := buildOptions(opts)
	return func(_ context.Context, value any, _ Context) (Result, error) {
		if isBlank(value) {
			return Pass(), nil
		}
		s, ok := value.(string)
		if !ok || !emailPattern.MatchString(strings.TrimSpace(s)) {
			return o.fail(CodeEmail, "Please enter a valid email address", nil), nil
		}
		return Pass(), nil
	}
}

// Length bounds the length of a string, counted in grapheme clusters, or
// of a slice, array or map. A bound of zero or less is not checked.
// Empty values pass.
func Length(min, max int, opts ...Option) Func {
	o := buildOptions(opts)
	vars := map[string]any{"min": min, "max": max}
	return func(_ context.Context, value any, _ Context) (Result, error) {
		if isBlank(value) {
			return Pass(), nil
		}
		n, ok := lengthOf(value)
		if !ok {
			return o.fail(CodeType, "Value has no length", vars), nil
		}
		if min > 0 && n < min {
			return o.fail(CodeMinLength, "Must be at least ${min} characters", vars), nil
		}
		if max > 0 && n > max {
			return o.fail(CodeMaxLength, "Must be at most ${max} characters", vars), nil
		}
		return Pass(), nil
	}
}

// MinLength is Length(n, 0).
func MinLength(n int, opts ...Option) Func {
	return Length(n, 0, opts...)
}

// MaxLength is Length(0, n).
func MaxLength(n int, opts ...Option) Func {
	return Length(0, n, opts...)
}

// Pattern fails for strings that do not match re. Empty values pass.
func Pattern(re *regexp.Regexp, opts ...Option) Func {
	o := buildOptions(opts)
	vars := map[string]any{"pattern": re.String()}
	return func(_ context.Context, value any, _ Context) (Result, error) {
		if isBlank(value) {
			return Pass(), nil
		}
		s, ok := value.(string)
		if !ok || !re.MatchString(s) {
			return o.fail(CodePattern, "Invalid format", vars), nil
		}
		return Pass(), nil
	}
}

// Range bounds a number, or a numeric string, to [min, max]. Use
// math.Inf for an open bound. Empty values pass.
func Range(min, max float64, opts ...Option) Func {
	o := buildOptions(opts)
	vars := map[string]any{"min": min, "max": max}
	return func(_ context.Context, value any, _ Context) (Result, error) {
		if isBlank(value) {
			return Pass(), nil
		}
		n, ok := asNumber(value)
		if !ok {
			return o.fail(CodeNumber, "Must be a number", vars), nil
		}
		if n < min || n > max {
			return o.fail(CodeRange, rangeMessage(min, max), vars), nil
		}
		return Pass(), nil
	}
}

func rangeMessage(min, max float64) string {
	switch {
	case math.IsInf(min, -1) && math.IsInf(max, 1):
		return "Must be a number"
	case math.IsInf(min, -1):
		return "Must be at most ${max}"
	case math.IsInf(max, 1):
		return "Must be at least ${min}"
	}
	return "Must be between ${min} and ${max}"
}

// OneOf fails for values not deep-equal to one of allowed. Empty values
// pass.
func OneOf(allowed []any, opts ...Option) Func {
	o := buildOptions(opts)
	vars := map[string]any{"values": allowed}
	return func(_ context.Context, value any, _ Context) (Result, error) {
		if isBlank(value) {
			return Pass(), nil
		}
		for _, a := range allowed {
			if path.Equal(value, a) {
				return Pass(), nil
			}
		}
		return o.fail(CodeOneOf, "Must be one of ${values}", vars), nil
	}
}

// Registered built-ins read their settings from rule params.
var builtinNames = []string{"required", "email", "length", "minLength", "maxLength", "pattern", "range", "oneOf"}

// builtinFuncs returns the registered built-ins. Compiled patterns are
// cached in patterns, which belongs to the owning Registry.
func builtinFuncs(patterns *registry.Registry[string, *regexp.Regexp]) map[string]Func {
	return map[string]Func{
		"required": func(ctx context.Context, value any, vc Context) (Result, error) {
			return Required()(ctx, value, vc)
		},
		"email": func(ctx context.Context, value any, vc Context) (Result, error) {
			return Email()(ctx, value, vc)
		},
		"length": func(ctx context.Context, value any, vc Context) (Result, error) {
			return Length(vc.Params.Int("min", 0), vc.Params.Int("max", 0))(ctx, value, vc)
		},
		"minLength": func(ctx context.Context, value any, vc Context) (Result, error) {
			return MinLength(vc.Params.Int("min", 0))(ctx, value, vc)
		},
		"maxLength": func(ctx context.Context, value any, vc Context) (Result, error) {
			return MaxLength(vc.Params.Int("max", 0))(ctx, value, vc)
		},
		"pattern": func(ctx context.Context, value any, vc Context) (Result, error) {
			re, err := compilePattern(patterns, vc.Params.String("pattern", ""))
			if err != nil {
				return Result{}, err
			}
			return Pattern(re)(ctx, value, vc)
		},
		"range": func(ctx context.Context, value any, vc Context) (Result, error) {
			return Range(vc.Params.Float("min", math.Inf(-1)), vc.Params.Float("max", math.Inf(1)))(ctx, value, vc)
		},
		"oneOf": func(ctx context.Context, value any, vc Context) (Result, error) {
			allowed, ok := vc.Params.Any("values", nil).([]any)
			if !ok {
				strs := vc.Params.StringSlice("values", nil)
				if strs == nil {
					return Result{}, fmt.Errorf("oneOf: params.values must be a list")
				}
				allowed = make([]any, len(strs))
				for i, s := range strs {
					allowed[i] = s
				}
			}
			return OneOf(allowed)(ctx, value, vc)
		},
	}
}

func compilePattern(patterns *registry.Registry[string, *regexp.Regexp], expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, fmt.Errorf("pattern: params.pattern is required")
	}
	if re, ok := patterns.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	patterns.Register(expr, re)
	return re, nil
}

// isBlank reports nil and whitespace-only strings.
func isBlank(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func isEmpty(value any) bool {
	if isBlank(value) {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return uniseg.GraphemeClusterCount(v), true
	case fmt.Stringer:
		return uniseg.GraphemeClusterCount(v.String()), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}
