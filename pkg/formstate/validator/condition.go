package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadCondition indicates a When condition that cannot be parsed.
var ErrBadCondition = errors.New("invalid condition")

// BinaryOp compares two operands.
type BinaryOp func(left, right any) bool

// ConditionEvaluator evaluates When conditions against flattened form
// values.
//
// Grammar, loosest binding first: "or", "and", "not"/"!", then one
// comparison (==, !=, >=, <=, >, <, contains, or a custom operator) or
// a single operand tested for truthiness. Operands are quoted strings,
// numbers, true, false, null, or dot-paths into the form values. A path
// that is absent from the values resolves to null.
type ConditionEvaluator struct {
	customOps map[string]BinaryOp
}

// ConditionOption configures a ConditionEvaluator.
type ConditionOption func(*ConditionEvaluator)

// WithOperator registers a word operator, used as "left name right".
func WithOperator(name string, fn BinaryOp) ConditionOption {
	return func(e *ConditionEvaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// NewConditionEvaluator creates an evaluator.
func NewConditionEvaluator(opts ...ConditionOption) *ConditionEvaluator {
	e := &ConditionEvaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type comparison struct {
	op string
	fn BinaryOp
}

// Two-character operators come before their one-character prefixes.
var comparisons = []comparison{
	{"==", func(l, r any) bool { return looseEqual(l, r) }},
	{"!=", func(l, r any) bool { return !looseEqual(l, r) }},
	{">=", numeric(func(l, r float64) bool { return l >= r })},
	{"<=", numeric(func(l, r float64) bool { return l <= r })},
	{">", numeric(func(l, r float64) bool { return l > r })},
	{"<", numeric(func(l, r float64) bool { return l < r })},
	{" contains ", func(l, r any) bool {
		return l != nil && strings.Contains(fmt.Sprint(l), fmt.Sprint(r))
	}},
}

// Evaluate evaluates cond. An empty condition is true.
func (e *ConditionEvaluator) Evaluate(cond string, values map[string]any) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return true, nil
	}
	return e.eval(cond, values)
}

func (e *ConditionEvaluator) eval(cond string, values map[string]any) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, fmt.Errorf("%w: empty operand", ErrBadCondition)
	}

	for _, joiner := range []string{" or ", " and "} {
		left, right, ok := cut(cond, joiner)
		if !ok {
			continue
		}
		l, err := e.eval(left, values)
		if err != nil {
			return false, err
		}
		if joiner == " or " && l {
			return true, nil
		}
		if joiner == " and " && !l {
			return false, nil
		}
		return e.eval(right, values)
	}

	if rest, ok := strings.CutPrefix(cond, "not "); ok {
		v, err := e.eval(rest, values)
		return !v, err
	}
	if rest, ok := strings.CutPrefix(cond, "!"); ok && !strings.HasPrefix(rest, "=") {
		v, err := e.eval(rest, values)
		return !v, err
	}

	for _, c := range comparisons {
		if left, right, ok := cut(cond, c.op); ok {
			return e.compare(left, right, c.fn, values)
		}
	}
	for name, fn := range e.customOps {
		if left, right, ok := cut(cond, " "+name+" "); ok {
			return e.compare(left, right, fn, values)
		}
	}

	v, err := resolveOperand(cond, values)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (e *ConditionEvaluator) compare(left, right string, fn BinaryOp, values map[string]any) (bool, error) {
	l, err := resolveOperand(left, values)
	if err != nil {
		return false, err
	}
	r, err := resolveOperand(right, values)
	if err != nil {
		return false, err
	}
	return fn(l, r), nil
}

// cut splits s around the first sep that is not inside quotes.
func cut(s, sep string) (string, string, bool) {
	var quote byte
	for i := 0; i+len(sep) <= len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case s[i:i+len(sep)] == sep:
			return s[:i], s[i+len(sep):], true
		}
	}
	return "", "", false
}

func resolveOperand(s string, values map[string]any) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty operand", ErrBadCondition)
	}

	if s[0] == '\'' || s[0] == '"' {
		if len(s) < 2 || s[len(s)-1] != s[0] {
			return nil, fmt.Errorf("%w: unterminated string %s", ErrBadCondition, s)
		}
		return s[1 : len(s)-1], nil
	}

	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "nil":
		return nil, nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}

	return values[s], nil
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

// looseEqual compares numbers by value and everything else by its
// printed form, so 3 == 3.0 and "3" == 3.
func looseEqual(l, r any) bool {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		return lf == rf
	}
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	return fmt.Sprint(l) == fmt.Sprint(r)
}

func numeric(cmp func(l, r float64) bool) BinaryOp {
	return func(l, r any) bool {
		lf, lok := asNumber(l)
		rf, rok := asNumber(r)
		return lok && rok && cmp(lf, rf)
	}
}

// asNumber accepts numbers and numeric strings.
func asNumber(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}
