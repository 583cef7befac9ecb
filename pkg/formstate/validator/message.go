package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches ${name}; names may contain dots.
var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_.]*)\}`)

// MissingAction controls placeholders with no matching variable.
type MissingAction int

const (
	// MissingKeep leaves the placeholder as written. This is the default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with "".
	MissingEmpty
)

// Expander interpolates ${name} placeholders in validation messages.
// It is safe for concurrent use.
type Expander struct {
	missing MissingAction
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithMissingAction sets how unknown placeholders are handled.
func WithMissingAction(action MissingAction) ExpanderOption {
	return func(e *Expander) {
		e.missing = action
	}
}

// NewExpander creates an Expander. Unknown placeholders are kept.
func NewExpander(opts ...ExpanderOption) *Expander {
	e := &Expander{missing: MissingKeep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces each ${name} in msg with vars[name].
// Slices render as comma-separated lists.
func (e *Expander) Expand(msg string, vars map[string]any) string {
	if !strings.Contains(msg, "${") {
		return msg
	}
	return placeholderPattern.ReplaceAllStringFunc(msg, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := vars[name]; ok {
			return formatValue(v)
		}
		if e.missing == MissingEmpty {
			return ""
		}
		return match
	})
}

var defaultExpander = NewExpander()

// FormatMessage expands msg with the default expander.
func FormatMessage(msg string, vars map[string]any) string {
	return defaultExpander.Expand(msg, vars)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
