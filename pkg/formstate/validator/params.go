package validator

// Params holds a rule's configuration, such as {"min": 3}.
// Accessors return the default when the key is missing or the value
// cannot be converted to the requested type, so built-ins can read
// params decoded from YAML or JSON without type assertions.
type Params map[string]any

// String returns the string value for key, or def.
func (p Params) String(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the boolean value for key, or def.
func (p Params) Bool(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer value for key, or def.
// Floats convert only when they have no fractional part.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		if v == float32(int(v)) {
			return int(v)
		}
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return def
}

// Float returns the float64 value for key, or def.
func (p Params) Float(key string, def float64) float64 {
	if f, ok := toFloat(p[key]); ok {
		return f
	}
	return def
}

// StringSlice returns the string slice for key, or def.
// A []any converts only when every element is a string.
func (p Params) StringSlice(key string, def []string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out = append(out, s)
		}
		return out
	}
	return def
}

// Any returns the raw value for key, or def.
func (p Params) Any(key string, def any) any {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Raw returns the underlying map. It must not be modified.
func (p Params) Raw() map[string]any {
	return p
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
