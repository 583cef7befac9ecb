package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	vars := map[string]any{
		"min":       3,
		"values":    []any{"a", "b"},
		"names":     []string{"x", "y"},
		"user.name": "ana",
	}

	tests := []struct {
		msg  string
		want string
	}{
		{"plain", "plain"},
		{"At least ${min}", "At least 3"},
		{"One of ${values}", "One of a, b"},
		{"One of ${names}", "One of x, y"},
		{"Hi ${user.name}", "Hi ana"},
		{"Keep ${unknown}", "Keep ${unknown}"},
		{"Not a var $min", "Not a var $min"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMessage(tt.msg, vars), tt.msg)
	}

	empty := NewExpander(WithMissingAction(MissingEmpty))
	assert.Equal(t, "Keep ", empty.Expand("Keep ${unknown}", vars))
}

func TestParams(t *testing.T) {
	p := Params{
		"s":     "text",
		"b":     true,
		"i":     3,
		"i64":   int64(4),
		"f":     2.5,
		"fi":    6.0,
		"list":  []any{"a", "b"},
		"mixed": []any{"a", 1},
		"strs":  []string{"c"},
	}

	assert.Equal(t, "text", p.String("s", "d"))
	assert.Equal(t, "d", p.String("i", "d"))
	assert.True(t, p.Bool("b", false))
	assert.Equal(t, 3, p.Int("i", 0))
	assert.Equal(t, 4, p.Int("i64", 0))
	assert.Equal(t, 6, p.Int("fi", 0))
	assert.Equal(t, 9, p.Int("f", 9), "fractional floats do not convert")
	assert.Equal(t, 2.5, p.Float("f", 0))
	assert.Equal(t, 3.0, p.Float("i", 0))
	assert.Equal(t, []string{"a", "b"}, p.StringSlice("list", nil))
	assert.Nil(t, p.StringSlice("mixed", nil))
	assert.Equal(t, []string{"c"}, p.StringSlice("strs", nil))
	assert.Equal(t, "d", p.Any("missing", "d"))
	assert.True(t, p.Has("s"))
	assert.False(t, p.Has("missing"))

	var nilParams Params
	assert.Equal(t, 1, nilParams.Int("x", 1))
	assert.Nil(t, nilParams.Raw())
}
