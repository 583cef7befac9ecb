package validator

import (
	"regexp"

	"github.com/randalmurphal/formstate/pkg/formstate/registry"
)

// Registry maps validator names to functions. Registering an existing
// name replaces it.
type Registry struct {
	table *registry.Registry[string, Func]

	// patterns caches regexps compiled by the "pattern" built-in.
	patterns *registry.Registry[string, *regexp.Regexp]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		table:    registry.New[string, Func](),
		patterns: registry.New[string, *regexp.Regexp](),
	}
}

// NewDefaultRegistry creates a registry holding the built-in validators:
// required, email, length, minLength, maxLength, pattern, range and oneOf.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	fns := builtinFuncs(r.patterns)
	for _, name := range builtinNames {
		r.Register(name, fns[name])
	}
	return r
}

// Register adds or replaces a validator.
func (r *Registry) Register(name string, fn Func) {
	r.table.Register(name, fn)
}

// RegisterMany adds or replaces several validators.
func (r *Registry) RegisterMany(fns map[string]Func) {
	r.table.RegisterMany(fns)
}

// Get returns the validator registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	return r.table.Get(name)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	return r.table.Has(name)
}

// Unregister removes name. Returns true if it was registered.
func (r *Registry) Unregister(name string) bool {
	_, ok := r.table.Delete(name)
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return r.table.Keys()
}

// Clear removes every validator.
func (r *Registry) Clear() {
	r.table.Clear()
}

// resolve returns the function a ref points to.
func (r *Registry) resolve(ref Ref) (Func, bool) {
	if ref.fn != nil {
		return ref.fn, true
	}
	if r == nil {
		return nil, false
	}
	return r.Get(ref.name)
}
