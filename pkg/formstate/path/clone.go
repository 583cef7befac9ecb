package path

import "reflect"

// Clone returns a deep copy of v.
//
// Maps, slices and arrays are copied recursively, including the
// map[string]any / []any shapes produced by JSON and YAML decoding.
// Pointers, channels and functions are shared, not copied. A map or slice
// reachable twice (including through a cycle) is copied once and the copy
// is reused, so cyclic trees clone without recursing forever.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	c := cloner{seen: make(map[uintptr]reflect.Value)}
	out := c.clone(reflect.ValueOf(v))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

// CloneTree deep-copies a data tree. A nil tree clones to an empty map.
func CloneTree(tree map[string]any) map[string]any {
	if tree == nil {
		return make(map[string]any)
	}
	out, _ := Clone(tree).(map[string]any)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}

type cloner struct {
	seen map[uintptr]reflect.Value
}

func (c *cloner) clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := c.clone(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		if prev, ok := c.seen[v.Pointer()]; ok {
			return prev
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[v.Pointer()] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.assignable(c.clone(iter.Value()), v.Type().Elem()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		if prev, ok := c.seen[v.Pointer()]; ok && prev.Len() == v.Len() {
			return prev
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		if v.Len() > 0 {
			c.seen[v.Pointer()] = out
		}
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.assignable(c.clone(v.Index(i)), v.Type().Elem()))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.assignable(c.clone(v.Index(i)), v.Type().Elem()))
		}
		return out
	}

	return v
}

// assignable converts an invalid (nil interface) value into the zero value
// of the destination element type so Set/SetMapIndex accept it.
func (c *cloner) assignable(v reflect.Value, elem reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(elem)
	}
	return v
}
