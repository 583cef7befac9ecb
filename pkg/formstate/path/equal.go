package path

import (
	"math"
	"reflect"
	"regexp"
	"time"
)

// Equal reports whether a and b are structurally equal.
//
// It differs from reflect.DeepEqual where form values need it to:
//   - numbers compare by exact value across kinds (int 1 equals float64 1)
//   - NaN equals NaN
//   - time.Time compares with Time.Equal
//   - *regexp.Regexp compares by source pattern
//   - a nil map or slice equals an empty one of the same type
//
// Cyclic structures are handled; a cycle revisited with the same pair of
// references is treated as equal.
func Equal(a, b any) bool {
	return deepEqual(reflect.ValueOf(a), reflect.ValueOf(b), make(map[visit]bool))
}

type visit struct {
	a, b uintptr
	typ  reflect.Type
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	regexpType = reflect.TypeOf(&regexp.Regexp{})
)

func deepEqual(v1, v2 reflect.Value, visited map[visit]bool) bool {
	v1, v2 = unwrapInterface(v1), unwrapInterface(v2)

	if !v1.IsValid() || !v2.IsValid() {
		return !v1.IsValid() && !v2.IsValid()
	}

	if isNumber(v1.Kind()) && isNumber(v2.Kind()) {
		return numbersEqual(v1, v2)
	}

	if v1.Type() != v2.Type() {
		return false
	}

	switch {
	case !v1.CanInterface() || !v2.CanInterface():
	case v1.Type() == timeType:
		return v1.Interface().(time.Time).Equal(v2.Interface().(time.Time))
	case v1.Type() == regexpType:
		r1, r2 := v1.Interface().(*regexp.Regexp), v2.Interface().(*regexp.Regexp)
		if r1 == nil || r2 == nil {
			return r1 == r2
		}
		return r1.String() == r2.String()
	}

	if hard(v1.Kind()) {
		if p1, p2, ok := refs(v1, v2); ok {
			if p1 == p2 && v1.Kind() != reflect.Slice {
				return true
			}
			key := visit{a: p1, b: p2, typ: v1.Type()}
			if visited[key] {
				return true
			}
			visited[key] = true
		}
	}

	switch v1.Kind() {
	case reflect.Map:
		if v1.Len() != v2.Len() {
			return false
		}
		iter := v1.MapRange()
		for iter.Next() {
			other := v2.MapIndex(iter.Key())
			if !other.IsValid() {
				return false
			}
			if !deepEqual(iter.Value(), other, visited) {
				return false
			}
		}
		return true

	case reflect.Slice, reflect.Array:
		if v1.Len() != v2.Len() {
			return false
		}
		for i := 0; i < v1.Len(); i++ {
			if !deepEqual(v1.Index(i), v2.Index(i), visited) {
				return false
			}
		}
		return true

	case reflect.Pointer:
		if v1.IsNil() || v2.IsNil() {
			return v1.IsNil() && v2.IsNil()
		}
		return deepEqual(v1.Elem(), v2.Elem(), visited)

	case reflect.Struct:
		for i := 0; i < v1.NumField(); i++ {
			if !deepEqual(v1.Field(i), v2.Field(i), visited) {
				return false
			}
		}
		return true

	case reflect.Func:
		return v1.IsNil() && v2.IsNil()

	case reflect.Chan, reflect.UnsafePointer:
		return v1.Pointer() == v2.Pointer()

	case reflect.String:
		return v1.String() == v2.String()

	case reflect.Bool:
		return v1.Bool() == v2.Bool()

	case reflect.Complex64, reflect.Complex128:
		return v1.Complex() == v2.Complex()
	}

	return false
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func hard(k reflect.Kind) bool {
	switch k {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		return true
	}
	return false
}

func refs(v1, v2 reflect.Value) (uintptr, uintptr, bool) {
	if v1.IsNil() || v2.IsNil() {
		return 0, 0, false
	}
	return v1.Pointer(), v2.Pointer(), true
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

type numClass int

const (
	numInt numClass = iota
	numUint
	numFloat
)

func classOf(k reflect.Kind) numClass {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return numInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return numUint
	default:
		return numFloat
	}
}

// numbersEqual compares without rounding through float64. NaN equals NaN.
func numbersEqual(v1, v2 reflect.Value) bool {
	c1, c2 := classOf(v1.Kind()), classOf(v2.Kind())
	if c1 > c2 {
		v1, v2 = v2, v1
		c1, c2 = c2, c1
	}

	switch {
	case c1 == numInt && c2 == numInt:
		return v1.Int() == v2.Int()
	case c1 == numUint && c2 == numUint:
		return v1.Uint() == v2.Uint()
	case c1 == numInt && c2 == numUint:
		i := v1.Int()
		return i >= 0 && uint64(i) == v2.Uint()
	case c1 == numFloat:
		f1, f2 := v1.Float(), v2.Float()
		return f1 == f2 || (math.IsNaN(f1) && math.IsNaN(f2))
	case c1 == numInt:
		f := v2.Float()
		if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
			return false
		}
		return int64(f) == v1.Int()
	default:
		f := v2.Float()
		if f != math.Trunc(f) || f < 0 || f >= 1<<64 {
			return false
		}
		return uint64(f) == v1.Uint()
	}
}
