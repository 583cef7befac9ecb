// Package path addresses locations in a nested form data tree.
//
// A path is a dot-separated string ("address.city") that walks through
// map[string]any levels. Reads of absent paths return (nil, false) rather
// than failing; writes create intermediate maps as needed.
package path

import (
	"reflect"
	"sort"
	"strings"
)

// Split breaks a dot path into its segments.
// Empty segments are dropped, so "a..b" addresses the same slot as "a.b".
func Split(p string) []string {
	if p == "" {
		return nil
	}
	raw := strings.Split(p, ".")
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Get returns the value stored at p and whether it exists.
func Get(tree map[string]any, p string) (any, bool) {
	segs := Split(p)
	if len(segs) == 0 || tree == nil {
		return nil, false
	}

	var cur any = tree
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Lookup is Get without the presence flag.
func Lookup(tree map[string]any, p string) any {
	v, _ := Get(tree, p)
	return v
}

// Set stores value at p, creating intermediate maps.
// A non-map value sitting on the way to p is replaced by a map.
// Set is a no-op for an empty path.
func Set(tree map[string]any, p string, value any) {
	segs := Split(p)
	if len(segs) == 0 || tree == nil {
		return
	}

	cur := tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

// Delete removes the entry at p. Parents are left in place, even when they
// become empty. Returns true if something was removed.
func Delete(tree map[string]any, p string) bool {
	segs := Split(p)
	if len(segs) == 0 || tree == nil {
		return false
	}

	cur := tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// Related reports whether a and b address the same slot or one contains
// the other ("a" and "a.b" are related, "a.b" and "a.c" are not).
func Related(a, b string) bool {
	as, bs := Split(a), Split(b)
	n := min(len(as), len(bs))
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Flatten returns every leaf of tree keyed by its dot path. Intermediate
// maps are included too, so both "address" and "address.city" resolve.
func Flatten(tree map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", tree, make(map[uintptr]bool))
	return out
}

// flattenInto walks m once; a map already on the walk is recorded but not
// descended into again.
func flattenInto(out map[string]any, prefix string, m map[string]any, seen map[uintptr]bool) {
	ptr := reflect.ValueOf(m).Pointer()
	if seen[ptr] {
		return
	}
	seen[ptr] = true
	defer delete(seen, ptr)

	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		out[key] = v
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, key, child, seen)
		}
	}
}

// Keys returns the top-level keys of m in sorted order.
func Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
