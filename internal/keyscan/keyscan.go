// Package keyscan walks JSON-like payloads looking for object keys.
//
// Payloads that cross the mesh boundary are decoded JSON trees
// (map[string]any / []any), but callers may also hand in typed maps and
// slices. The walk is reflection based so every map with string keys is
// inspected at any depth, and it tolerates cycles: each map, slice and
// pointer is visited at most once, keyed by identity, and a revisit is
// treated as clean.
package keyscan

import (
	"reflect"
	"sort"
)

// MatchFunc reports whether a key name is of interest.
type MatchFunc func(key string) bool

type identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

// Find returns the first key (in sorted order per object) for which match
// returns true, searching v recursively. The boolean is false when no key
// matches.
func Find(v any, match MatchFunc) (string, bool) {
	w := walker{match: match, seen: make(map[identity]struct{})}
	return w.walk(reflect.ValueOf(v))
}

// Contains reports whether any key in v satisfies match.
func Contains(v any, match MatchFunc) bool {
	_, ok := Find(v, match)
	return ok
}

type walker struct {
	match MatchFunc
	seen  map[identity]struct{}
}

// visit records a reference value and reports whether it was already seen.
func (w *walker) visit(v reflect.Value) bool {
	id := identity{kind: v.Kind(), ptr: v.Pointer()}
	if v.Kind() == reflect.Slice {
		id.len = v.Len()
	}
	if _, ok := w.seen[id]; ok {
		return true
	}
	w.seen[id] = struct{}{}
	return false
}

func (w *walker) walk(v reflect.Value) (string, bool) {
	if !v.IsValid() {
		return "", false
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return "", false
		}
		return w.walk(v.Elem())

	case reflect.Pointer:
		if v.IsNil() || w.visit(v) {
			return "", false
		}
		return w.walk(v.Elem())

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || w.visit(v) {
			return "", false
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			if w.match(k.String()) {
				return k.String(), true
			}
			if found, ok := w.walk(v.MapIndex(k)); ok {
				return found, true
			}
		}
		return "", false

	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 || w.visit(v) {
			return "", false
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if found, ok := w.walk(v.Index(i)); ok {
				return found, true
			}
		}
		return "", false

	default:
		return "", false
	}
}
