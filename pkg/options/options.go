// Package options implements the nested option mapping used by form fields to
// carry merged configuration. Values are addressed with dotted paths such as
// "map.zoom"; lookups never fail and report missing paths with the Absent
// sentinel instead.
package options

import (
	"strings"
)

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is returned by Get when a path does not resolve to a value.
var Absent any = absent{}

// IsAbsent reports whether value is the Absent sentinel.
func IsAbsent(value any) bool {
	_, ok := value.(absent)
	return ok
}

// Options is a nested mapping of option names to values. The zero value is
// ready to use.
type Options struct {
	values map[string]any
}

// New returns Options holding a deep copy of values.
func New(values map[string]any) *Options {
	return &Options{values: cloneMap(values)}
}

// Merge builds Options from defaults with overrides applied one level deep.
//
// Only keys present in defaults survive; override keys unknown to defaults are
// dropped. When both sides hold a mapping for a key the inner keys are merged
// with the override winning. Any other combination (scalar over scalar,
// scalar over mapping, mapping over scalar) replaces the default wholesale.
// A nil override value counts as unset.
func Merge(defaults, overrides map[string]any) *Options {
	merged := make(map[string]any, len(defaults))
	for key, value := range defaults {
		override, ok := overrides[key]
		if !ok || override == nil {
			merged[key] = deepCopy(value)
			continue
		}
		base, baseIsMap := asMap(value)
		next, nextIsMap := asMap(override)
		if baseIsMap && nextIsMap {
			inner := cloneMap(base)
			for innerKey, innerValue := range next {
				inner[innerKey] = deepCopy(innerValue)
			}
			merged[key] = inner
			continue
		}
		merged[key] = deepCopy(override)
	}
	return &Options{values: merged}
}

// Get resolves path and returns the stored value or Absent.
func (o *Options) Get(path string) any {
	if value, ok := o.Lookup(path); ok {
		return value
	}
	return Absent
}

// Lookup resolves path and reports whether it exists.
func (o *Options) Lookup(path string) (any, bool) {
	if o == nil || o.values == nil {
		return nil, false
	}
	if !strings.Contains(path, ".") {
		value, ok := o.values[path]
		return value, ok
	}

	var current any = o.values
	for _, segment := range strings.Split(path, ".") {
		node, ok := asMap(current)
		if !ok {
			return nil, false
		}
		next, ok := node[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Set assigns value at path, creating intermediate mappings as needed. A
// scalar found along the path is replaced by a mapping.
func (o *Options) Set(path string, value any) *Options {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if !strings.Contains(path, ".") {
		o.values[path] = value
		return o
	}

	segments := strings.Split(path, ".")
	node := o.values
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			if converted, isMap := asMap(node[segment]); isMap {
				child = converted
			} else {
				child = make(map[string]any)
			}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
	return o
}

// Map returns a deep copy of the stored values.
func (o *Options) Map() map[string]any {
	if o == nil {
		return map[string]any{}
	}
	return cloneMap(o.values)
}

func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case map[string]string, map[any]any:
		converted, ok := asMap(typed)
		if !ok {
			return typed
		}
		return cloneMap(converted)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}
