package resolver

import (
	"sort"

	"github.com/adamharrison/liquid-go/value"
)

// MapResolver is the built-in Resolver backing standalone use of the
// engine (spec.md §1 treats the resolver as an external collaborator,
// but an engine with none registered would not render anything — every
// real Liquid distribution ships one). It stores the template's
// top-level variables in a plain Go map and represents nested
// collections as value.Value of KindArray (for slices) or KindHandle
// wrapping a map[string]any (for objects), converting native Go values
// to value.Value lazily, on first dereference.
type MapResolver struct {
	vars map[string]any
}

// NewMapResolver builds a MapResolver seeded from a native Go map, the
// shape a caller's own data naturally arrives in (JSON-decoded structs,
// literal map[string]any{...}, etc).
func NewMapResolver(seed map[string]any) *MapResolver {
	if seed == nil {
		seed = map[string]any{}
	}
	return &MapResolver{vars: seed}
}

func (r *MapResolver) Lookup(name string) (value.Value, bool) {
	v, ok := r.vars[name]
	if !ok {
		return value.Nil(), false
	}
	return fromNative(v), true
}

func (r *MapResolver) Assign(name string, val value.Value) {
	r.vars[name] = toNative(val)
}

func (r *MapResolver) Index(v value.Value, key value.Value) (value.Value, bool) {
	switch v.Kind() {
	case value.KindArray:
		arr := v.AsArray()
		idx, ok := indexOf(key, len(arr))
		if !ok {
			return value.Nil(), false
		}
		return arr[idx], true
	case value.KindHandle:
		switch h := v.AsHandle().(type) {
		case map[string]any:
			native, ok := h[key.String()]
			if !ok {
				return value.Nil(), false
			}
			return fromNative(native), true
		case []any:
			idx, ok := indexOf(key, len(h))
			if !ok {
				return value.Nil(), false
			}
			return fromNative(h[idx]), true
		}
	case value.KindString:
		if key.Kind() == value.KindInt {
			s := []rune(v.AsString())
			idx, ok := indexOf(key, len(s))
			if !ok {
				return value.Nil(), false
			}
			return value.String(string(s[idx])), true
		}
	}
	return value.Nil(), false
}

func indexOf(key value.Value, length int) (int, bool) {
	if key.Kind() != value.KindInt {
		return 0, false
	}
	i := int(key.AsInt())
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

func (r *MapResolver) Length(v value.Value) (int, bool) {
	switch v.Kind() {
	case value.KindArray:
		return len(v.AsArray()), true
	case value.KindString:
		return len([]rune(v.AsString())), true
	case value.KindHandle:
		switch h := v.AsHandle().(type) {
		case map[string]any:
			return len(h), true
		case []any:
			return len(h), true
		}
	}
	return 0, false
}

func (r *MapResolver) Enumerate(v value.Value, start, limit int, reverse bool, fn IterFunc) (int, bool) {
	var elems []value.Value
	switch v.Kind() {
	case value.KindArray:
		elems = v.AsArray()
	case value.KindHandle:
		switch h := v.AsHandle().(type) {
		case []any:
			elems = make([]value.Value, len(h))
			for i, e := range h {
				elems[i] = fromNative(e)
			}
		case map[string]any:
			keys := make([]string, 0, len(h))
			for k := range h {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			elems = make([]value.Value, len(keys))
			for i, k := range keys {
				elems[i] = value.Array([]value.Value{value.String(k), fromNative(h[k])})
			}
		default:
			return 0, false
		}
	default:
		return 0, false
	}

	length := len(elems)
	if reverse {
		rev := make([]value.Value, length)
		for i, e := range elems {
			rev[length-1-i] = e
		}
		elems = rev
	}
	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	elems = elems[start:]
	if limit >= 0 && limit < len(elems) {
		elems = elems[:limit]
	}
	for i, e := range elems {
		if !fn(start+i, e) {
			break
		}
	}
	return length, true
}

func (r *MapResolver) AssignIndex(v value.Value, key value.Value, val value.Value) bool {
	if h, ok := v.AsHandle().(map[string]any); ok {
		h[key.String()] = toNative(val)
		return true
	}
	if h, ok := v.AsHandle().([]any); ok {
		idx, ok := indexOf(key, len(h))
		if !ok {
			return false
		}
		h[idx] = toNative(val)
		return true
	}
	return false
}

func (r *MapResolver) Compare(a, b value.Value) (int, bool) {
	return value.Compare(a, b)
}

// fromNative converts a Go value produced by JSON decoding or literal
// construction into the core's Value representation.
func fromNative(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil()
	case bool:
		return value.Bool(t)
	case int:
		return value.Int(int64(t))
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case string:
		return value.String(t)
	case []any:
		vs := make([]value.Value, len(t))
		for i, e := range t {
			vs[i] = fromNative(e)
		}
		return value.Array(vs)
	case []value.Value:
		return value.Array(t)
	case map[string]any:
		return value.FromHandle(t)
	case value.Value:
		return t
	default:
		return value.FromHandle(t)
	}
}

// toNative unwraps a Value back into the plain Go shape MapResolver
// stores, so assigned values round-trip through Lookup/Index the same
// way pre-existing ones do.
func toNative(v value.Value) any {
	switch v.Kind() {
	case value.KindNil:
		return nil
	case value.KindBool:
		return v.AsBool()
	case value.KindInt:
		return v.AsInt()
	case value.KindFloat:
		return v.AsFloat()
	case value.KindString:
		return v.AsString()
	case value.KindArray:
		arr := v.AsArray()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = toNative(e)
		}
		return out
	case value.KindHandle:
		return v.AsHandle()
	default:
		return nil
	}
}
