// Package value implements the tagged Variant union that flows through
// every stage of the template pipeline: literal payloads on AST leaves,
// intermediate results in the tree-walking renderer, and register
// contents in the virtual machine.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the payload a Value carries.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to a value owned by the host's variable
// store. The core never interprets it; it is only ever round-tripped
// back through a Resolver.
type Handle interface{}

// Value is a closed tagged union. The zero Value is KindNil.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	h    Handle
}

func Nil() Value               { return Value{kind: KindNil} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Array(vs []Value) Value   { return Value{kind: KindArray, arr: vs} }
func FromHandle(h Handle) Value { return Value{kind: KindHandle, h: h} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() bool       { return v.b }
func (v Value) AsInt() int64       { return v.i }
func (v Value) AsFloat() float64   { return v.f }
func (v Value) AsString() string   { return v.s }
func (v Value) AsArray() []Value   { return v.arr }
func (v Value) AsHandle() Handle   { return v.h }

// FalsinessPolicy is a bitflag set declaring which Kinds count as false
// in a conditional, per spec.md §3's "falsiness policy".
type FalsinessPolicy uint8

const (
	FalseIsFalse FalsinessPolicy = 1 << iota
	ZeroIsFalse
	EmptyStringIsFalse
	NilIsFalse
)

// Permissive treats false, nil, 0, and "" as false (Liquid's historical
// loose mode). Strict treats only false and nil as false (real Liquid
// semantics, and this module's default).
const (
	Strict     = FalseIsFalse | NilIsFalse
	Permissive = FalseIsFalse | NilIsFalse | ZeroIsFalse | EmptyStringIsFalse
)

// Truthy reports whether v counts as true under the given policy.
func (v Value) Truthy(policy FalsinessPolicy) bool {
	switch v.kind {
	case KindNil:
		return policy&NilIsFalse == 0
	case KindBool:
		if !v.b {
			return policy&FalseIsFalse == 0
		}
		return true
	case KindInt:
		if v.i == 0 {
			return policy&ZeroIsFalse == 0
		}
		return true
	case KindFloat:
		if v.f == 0 {
			return policy&ZeroIsFalse == 0
		}
		return true
	case KindString:
		if v.s == "" {
			return policy&EmptyStringIsFalse == 0
		}
		return true
	default:
		return true
	}
}

// String renders v the way the renderer's OUTPUT step would: numbers in
// their canonical decimal form, nil as empty, arrays space-joined.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindArray:
		out := ""
		for i, e := range v.arr {
			if i > 0 {
				out += " "
			}
			out += e.String()
		}
		return out
	case KindHandle:
		return fmt.Sprintf("%v", v.h)
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if math.Trunc(f) == f && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// IsNumeric reports whether v is in the numeric family (int or float),
// the only family besides strings where total ordering is defined.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Float64 coerces a numeric Value to float64 for mixed int/float math.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Equal implements Variant equality: matching tags are required, per
// spec.md §3 ("equality requires matching tags"), except that the two
// numeric kinds compare by value across the family.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i
		}
		return a.Float64() == b.Float64()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindHandle:
		return a.h == b.h
	default:
		return false
	}
}

// Compare orders a and b, defined only within the same numeric family or
// between two strings (spec.md §3). ok is false outside those domains.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.IsNumeric() && b.IsNumeric() {
		if a.kind == KindInt && b.kind == KindInt {
			switch {
			case a.i < b.i:
				return -1, true
			case a.i > b.i:
				return 1, true
			default:
				return 0, true
			}
		}
		af, bf := a.Float64(), b.Float64()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KindString && b.kind == KindString {
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}
