// Package resolver defines the VariableResolver contract (spec.md
// §4.3): the host-supplied capability object through which the
// renderer and VM read and write the caller's native data. The core
// pipeline never interprets host memory directly — every dereference,
// assignment, and enumeration is funneled through a Resolver.
package resolver

import "github.com/adamharrison/liquid-go/value"

// IterFunc is the per-element callback handed to Enumerate. Returning
// false stops iteration early (the "continue?" shape named in spec.md
// §9, "Iteration callback shape").
type IterFunc func(index int, v value.Value) (cont bool)

// Resolver is the host capability object. A Renderer or VM instance
// owns exactly one Resolver and never shares it across goroutines
// (spec.md §5).
type Resolver interface {
	// Lookup resolves a root-level variable name against the host
	// store. ok is false if the name is unbound.
	Lookup(name string) (v value.Value, ok bool)

	// Index dereferences v by a string key (object/map member) or
	// integer-valued key (array element). ok is false if v is not
	// indexable or the key/index is absent.
	Index(v value.Value, key value.Value) (result value.Value, ok bool)

	// Length reports the enumerable length of v (string, array, or a
	// host collection behind a Handle). ok is false if v has no
	// defined length.
	Length(v value.Value) (n int, ok bool)

	// Enumerate walks up to limit elements of v starting at start,
	// optionally in reverse, invoking fn for each. limit < 0 means no
	// cap. Returns the total enumerable length.
	Enumerate(v value.Value, start, limit int, reverse bool, fn IterFunc) (length int, ok bool)

	// Assign binds name to val in the root store ({% assign %},
	// {% capture %}, {% increment %}, {% decrement %}).
	Assign(name string, val value.Value)

	// AssignIndex sets v[key] = val for an indexable handle value,
	// used by filters/tags that mutate host collections in place.
	// ok is false if v is not a mutable indexable.
	AssignIndex(v value.Value, key value.Value, val value.Value) (ok bool)

	// Compare extends Value's own numeric/string total order to host
	// values carried behind a Handle (e.g. for the `sort` filter over
	// host objects). ok is false if no ordering is defined.
	Compare(a, b value.Value) (cmp int, ok bool)
}
