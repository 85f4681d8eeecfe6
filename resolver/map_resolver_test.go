package resolver

import (
	"testing"

	"github.com/adamharrison/liquid-go/value"
)

func TestMapResolverLookupAndAssign(t *testing.T) {
	r := NewMapResolver(map[string]any{"x": int64(1)})
	v, ok := r.Lookup("x")
	if !ok || v.AsInt() != 1 {
		t.Fatalf("Lookup(x) = %v,%v", v, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) should report not-found")
	}
	r.Assign("y", value.String("hi"))
	v, ok = r.Lookup("y")
	if !ok || v.AsString() != "hi" {
		t.Fatalf("Lookup(y) after Assign = %v,%v", v, ok)
	}
}

func TestMapResolverIndexArrayAndNegative(t *testing.T) {
	r := NewMapResolver(nil)
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	v, ok := r.Index(arr, value.Int(1))
	if !ok || v.AsInt() != 2 {
		t.Fatalf("Index(1) = %v,%v", v, ok)
	}
	v, ok = r.Index(arr, value.Int(-1))
	if !ok || v.AsInt() != 3 {
		t.Fatalf("Index(-1) = %v,%v", v, ok)
	}
	if _, ok := r.Index(arr, value.Int(10)); ok {
		t.Error("out-of-range index should fail")
	}
}

func TestMapResolverIndexHandleMap(t *testing.T) {
	r := NewMapResolver(nil)
	h := value.FromHandle(map[string]any{"name": "bob"})
	v, ok := r.Index(h, value.String("name"))
	if !ok || v.AsString() != "bob" {
		t.Fatalf("Index(name) = %v,%v", v, ok)
	}
	if _, ok := r.Index(h, value.String("missing")); ok {
		t.Error("missing key should fail")
	}
}

func TestMapResolverLength(t *testing.T) {
	r := NewMapResolver(nil)
	if n, ok := r.Length(value.String("hello")); !ok || n != 5 {
		t.Errorf("Length(string) = %d,%v", n, ok)
	}
	arr := value.Array([]value.Value{value.Int(1), value.Int(2)})
	if n, ok := r.Length(arr); !ok || n != 2 {
		t.Errorf("Length(array) = %d,%v", n, ok)
	}
	if _, ok := r.Length(value.Int(5)); ok {
		t.Error("Length(int) should be undefined")
	}
}

func TestMapResolverEnumerateLimitOffsetReverse(t *testing.T) {
	r := NewMapResolver(nil)
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)})

	var got []int64
	length, ok := r.Enumerate(arr, 1, 2, false, func(i int, v value.Value) bool {
		got = append(got, v.AsInt())
		return true
	})
	if !ok || length != 4 {
		t.Fatalf("Enumerate length = %d,%v", length, ok)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("offset/limit got %v, want [2 3]", got)
	}

	got = nil
	r.Enumerate(arr, 0, -1, true, func(i int, v value.Value) bool {
		got = append(got, v.AsInt())
		return true
	})
	if len(got) != 4 || got[0] != 4 || got[3] != 1 {
		t.Errorf("reversed enumerate got %v, want [4 3 2 1]", got)
	}
}

func TestMapResolverEnumerateStopsEarly(t *testing.T) {
	r := NewMapResolver(nil)
	arr := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	var got []int64
	r.Enumerate(arr, 0, -1, false, func(i int, v value.Value) bool {
		got = append(got, v.AsInt())
		return v.AsInt() < 2
	})
	if len(got) != 2 {
		t.Errorf("early-stop enumerate visited %d elements, want 2", len(got))
	}
}

func TestMapResolverAssignIndexMutatesHandle(t *testing.T) {
	r := NewMapResolver(nil)
	m := map[string]any{"a": int64(1)}
	h := value.FromHandle(m)
	if ok := r.AssignIndex(h, value.String("a"), value.Int(9)); !ok {
		t.Fatal("AssignIndex should succeed on a map handle")
	}
	if m["a"] != int64(9) {
		t.Errorf("m[a] = %v, want 9", m["a"])
	}
}

func TestMapResolverRoundTripsNestedArray(t *testing.T) {
	r := NewMapResolver(map[string]any{"items": []any{int64(1), "two", 3.5}})
	v, ok := r.Lookup("items")
	if !ok {
		t.Fatal("Lookup(items) failed")
	}
	arr := v.AsArray()
	if len(arr) != 3 || arr[0].AsInt() != 1 || arr[1].AsString() != "two" || arr[2].AsFloat() != 3.5 {
		t.Errorf("round-tripped array = %+v", arr)
	}
}

func TestMapResolverCompareDelegatesToValue(t *testing.T) {
	r := NewMapResolver(nil)
	if cmp, ok := r.Compare(value.Int(1), value.Int(2)); !ok || cmp >= 0 {
		t.Errorf("Compare(1,2) = %d,%v", cmp, ok)
	}
}
