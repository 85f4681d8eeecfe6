package ast

import (
	"testing"

	"github.com/adamharrison/liquid-go/value"
)

type fakeTag struct{ symbol string }

func (f *fakeTag) Symbol() string                      { return f.symbol }
func (f *fakeTag) Discriminant() Discriminant           { return DiscTag }
func (f *fakeTag) MinChildren() int                     { return 0 }
func (f *fakeTag) MaxChildren() int                     { return -1 }
func (f *fakeTag) Scheme() OptimizationScheme           { return SchemeNone }
func (f *fakeTag) Validate(n *Node) error               { return nil }
func (f *fakeTag) Intermediates() []string              { return nil }
func (f *fakeTag) Qualifiers() []string                 { return nil }
func (f *fakeTag) ClosesWith() string                   { return "" }
func (f *fakeTag) HaltsLexing() bool                    { return false }
func (f *fakeTag) Render(n *Node, rc RenderContext) (value.Value, error) {
	return value.Nil(), nil
}
func (f *fakeTag) Optimize(n *Node, oc OptimizeContext) (*Node, bool) { return n, false }
func (f *fakeTag) Compile(n *Node, cc CompileContext) error           { return nil }

func TestRegisterTagRejectsCollision(t *testing.T) {
	c := NewContext()
	if err := c.RegisterTag(&fakeTag{symbol: "foo"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := c.RegisterTag(&fakeTag{symbol: "foo"}); err == nil {
		t.Error("expected a collision error registering the same tag symbol twice")
	}
}

func TestTagLookup(t *testing.T) {
	c := NewContext()
	_ = c.RegisterTag(&fakeTag{symbol: "foo"})
	if _, ok := c.Tag("foo"); !ok {
		t.Error("Tag(foo) should be found after registration")
	}
	if _, ok := c.Tag("bar"); ok {
		t.Error("Tag(bar) should not be found")
	}
}

func TestRegisterDialectValidatesVersion(t *testing.T) {
	c := NewContext()
	if err := c.RegisterDialect("standard", "1.0.0"); err != nil {
		t.Fatalf("RegisterDialect: %v", err)
	}
	v, ok := c.DialectVersion("standard")
	if !ok || v != "v1.0.0" {
		t.Errorf("DialectVersion = %q,%v, want v1.0.0,true", v, ok)
	}
	if err := c.RegisterDialect("bad", "not-a-version"); err == nil {
		t.Error("expected an error for an invalid semver string")
	}
}

func TestSuggestFindsClosestMatch(t *testing.T) {
	candidates := []string{"upcase", "downcase", "capitalize"}
	got, ok := Suggest(candidates, "upcse")
	if !ok || got != "upcase" {
		t.Errorf("Suggest(upcse) = %q,%v, want upcase,true", got, ok)
	}
}

func TestSuggestEmptyInputs(t *testing.T) {
	if _, ok := Suggest(nil, "x"); ok {
		t.Error("Suggest with no candidates should fail")
	}
	if _, ok := Suggest([]string{"a"}, ""); ok {
		t.Error("Suggest with an empty name should fail")
	}
}
