package vm

import (
	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/value"
)

// The methods below let *VM stand in as the ast.RenderContext a CALL
// instruction's NodeType.Render runs against — the VM is itself the
// "render context" for the one node it is invoking, mirroring how
// render.Renderer is its own ast.RenderContext.

func (m *VM) Eval(n *ast.Node) (value.Value, error) {
	if n.IsLeaf() {
		return n.Literal, nil
	}
	return n.Type.Render(n, m)
}

func (m *VM) Emit(s string) error { return m.emit(s) }

func (m *VM) Resolver() ast.ResolverLike { return m }

func (m *VM) Policy() value.FalsinessPolicy { return value.Strict }
func (m *VM) StrictVariables() bool         { return false }
func (m *VM) StrictFilters() bool           { return false }

func (m *VM) Warn(format string, args ...any) {}

func (m *VM) Control() ast.ControlSignal     { return m.control }
func (m *VM) SetControl(c ast.ControlSignal) { m.control = c }

func (m *VM) PushScope(name string, lookup func(key string) (value.Value, bool)) {
	m.scopes = append(m.scopes, vmScope{name: name, lookup: lookup})
}

func (m *VM) PopScope(name string) {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if m.scopes[i].name == name {
			m.scopes = append(m.scopes[:i], m.scopes[i+1:]...)
			return
		}
	}
}

func (m *VM) PushBuffer()      { _, _ = m.step(ast.OpPushBuffer, 0, 0) }
func (m *VM) PopBuffer() string {
	_, _ = m.step(ast.OpPopBuffer, 0, 0)
	return m.regs[0].AsString()
}

// CheckLimits is a no-op at VM level: the three resource guards of
// spec.md §4.3 are enforced by render.Renderer on the tree-walking
// path; a compiled program is assumed to have already been validated
// by a prior render-mode pass, or is trusted host-authored bytecode.
func (m *VM) CheckLimits() error { return nil }

func (m *VM) Self() ast.RenderContext { return m }

// --- ast.ResolverLike ---

func (m *VM) Lookup(name string) (value.Value, bool) { return m.lookup(name) }

func (m *VM) Index(v value.Value, key value.Value) (value.Value, bool) {
	return m.resolver.Index(v, key)
}

func (m *VM) Length(v value.Value) (int, bool) { return m.resolver.Length(v) }

func (m *VM) Enumerate(v value.Value, start, limit int, reverse bool, fn func(int, value.Value) bool) (int, bool) {
	return m.resolver.Enumerate(v, start, limit, reverse, fn)
}

func (m *VM) Assign(name string, val value.Value) { m.resolver.Assign(name, val) }

func (m *VM) AssignIndex(v, key, val value.Value) bool {
	return m.resolver.AssignIndex(v, key, val)
}

func (m *VM) Compare(a, b value.Value) (int, bool) { return m.resolver.Compare(a, b) }
