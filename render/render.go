// Package render implements the tree-walking evaluator of spec.md
// §4.3: a pre-order traversal in which each node's own Render method
// decides how to evaluate its children, backed by a host-supplied
// resolver.Resolver and the three cooperative resource guards.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/liquiderr"
	"github.com/adamharrison/liquid-go/resolver"
	"github.com/adamharrison/liquid-go/value"
)

// dropHandle backs an internal drop (spec.md §4.3): a scoped
// pseudo-variable, like `forloop`, resolved through a callback instead
// of the host's store.
type dropHandle struct {
	lookup func(key string) (value.Value, bool)
}

type scopeFrame struct {
	name string
	drop *dropHandle
}

// Renderer evaluates an AST against a resolver.Resolver. It holds
// per-render mutable state (control signal, buffer stack, resource
// counters) and is not safe for concurrent use — create one per
// render, the way spec.md §5 requires.
type Renderer struct {
	astCtx  *ast.Context
	cfg      Config
	resolver resolver.Resolver
	cancel   context.Context

	control    ast.ControlSignal
	depth      int
	start      time.Time
	memoryUsed int64
	warnings   []string

	out      io.Writer
	bufStack []*strings.Builder
	scopes   []scopeFrame
}

// New builds a Renderer bound to ctx and res.
func New(astCtx *ast.Context, res resolver.Resolver, opts ...Option) *Renderer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Renderer{astCtx: astCtx, cfg: cfg, resolver: res, cancel: context.Background()}
}

// WithCancel attaches a context whose cancellation cooperatively
// unwinds the render at the next CheckLimits call (SPEC_FULL.md §5).
func (r *Renderer) WithCancel(ctx context.Context) *Renderer {
	r.cancel = ctx
	return r
}

// RenderString renders root and returns the accumulated output.
func (r *Renderer) RenderString(root *ast.Node) (string, error) {
	var sb strings.Builder
	r.out = &sb
	r.start = time.Now()
	_, err := r.Eval(root)
	return sb.String(), err
}

// RenderStream renders root, streaming chunks to w as they are
// produced rather than buffering the whole result (spec.md §4.3).
func (r *Renderer) RenderStream(root *ast.Node, w io.Writer) error {
	r.out = w
	r.start = time.Now()
	_, err := r.Eval(root)
	return err
}

// Warnings returns every non-fatal diagnostic recorded during the
// most recent render.
func (r *Renderer) Warnings() []string { return r.warnings }

// --- ast.RenderContext ---

func (r *Renderer) Eval(n *ast.Node) (value.Value, error) {
	if n.IsLeaf() {
		return n.Literal, nil
	}
	r.depth++
	defer func() { r.depth-- }()
	if err := r.CheckLimits(); err != nil {
		return value.Nil(), err
	}
	return n.Type.Render(n, r)
}

func (r *Renderer) Emit(s string) error {
	var w io.Writer = r.out
	if n := len(r.bufStack); n > 0 {
		w = r.bufStack[n-1]
	}
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	r.memoryUsed += int64(len(s))
	return nil
}

func (r *Renderer) Resolver() ast.ResolverLike { return r }

func (r *Renderer) Policy() value.FalsinessPolicy { return r.cfg.Policy }
func (r *Renderer) StrictVariables() bool         { return r.cfg.StrictVariables }
func (r *Renderer) StrictFilters() bool           { return r.cfg.StrictFilters }

func (r *Renderer) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	if r.cfg.Logger != nil {
		r.cfg.Logger.Warn(msg)
	}
}

func (r *Renderer) Control() ast.ControlSignal     { return r.control }
func (r *Renderer) SetControl(c ast.ControlSignal) { r.control = c }

func (r *Renderer) PushScope(name string, lookup func(key string) (value.Value, bool)) {
	r.scopes = append(r.scopes, scopeFrame{name: name, drop: &dropHandle{lookup: lookup}})
}

func (r *Renderer) PopScope(name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if r.scopes[i].name == name {
			r.scopes = append(r.scopes[:i], r.scopes[i+1:]...)
			return
		}
	}
}

func (r *Renderer) PushBuffer() {
	r.bufStack = append(r.bufStack, &strings.Builder{})
}

func (r *Renderer) PopBuffer() string {
	n := len(r.bufStack)
	if n == 0 {
		return ""
	}
	s := r.bufStack[n-1].String()
	r.bufStack = r.bufStack[:n-1]
	return s
}

func (r *Renderer) CheckLimits() error {
	if r.cfg.MaxDepth > 0 && r.depth > r.cfg.MaxDepth {
		return liquiderr.New(liquiderr.ExceededDepth, "", 0, 0)
	}
	if r.cfg.MaxDuration > 0 && time.Since(r.start) > r.cfg.MaxDuration {
		return liquiderr.New(liquiderr.ExceededTime, "", 0, 0)
	}
	if r.cfg.MaxMemory > 0 && r.memoryUsed > r.cfg.MaxMemory {
		return liquiderr.New(liquiderr.ExceededMemory, "", 0, 0)
	}
	if err := r.cancel.Err(); err != nil {
		return liquiderr.Wrap(liquiderr.ExceededTime, "", 0, 0, err)
	}
	return nil
}

func (r *Renderer) Self() ast.RenderContext { return r }

// --- ast.ResolverLike, with internal-drop shadowing ---

func (r *Renderer) Lookup(name string) (value.Value, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if r.scopes[i].name == name {
			return value.FromHandle(r.scopes[i].drop), true
		}
	}
	return r.resolver.Lookup(name)
}

func (r *Renderer) Index(v value.Value, key value.Value) (value.Value, bool) {
	if d, ok := v.AsHandle().(*dropHandle); ok {
		return d.lookup(key.String())
	}
	return r.resolver.Index(v, key)
}

func (r *Renderer) Length(v value.Value) (int, bool) { return r.resolver.Length(v) }

func (r *Renderer) Enumerate(v value.Value, start, limit int, reverse bool, fn func(int, value.Value) bool) (int, bool) {
	return r.resolver.Enumerate(v, start, limit, reverse, fn)
}

func (r *Renderer) Assign(name string, val value.Value) { r.resolver.Assign(name, val) }

func (r *Renderer) AssignIndex(v, key, val value.Value) bool {
	return r.resolver.AssignIndex(v, key, val)
}

func (r *Renderer) Compare(a, b value.Value) (int, bool) { return r.resolver.Compare(a, b) }

// VariableExists implements ast.OptimizeContext: a variable node folds
// only if its root name is bound in the store at optimize time
// (spec.md §4.4).
func (r *Renderer) VariableExists(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}
