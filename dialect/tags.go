// Package dialect populates an ast.Context with the standard tag,
// operator, filter, dot-filter, and literal set — the independent,
// mechanical, swappable layer spec.md §1 separates from the core
// pipeline. Every NodeType here is grounded on the generic
// symbol+callback wrapper pattern package ast already establishes for
// filters and operators (ast.NewFilter/NewOperator): tags are the one
// family heterogeneous enough (arity, intermediates, body shape) to
// need their own concrete type, tagType, rather than reusing one of
// those.
package dialect

import (
	"fmt"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/liquiderr"
	"github.com/adamharrison/liquid-go/value"
)

// TagFunc is a tag's render callback: n is the tag's own Node (its
// Children follow the shape the parser builds — see each tag's
// comment below), rc the active render context.
type TagFunc func(n *ast.Node, rc ast.RenderContext) (value.Value, error)

// CompileFunc is a tag's bytecode lowering; tags registered with a nil
// CompileFunc (the elsif/else/when markers, which their enclosing tag
// compiles) make Compile return compileUnsupported.
type CompileFunc func(n *ast.Node, cc ast.CompileContext) error

type tagType struct {
	symbol        string
	intermediates []string
	qualifiers    []string
	closesWith    string
	haltsLexing   bool
	scheme        ast.OptimizationScheme
	render        TagFunc
	compile       CompileFunc
}

func newTag(symbol string, render TagFunc, compile CompileFunc, opts ...func(*tagType)) *tagType {
	t := &tagType{symbol: symbol, scheme: ast.SchemeNone, render: render, compile: compile}
	for _, o := range opts {
		o(t)
	}
	return t
}

func withCloses(sym string) func(*tagType) { return func(t *tagType) { t.closesWith = sym } }
func withIntermediates(syms ...string) func(*tagType) {
	return func(t *tagType) { t.intermediates = syms }
}
func withQualifiers(syms ...string) func(*tagType) { return func(t *tagType) { t.qualifiers = syms } }
func withHaltsLexing() func(*tagType)               { return func(t *tagType) { t.haltsLexing = true } }

func (t *tagType) Symbol() string             { return t.symbol }
func (t *tagType) Discriminant() ast.Discriminant { return ast.DiscTag }
func (t *tagType) MinChildren() int           { return 1 }
func (t *tagType) MaxChildren() int           { return -1 }
func (t *tagType) Scheme() ast.OptimizationScheme { return t.scheme }
func (t *tagType) Validate(n *ast.Node) error  { return nil }
func (t *tagType) Intermediates() []string     { return t.intermediates }
func (t *tagType) Qualifiers() []string        { return t.qualifiers }
func (t *tagType) ClosesWith() string          { return t.closesWith }
func (t *tagType) HaltsLexing() bool           { return t.haltsLexing }

func (t *tagType) Render(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
	return t.render(n, rc)
}

func (t *tagType) Optimize(n *ast.Node, oc ast.OptimizeContext) (*ast.Node, bool) { return n, false }

func (t *tagType) Compile(n *ast.Node, cc ast.CompileContext) error {
	if t.compile == nil {
		return compileUnsupported(t.symbol)
	}
	return t.compile(n, cc)
}

func compileUnsupported(symbol string) error {
	return liquiderr.New(liquiderr.CompileUnsupported, "", 0, 0, symbol)
}

// movNil is the standard tail of a body-driving tag's Compile: real
// output already happened inside the body it just evaluated (the
// nested Concatenation emitted it), so the enclosing Concatenation's
// own OUTPUTMEM of this tag's result must print nothing — exactly the
// Nil() every such tag's Render returns.
func movNil(cc ast.CompileContext) { cc.Emit(ast.OpMovNil, 0, 0) }

// --- if / unless / elsif / else ---

// conditionalRender implements both `if` and `unless`: n.Children is
// [ownArgs, body, (marker, body)...] where a marker is an `elsif` or
// `else` tag node. invertFirst negates the first branch's test, the
// one difference between `if` and `unless`.
func conditionalRender(n *ast.Node, rc ast.RenderContext, invertFirst bool) (value.Value, error) {
	for i := 0; i < len(n.Children); i += 2 {
		var condExpr *ast.Node
		var body *ast.Node
		isElse := false
		if i == 0 {
			condExpr = n.Children[0].Children[0]
			body = n.Children[1]
		} else {
			marker := n.Children[i]
			body = n.Children[i+1]
			isElse = marker.Type.Symbol() == "else"
			if !isElse {
				condExpr = marker.Children[0].Children[0]
			}
		}
		take := isElse
		if !isElse {
			v, err := rc.Eval(condExpr)
			if err != nil {
				return value.Nil(), err
			}
			truthy := v.Truthy(rc.Policy())
			if i == 0 && invertFirst {
				truthy = !truthy
			}
			take = truthy
		}
		if take {
			return rc.Eval(body)
		}
	}
	return value.Nil(), nil
}

// compileConditional lowers the [ownArgs, body, (marker, body)...]
// shape conditionalRender walks at render time into a JMPFALSE/JMP
// skeleton: each non-else branch tests its condition, jumps past its
// body when false, and jumps to the end once its body has run; an
// else branch (always last) has no test and nothing following it.
// invertFirst mirrors conditionalRender's unless handling by testing
// the first branch with JMPTRUE instead of JMPFALSE.
func compileConditional(n *ast.Node, cc ast.CompileContext, invertFirst bool) error {
	var endPatches []int
	for i := 0; i < len(n.Children); i += 2 {
		var condExpr, body *ast.Node
		isElse := false
		if i == 0 {
			condExpr = n.Children[0].Children[0]
			body = n.Children[1]
		} else {
			marker := n.Children[i]
			body = n.Children[i+1]
			isElse = marker.Type.Symbol() == "else"
			if !isElse {
				condExpr = marker.Children[0].Children[0]
			}
		}

		var falsePatch int
		if !isElse {
			reg, err := cc.CompileChild(condExpr)
			if err != nil {
				return err
			}
			if i == 0 && invertFirst {
				falsePatch = cc.EmitJump(ast.OpJmpTrue, reg)
			} else {
				falsePatch = cc.EmitJump(ast.OpJmpFalse, reg)
			}
		}

		if err := body.Type.Compile(body, cc); err != nil {
			return err
		}

		if isElse {
			break
		}
		endPatches = append(endPatches, cc.EmitJump(ast.OpJmp, 0))
		cc.PatchJump(falsePatch, cc.CurrentPC())
	}

	finalPC := cc.CurrentPC()
	for _, p := range endPatches {
		cc.PatchJump(p, finalPC)
	}
	movNil(cc)
	return nil
}

func ifTag() *tagType {
	return newTag("if",
		func(n *ast.Node, rc ast.RenderContext) (value.Value, error) { return conditionalRender(n, rc, false) },
		func(n *ast.Node, cc ast.CompileContext) error { return compileConditional(n, cc, false) },
		withCloses("endif"), withIntermediates("elsif", "else"))
}

func unlessTag() *tagType {
	return newTag("unless",
		func(n *ast.Node, rc ast.RenderContext) (value.Value, error) { return conditionalRender(n, rc, true) },
		func(n *ast.Node, cc ast.CompileContext) error { return compileConditional(n, cc, true) },
		withCloses("endunless"), withIntermediates("else"))
}

func elsifTag() *tagType {
	return newTag("elsif", func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		return value.Nil(), nil
	}, nil)
}

func elseTag() *tagType {
	return newTag("else", func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		return value.Nil(), nil
	}, nil)
}

// --- case / when ---

func caseTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		if len(n.Children[0].Children) == 0 {
			return value.Nil(), nil
		}
		switchVal, err := rc.Eval(n.Children[0].Children[0])
		if err != nil {
			return value.Nil(), err
		}
		for i := 2; i+1 < len(n.Children); i += 2 {
			marker := n.Children[i]
			body := n.Children[i+1]
			if marker.Type.Symbol() == "else" {
				return rc.Eval(body)
			}
			for _, valExpr := range marker.Children[0].Children {
				v, err := rc.Eval(valExpr)
				if err != nil {
					return value.Nil(), err
				}
				if value.Equal(switchVal, v) {
					return rc.Eval(body)
				}
			}
		}
		return value.Nil(), nil
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		if len(n.Children[0].Children) == 0 {
			movNil(cc)
			return nil
		}
		if _, err := cc.CompileChild(n.Children[0].Children[0]); err != nil {
			return err
		}
		cc.Emit(ast.OpMov, 1, 0) // regs[1] holds the switch value across every WHEN comparison

		var endPatches []int
		for i := 2; i+1 < len(n.Children); i += 2 {
			marker := n.Children[i]
			body := n.Children[i+1]
			if marker.Type.Symbol() == "else" {
				if err := body.Type.Compile(body, cc); err != nil {
					return err
				}
				break
			}

			var matchPatches []int
			for _, valExpr := range marker.Children[0].Children {
				if _, err := cc.CompileChild(valExpr); err != nil {
					return err
				}
				cc.Emit(ast.OpEql, 2, 1)
				matchPatches = append(matchPatches, cc.EmitJump(ast.OpJmpTrue, 2))
			}
			skip := cc.EmitJump(ast.OpJmp, 0)
			target := cc.CurrentPC()
			for _, p := range matchPatches {
				cc.PatchJump(p, target)
			}
			if err := body.Type.Compile(body, cc); err != nil {
				return err
			}
			endPatches = append(endPatches, cc.EmitJump(ast.OpJmp, 0))
			cc.PatchJump(skip, cc.CurrentPC())
		}

		finalPC := cc.CurrentPC()
		for _, p := range endPatches {
			cc.PatchJump(p, finalPC)
		}
		movNil(cc)
		return nil
	}
	return newTag("case", render, compile, withCloses("endcase"), withIntermediates("when", "else"))
}

func whenTag() *tagType {
	return newTag("when", func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		return value.Nil(), nil
	}, nil)
}

// --- for / else ---

type forloopState struct{ index, length int }

func forRender(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
	argsNode := n.Children[0]
	varName := argsNode.Children[0].Literal.AsString()
	collExpr := argsNode.Children[1]
	coll, err := rc.Eval(collExpr)
	if err != nil {
		return value.Nil(), err
	}
	reversed := false
	limit := -1
	offset := 0
	if _, ok := ast.FindQualifier(argsNode, "reversed"); ok {
		reversed = true
	}
	if q, ok := ast.FindQualifier(argsNode, "limit"); ok && len(q.Children) > 0 {
		v, err := rc.Eval(q.Children[0])
		if err == nil {
			limit = int(v.AsInt())
		}
	}
	if q, ok := ast.FindQualifier(argsNode, "offset"); ok && len(q.Children) > 0 {
		v, err := rc.Eval(q.Children[0])
		if err == nil {
			offset = int(v.AsInt())
		}
	}

	body := n.Children[1]
	fullLen, lenOK := rc.Resolver().Length(coll)
	effLen := 0
	if lenOK {
		rem := fullLen - offset
		if rem < 0 {
			rem = 0
		}
		if limit >= 0 && limit < rem {
			rem = limit
		}
		effLen = rem
	}

	state := &forloopState{length: effLen}
	idx := 0
	var loopErr error
	rc.PushScope("forloop", func(key string) (value.Value, bool) {
		switch key {
		case "index":
			return value.Int(int64(state.index + 1)), true
		case "index0":
			return value.Int(int64(state.index)), true
		case "first":
			return value.Bool(state.index == 0), true
		case "last":
			return value.Bool(state.index == state.length-1), true
		case "length":
			return value.Int(int64(state.length)), true
		case "rindex":
			return value.Int(int64(state.length - state.index)), true
		case "rindex0":
			return value.Int(int64(state.length - state.index - 1)), true
		}
		return value.Nil(), false
	})
	rc.Resolver().Enumerate(coll, offset, limit, reversed, func(_ int, v value.Value) bool {
		rc.Resolver().Assign(varName, v)
		state.index = idx
		idx++
		if err := rc.CheckLimits(); err != nil {
			loopErr = err
			return false
		}
		if _, err := rc.Eval(body); err != nil {
			loopErr = err
			return false
		}
		switch rc.Control() {
		case ast.ControlBreak:
			rc.SetControl(ast.ControlNone)
			return false
		case ast.ControlContinue:
			rc.SetControl(ast.ControlNone)
		case ast.ControlExit:
			return false
		}
		return true
	})
	rc.PopScope("forloop")
	if loopErr != nil {
		return value.Nil(), loopErr
	}
	if idx == 0 && len(n.Children) > 3 {
		return rc.Eval(n.Children[3])
	}
	return value.Nil(), nil
}

// compileFor lowers `for` to an ITERATE-wrapped body. The collection
// register also doubles as ITERATE's per-iteration item register (VM
// contract: ITERATE overwrites it with the current element); a
// separate register tracks whether the loop ran at least once, for
// the `else` branch, and register 2 carries the `forloop` pseudo-
// object FORLOOP rebuilds on every pass. reversed/limit/offset are
// pushed onto the stack immediately before ITERATE, which consumes
// them on its first (materializing) visit — the same qualifiers the
// tree-walking render path passes to Resolver.Enumerate directly, now
// carried through the opcode instead of being dropped at compile time.
func compileFor(n *ast.Node, cc ast.CompileContext) error {
	argsNode := n.Children[0]
	varOff := cc.Intern(argsNode.Children[0].Literal.AsString())
	forloopOff := cc.Intern("forloop")
	body := n.Children[1]

	reversed := int64(0)
	if _, ok := ast.FindQualifier(argsNode, "reversed"); ok {
		reversed = 1
	}
	if q, ok := ast.FindQualifier(argsNode, "offset"); ok && len(q.Children) > 0 {
		if _, err := cc.CompileChild(q.Children[0]); err != nil {
			return err
		}
	} else {
		cc.Emit(ast.OpMovInt, 0, 0)
	}
	cc.Emit(ast.OpPush, 0, 0)
	if q, ok := ast.FindQualifier(argsNode, "limit"); ok && len(q.Children) > 0 {
		if _, err := cc.CompileChild(q.Children[0]); err != nil {
			return err
		}
	} else {
		cc.Emit(ast.OpMovInt, 0, -1)
	}
	cc.Emit(ast.OpPush, 0, 0)
	cc.Emit(ast.OpMovInt, 0, reversed)
	cc.Emit(ast.OpPush, 0, 0)

	if _, err := cc.CompileChild(argsNode.Children[1]); err != nil {
		return err
	}
	cc.Emit(ast.OpMov, 1, 0)
	cc.Emit(ast.OpMovInt, 3, 0) // ran-at-least-once flag

	loopStart := cc.CurrentPC()
	exitPatch := cc.EmitJump(ast.OpIterate, 1)

	cc.Emit(ast.OpMovInt, 3, 1)
	cc.Emit(ast.OpAssign, 1, varOff)
	cc.Emit(ast.OpForloop, 2, int64(loopStart))
	cc.Emit(ast.OpAssign, 2, forloopOff)

	if err := body.Type.Compile(body, cc); err != nil {
		return err
	}

	cc.Emit(ast.OpCheckControl, 4, 0)
	stopPatch := cc.EmitJump(ast.OpJmpTrue, 4)
	cc.Emit(ast.OpJmp, 0, int64(loopStart))

	afterLoop := cc.CurrentPC()
	cc.PatchJump(exitPatch, afterLoop)
	cc.PatchJump(stopPatch, afterLoop)

	if len(n.Children) > 3 {
		skipElse := cc.EmitJump(ast.OpJmpTrue, 3)
		elseBody := n.Children[3]
		if err := elseBody.Type.Compile(elseBody, cc); err != nil {
			return err
		}
		cc.PatchJump(skipElse, cc.CurrentPC())
	}
	movNil(cc)
	return nil
}

func forTag() *tagType {
	return newTag("for", forRender, compileFor, withCloses("endfor"), withIntermediates("else"),
		withQualifiers("reversed", "limit", "offset"))
}

func breakTag() *tagType {
	return newTag("break", func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		rc.SetControl(ast.ControlBreak)
		return value.Nil(), nil
	}, func(n *ast.Node, cc ast.CompileContext) error {
		cc.Emit(ast.OpSetControl, 0, int64(ast.ControlBreak))
		movNil(cc)
		return nil
	})
}

func continueTag() *tagType {
	return newTag("continue", func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		rc.SetControl(ast.ControlContinue)
		return value.Nil(), nil
	}, func(n *ast.Node, cc ast.CompileContext) error {
		cc.Emit(ast.OpSetControl, 0, int64(ast.ControlContinue))
		movNil(cc)
		return nil
	})
}

// --- assign ---

func assignTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		argsNode := n.Children[0]
		name := argsNode.Children[0].Children[0].Literal.AsString()
		v, err := rc.Eval(argsNode.Children[1])
		if err != nil {
			return value.Nil(), err
		}
		rc.Resolver().Assign(name, v)
		return value.Nil(), nil
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		argsNode := n.Children[0]
		name := argsNode.Children[0].Children[0].Literal.AsString()
		off := cc.Intern(name)
		if _, err := cc.CompileChild(argsNode.Children[1]); err != nil {
			return err
		}
		cc.Emit(ast.OpAssign, 0, off)
		movNil(cc)
		return nil
	}
	return newTag("assign", render, compile)
}

// --- capture ---

func captureTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			return value.Nil(), nil
		}
		name := argsNode.Children[0].Literal.AsString()
		rc.PushBuffer()
		_, err := rc.Eval(n.Children[1])
		s := rc.PopBuffer()
		if err != nil {
			return value.Nil(), err
		}
		rc.Resolver().Assign(name, value.String(s))
		return value.Nil(), nil
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			movNil(cc)
			return nil
		}
		name := argsNode.Children[0].Literal.AsString()
		off := cc.Intern(name)
		cc.Emit(ast.OpPushBuffer, 0, 0)
		if err := n.Children[1].Type.Compile(n.Children[1], cc); err != nil {
			return err
		}
		cc.Emit(ast.OpPopBuffer, 0, 0)
		cc.Emit(ast.OpAssign, 0, off)
		movNil(cc)
		return nil
	}
	return newTag("capture", render, compile, withCloses("endcapture"))
}

// --- increment / decrement ---

func incrementTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			return value.Nil(), nil
		}
		name := argsNode.Children[0].Literal.AsString()
		cur, _ := rc.Resolver().Lookup(name)
		old := int64(0)
		if cur.Kind() == value.KindInt {
			old = cur.AsInt()
		}
		rc.Resolver().Assign(name, value.Int(old+1))
		return value.Int(old), nil
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			movNil(cc)
			return nil
		}
		name := argsNode.Children[0].Literal.AsString()
		off := cc.Intern(name)
		cc.Emit(ast.OpResolve, 0, off)
		cc.Emit(ast.OpMovInt, 1, 0)
		cc.Emit(ast.OpAdd, 0, 1)
		cc.Emit(ast.OpMovInt, 1, 1)
		cc.Emit(ast.OpAdd, 1, 1)
		cc.Emit(ast.OpAssign, 1, off)
		return nil
	}
	return newTag("increment", render, compile)
}

func decrementTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			return value.Nil(), nil
		}
		name := argsNode.Children[0].Literal.AsString()
		cur, _ := rc.Resolver().Lookup(name)
		old := int64(0)
		if cur.Kind() == value.KindInt {
			old = cur.AsInt()
		}
		next := old - 1
		rc.Resolver().Assign(name, value.Int(next))
		return value.Int(next), nil
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			movNil(cc)
			return nil
		}
		name := argsNode.Children[0].Literal.AsString()
		off := cc.Intern(name)
		cc.Emit(ast.OpResolve, 0, off)
		cc.Emit(ast.OpMovInt, 1, 1)
		cc.Emit(ast.OpSub, 0, 1)
		cc.Emit(ast.OpAssign, 0, off)
		return nil
	}
	return newTag("decrement", render, compile)
}

// --- raw ---

func rawTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		return rc.Eval(n.Children[1])
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		if err := n.Children[1].Type.Compile(n.Children[1], cc); err != nil {
			return err
		}
		movNil(cc)
		return nil
	}
	return newTag("raw", render, compile, withCloses("endraw"), withHaltsLexing())
}

// --- echo ---

func echoTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			return value.Nil(), nil
		}
		return rc.Eval(argsNode.Children[0])
	}
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		argsNode := n.Children[0]
		if len(argsNode.Children) == 0 {
			movNil(cc)
			return nil
		}
		_, err := cc.CompileChild(argsNode.Children[0])
		return err
	}
	return newTag("echo", render, compile)
}

// --- cycle ---

// cycleTag round-robins through its argument list once per call,
// persisting position under a synthetic resolver key derived from the
// tag's own source position (and optional `group:` qualifier) rather
// than needing a dedicated per-node side table threaded through
// RenderContext — Resolver.Assign/Lookup already give every tag a
// place to keep state across repeated evaluation within a loop body.
func cycleTag() *tagType {
	render := func(n *ast.Node, rc ast.RenderContext) (value.Value, error) {
		argsNode := n.Children[0]
		group := ""
		if q, ok := ast.FindQualifier(argsNode, "group"); ok && len(q.Children) > 0 {
			v, err := rc.Eval(q.Children[0])
			if err == nil {
				group = v.String()
			}
		}
		var values []*ast.Node
		for _, c := range argsNode.Children {
			if c.Type != nil && c.Type.Discriminant() == ast.DiscQualifier {
				continue
			}
			values = append(values, c)
		}
		if len(values) == 0 {
			return value.Nil(), nil
		}
		key := fmt.Sprintf("__cycle_%s_%d_%d", group, n.Pos.Line, n.Pos.Column)
		idxVal, _ := rc.Resolver().Lookup(key)
		idx := 0
		if idxVal.Kind() == value.KindInt {
			idx = int(idxVal.AsInt())
		}
		chosen := values[idx%len(values)]
		rc.Resolver().Assign(key, value.Int(int64(idx+1)))
		return rc.Eval(chosen)
	}
	// compile mirrors render's round-robin with register arithmetic in
	// place of rc.Eval: it resolves the persisted index (ADD/MOD
	// against register 0, the same accumulator convention
	// increment/decrement already use for the Resolver's current
	// value), re-assigns it, then dispatches to the selected value
	// expression with an EQL+JMPTRUE chain per candidate index, the
	// same jump-table shape case/when's compile builds. A non-literal
	// `group:` qualifier is folded to the empty group here, since the
	// key (grounded on the tag's own source position already) is
	// computed once at compile time rather than re-evaluated per call.
	compile := func(n *ast.Node, cc ast.CompileContext) error {
		argsNode := n.Children[0]
		group := ""
		if q, ok := ast.FindQualifier(argsNode, "group"); ok && len(q.Children) > 0 && q.Children[0].IsLeaf() {
			group = q.Children[0].Literal.String()
		}
		var values []*ast.Node
		for _, c := range argsNode.Children {
			if c.Type != nil && c.Type.Discriminant() == ast.DiscQualifier {
				continue
			}
			values = append(values, c)
		}
		if len(values) == 0 {
			movNil(cc)
			return nil
		}
		key := fmt.Sprintf("__cycle_%s_%d_%d", group, n.Pos.Line, n.Pos.Column)
		keyOff := cc.Intern(key)

		cc.Emit(ast.OpResolve, 0, keyOff)            // regs[0] = persisted index (Nil -> 0)
		cc.Emit(ast.OpMovInt, 1, int64(len(values))) // regs[1] = candidate count
		cc.Emit(ast.OpMod, 2, 1)                     // regs[2] = index mod count
		cc.Emit(ast.OpMovInt, 3, 1)
		cc.Emit(ast.OpAdd, 3, 3) // regs[3] = index + 1
		cc.Emit(ast.OpAssign, 3, keyOff)

		var endPatches []int
		for i, v := range values {
			cc.Emit(ast.OpMov, 0, 2)
			cc.Emit(ast.OpMovInt, 1, int64(i))
			cc.Emit(ast.OpEql, 4, 1)
			failPatch := cc.EmitJump(ast.OpJmpFalse, 4)
			if _, err := cc.CompileChild(v); err != nil {
				return err
			}
			endPatches = append(endPatches, cc.EmitJump(ast.OpJmp, 0))
			cc.PatchJump(failPatch, cc.CurrentPC())
		}
		movNil(cc) // unreachable (index mod count always matches one branch); kept as a safe fallback
		finalPC := cc.CurrentPC()
		for _, p := range endPatches {
			cc.PatchJump(p, finalPC)
		}
		return nil
	}
	return newTag("cycle", render, compile, withQualifiers("group"))
}

// Tags returns every standard-dialect tag, in registration order.
func Tags() []ast.TagType {
	return []ast.TagType{
		ifTag(), unlessTag(), elsifTag(), elseTag(),
		caseTag(), whenTag(),
		forTag(), breakTag(), continueTag(),
		assignTag(), captureTag(),
		incrementTag(), decrementTag(),
		rawTag(), echoTag(), cycleTag(),
	}
}
