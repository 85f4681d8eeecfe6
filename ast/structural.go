package ast

import "github.com/adamharrison/liquid-go/value"

// This file implements the structural NodeTypes spec.md §3 says the
// Context holds as addressable singletons: concatenation, arguments,
// output, variable, group, group-dereference, array-literal, and
// qualifier. Unlike tags/operators/filters (independent, mechanical,
// dialect-owned per spec.md §1), these are part of the core contract
// every template uses regardless of dialect, so they live here rather
// than in package dialect.
//
// Convention: Concatenation.Render is the only NodeType that ever
// calls rc.Emit. Every other NodeType.Render is a pure function from
// its children to a Value; a tag "renders" its chosen body by
// evaluating a nested Concatenation node, whose own Render performs
// the emission. (The `echo` tag and `capture`'s buffer handling are
// the dialect-level exceptions, documented where they're defined.)

// --- Concatenation ---

type concatenationType struct{}

// Concatenation is the Context-wide singleton NodeType for a
// contiguous body of children whose rendered results concatenate in
// source order (spec.md §3, invariant 2; GLOSSARY).
var Concatenation NodeType = &concatenationType{}

func (concatenationType) Symbol() string             { return "<concat>" }
func (concatenationType) Discriminant() Discriminant { return DiscConcatenation }
func (concatenationType) MinChildren() int           { return 0 }
func (concatenationType) MaxChildren() int           { return -1 }
func (concatenationType) Scheme() OptimizationScheme { return SchemePartial }
func (concatenationType) Validate(n *Node) error      { return nil }

func (concatenationType) Render(n *Node, rc RenderContext) (value.Value, error) {
	for _, c := range n.Children {
		if rc.Control() != ControlNone {
			break
		}
		if err := rc.CheckLimits(); err != nil {
			return value.Nil(), err
		}
		v, err := rc.Eval(c)
		if err != nil {
			return value.Nil(), err
		}
		if err := rc.Emit(v.String()); err != nil {
			return value.Nil(), err
		}
	}
	return value.Nil(), nil
}

// Optimize implements SchemePartial: fold adjacent literal-leaf
// children into a single literal, leaving non-literal children alone
// (spec.md §4.4, "a concatenation collapses adjacent literal children
// into one").
func (concatenationType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	changed := false
	folded := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.IsLeaf() && len(folded) > 0 && folded[len(folded)-1].IsLeaf() {
			prev := folded[len(folded)-1]
			folded[len(folded)-1] = Leaf(value.String(prev.Literal.String()+c.Literal.String()), prev.Pos)
			changed = true
			continue
		}
		folded = append(folded, c)
	}
	if !changed {
		return n, false
	}
	return Internal(Concatenation, n.Pos, folded...), true
}

// concatControlScratch is a register no tag's Compile uses
// (compileFor/case/cycle use registers 0-4; for keeps registers 1 and
// 3 live across its body), reserved here to peek the pending loop-control signal before each
// child, mirroring Render's `rc.Control() != ControlNone` loop check.
const concatControlScratch = 5

func (concatenationType) Compile(n *Node, cc CompileContext) error {
	var stopPatches []int
	for _, c := range n.Children {
		cc.Emit(OpPeekControl, concatControlScratch, 0)
		stopPatches = append(stopPatches, cc.EmitJump(OpJmpTrue, concatControlScratch))

		if c.IsLeaf() && c.Literal.Kind() == value.KindString {
			off := cc.Intern(c.Literal.AsString())
			cc.Emit(OpOutput, 0, off)
			continue
		}
		reg, err := cc.CompileChild(c)
		if err != nil {
			return err
		}
		cc.Emit(OpOutputMem, reg, 0)
	}
	end := cc.CurrentPC()
	for _, p := range stopPatches {
		cc.PatchJump(p, end)
	}
	return nil
}

// --- Arguments ---

type argumentsType struct{}

// Arguments is the Context-wide singleton for an actual-argument list:
// a tag's first child, or a filter's second child (spec.md §3,
// invariant 2-3).
var Arguments NodeType = &argumentsType{}

func (argumentsType) Symbol() string             { return "<args>" }
func (argumentsType) Discriminant() Discriminant { return DiscArguments }
func (argumentsType) MinChildren() int           { return 0 }
func (argumentsType) MaxChildren() int           { return -1 }
func (argumentsType) Scheme() OptimizationScheme { return SchemeNone }
func (argumentsType) Validate(n *Node) error      { return nil }
func (argumentsType) Render(n *Node, rc RenderContext) (value.Value, error) {
	return value.Nil(), nil
}
func (argumentsType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) { return n, false }
func (argumentsType) Compile(n *Node, cc CompileContext) error          { return nil }

// FindQualifier returns the named qualifier node from an arguments
// list without evaluating it, the way {% for ... limit: 5 %} or {% for ... reversed
// %} attach suffix modifiers (spec.md §3, "qualifiers"; GLOSSARY).
func FindQualifier(argsNode *Node, name string) (*Node, bool) {
	for _, c := range argsNode.Children {
		if c.Type != nil && c.Type.Discriminant() == DiscQualifier && c.Type.Symbol() == name {
			return c, true
		}
	}
	return nil, false
}

type qualifierType struct{ symbol string }

// NewQualifier builds the NodeType for a named suffix modifier
// (`reversed`, `limit:`, `offset:`). With no children it renders as
// `true` (a bare flag); with one child it passes through that child's
// value.
func NewQualifier(symbol string) NodeType { return &qualifierType{symbol: symbol} }

func (q *qualifierType) Symbol() string             { return q.symbol }
func (q *qualifierType) Discriminant() Discriminant { return DiscQualifier }
func (q *qualifierType) MinChildren() int           { return 0 }
func (q *qualifierType) MaxChildren() int           { return 1 }
func (q *qualifierType) Scheme() OptimizationScheme { return SchemeNone }
func (q *qualifierType) Validate(n *Node) error      { return nil }
func (q *qualifierType) Render(n *Node, rc RenderContext) (value.Value, error) {
	if len(n.Children) == 0 {
		return value.Bool(true), nil
	}
	return rc.Eval(n.Children[0])
}
func (q *qualifierType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) { return n, false }
func (q *qualifierType) Compile(n *Node, cc CompileContext) error          { return nil }

// --- Output ---

type outputType struct{}

// Output is the Context-wide singleton for `{{ expr }}`: a single
// child, the filtered expression.
var Output NodeType = &outputType{}

func (outputType) Symbol() string             { return "<output>" }
func (outputType) Discriminant() Discriminant { return DiscOutput }
func (outputType) MinChildren() int           { return 1 }
func (outputType) MaxChildren() int           { return 1 }
func (outputType) Scheme() OptimizationScheme { return SchemeFull }
func (outputType) Validate(n *Node) error      { return nil }
func (outputType) Render(n *Node, rc RenderContext) (value.Value, error) {
	return rc.Eval(n.Children[0])
}
func (outputType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	return foldIfAllLeaves(n, oc, SchemeFull)
}
// Compile leaves the expression's result in register 0 and stops
// there: it is always a Concatenation child, and Concatenation.Compile
// is the single place that emits OUTPUTMEM for a non-literal child,
// mirroring Render's "only Concatenation ever calls Emit" rule.
func (outputType) Compile(n *Node, cc CompileContext) error {
	_, err := cc.CompileChild(n.Children[0])
	return err
}

// --- Group (parenthesized expression) ---

type groupType struct{}

// Group is the Context-wide singleton for `( expr )`, permitted only
// where a dialect's grouping flag allows it (spec.md §4.2).
var Group NodeType = &groupType{}

func (groupType) Symbol() string             { return "<group>" }
func (groupType) Discriminant() Discriminant { return DiscGroup }
func (groupType) MinChildren() int           { return 1 }
func (groupType) MaxChildren() int           { return 1 }
func (groupType) Scheme() OptimizationScheme { return SchemeFull }
func (groupType) Validate(n *Node) error      { return nil }
func (groupType) Render(n *Node, rc RenderContext) (value.Value, error) {
	return rc.Eval(n.Children[0])
}
func (groupType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	return foldIfAllLeaves(n, oc, SchemeFull)
}
func (groupType) Compile(n *Node, cc CompileContext) error {
	_, err := cc.CompileChild(n.Children[0])
	return err
}

// --- GroupDeref (computed index, `a[expr]`) ---

type groupDerefType struct{}

// GroupDeref is the Context-wide singleton for a computed dereference
// key inside brackets, as opposed to a literal dotted key.
var GroupDeref NodeType = &groupDerefType{}

func (groupDerefType) Symbol() string             { return "<derefgroup>" }
func (groupDerefType) Discriminant() Discriminant { return DiscGroupDeref }
func (groupDerefType) MinChildren() int           { return 1 }
func (groupDerefType) MaxChildren() int           { return 1 }
func (groupDerefType) Scheme() OptimizationScheme { return SchemeFull }
func (groupDerefType) Validate(n *Node) error      { return nil }
func (groupDerefType) Render(n *Node, rc RenderContext) (value.Value, error) {
	return rc.Eval(n.Children[0])
}
func (groupDerefType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	return foldIfAllLeaves(n, oc, SchemeFull)
}
func (groupDerefType) Compile(n *Node, cc CompileContext) error {
	_, err := cc.CompileChild(n.Children[0])
	return err
}

// --- ArrayLiteral ---

type arrayLiteralType struct{}

// ArrayLiteral is the Context-wide singleton for `[a, b, c]`, disabled
// by a context flag per spec.md §4.2.
var ArrayLiteral NodeType = &arrayLiteralType{}

func (arrayLiteralType) Symbol() string             { return "<array>" }
func (arrayLiteralType) Discriminant() Discriminant { return DiscArrayLiteral }
func (arrayLiteralType) MinChildren() int           { return 0 }
func (arrayLiteralType) MaxChildren() int           { return -1 }
func (arrayLiteralType) Scheme() OptimizationScheme { return SchemeFull }
func (arrayLiteralType) Validate(n *Node) error      { return nil }
func (arrayLiteralType) Render(n *Node, rc RenderContext) (value.Value, error) {
	vs := make([]value.Value, len(n.Children))
	for i, c := range n.Children {
		v, err := rc.Eval(c)
		if err != nil {
			return value.Nil(), err
		}
		vs[i] = v
	}
	return value.Array(vs), nil
}
func (arrayLiteralType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	return foldIfAllLeaves(n, oc, SchemeFull)
}
func (arrayLiteralType) Compile(n *Node, cc CompileContext) error {
	return compileCallNode(n, cc)
}

// --- Variable ---

type variableType struct{}

// Variable is the Context-wide singleton for a dereference chain:
// child 0 is a string leaf (the root name); further children are
// dereference keys (string/int leaves, or a GroupDeref for a computed
// key) or dot-filter applications (spec.md §3, invariant 4).
var Variable NodeType = &variableType{}

func (variableType) Symbol() string             { return "<var>" }
func (variableType) Discriminant() Discriminant { return DiscVariable }
func (variableType) MinChildren() int           { return 1 }
func (variableType) MaxChildren() int           { return -1 }
func (variableType) Scheme() OptimizationScheme { return SchemeFull }
func (variableType) Validate(n *Node) error {
	if len(n.Children) == 0 || !n.Children[0].IsLeaf() || n.Children[0].Literal.Kind() != value.KindString {
		return errInvalidVariable
	}
	return nil
}

func (variableType) Render(n *Node, rc RenderContext) (value.Value, error) {
	name := n.Children[0].Literal.AsString()
	cur, ok := rc.Resolver().Lookup(name)
	if !ok {
		if rc.StrictVariables() {
			return value.Nil(), errUnknownVariable(name, n.Pos)
		}
		rc.Warn("unknown variable %q", name)
		cur = value.Nil()
	}
	for _, child := range n.Children[1:] {
		if rc.Control() != ControlNone {
			return cur, nil
		}
		if child.Type != nil && child.Type.Discriminant() == DiscDotFilter {
			synthetic := &Node{Type: child.Type, Children: []*Node{Leaf(cur, child.Pos), Internal(Arguments, child.Pos)}}
			v, err := child.Type.Render(synthetic, rc)
			if err != nil {
				return value.Nil(), err
			}
			cur = v
			continue
		}
		key, err := rc.Eval(child)
		if err != nil {
			return value.Nil(), err
		}
		v, ok := rc.Resolver().Index(cur, key)
		if !ok {
			if rc.StrictVariables() {
				return value.Nil(), errUnknownVariable(name+"."+key.String(), child.Pos)
			}
			rc.Warn("unknown member %q on %q", key.String(), name)
			return value.Nil(), nil
		}
		cur = v
	}
	return cur, nil
}

func (variableType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	if len(n.Children) != 1 {
		return n, false
	}
	name := n.Children[0].Literal.AsString()
	if !oc.VariableExists(name) {
		return n, false
	}
	v, err := Variable.Render(n, oc)
	if err != nil {
		return n, false
	}
	return Leaf(v, n.Pos), true
}

// Compile lowers a dereference chain to: resolve the root name
// (operand carries its data-segment offset), then for each further
// step either apply a dot-filter inline or push the running value,
// compile the key into register 0, and RESOLVE with operand -1 — the
// sentinel telling the VM to pop the saved running value and index
// into it with the register's key, rather than treat the register as
// a fresh root name (see vm.step's OpResolve case).
func (variableType) Compile(n *Node, cc CompileContext) error {
	name := n.Children[0].Literal.AsString()
	off := cc.Intern(name)
	cc.Emit(OpResolve, 0, off)
	for _, child := range n.Children[1:] {
		if child.Type != nil && child.Type.Discriminant() == DiscDotFilter {
			if err := child.Type.Compile(child, cc); err != nil {
				return err
			}
			continue
		}
		cc.Emit(OpPush, 0, 0)
		if _, err := cc.CompileChild(child); err != nil {
			return err
		}
		cc.Emit(OpResolve, 0, -1)
	}
	return nil
}
