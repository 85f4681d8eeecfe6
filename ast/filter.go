package ast

import "github.com/adamharrison/liquid-go/value"

// FilterFunc is the callback a registered filter or dot-filter
// implements: given the already-evaluated operand and evaluated
// positional/keyword arguments, produce a result. This is the "render
// callback" named in spec.md §6's host registration contract; arity
// and optimizability are data (MinArgs/MaxArgs/Scheme), not code, per
// spec.md §9's "subclassing becomes data in the table" guidance.
type FilterFunc func(operand value.Value, args []value.Value, rc RenderContext) (value.Value, error)

// filterType is the single concrete NodeType every registered filter
// and dot-filter shares; Context.RegisterFilter/RegisterDotFilter
// constructs one per registration.
type filterType struct {
	symbol  string
	disc    Discriminant
	minArgs int
	maxArgs int
	scheme  OptimizationScheme
	fn      FilterFunc
}

// NewFilter builds the NodeType for a `| name: args` filter.
// minArgs/maxArgs bound the filter's *argument* count (maxArgs < 0 is
// unbounded); the operand itself is always present as child 0.
func NewFilter(symbol string, minArgs, maxArgs int, scheme OptimizationScheme, fn FilterFunc) NodeType {
	return &filterType{symbol: symbol, disc: DiscFilter, minArgs: minArgs, maxArgs: maxArgs, scheme: scheme, fn: fn}
}

// NewDotFilter builds the NodeType for a `.name` dot-filter — always
// zero-arity postfix, applied by Variable while walking a
// dereference chain.
func NewDotFilter(symbol string, scheme OptimizationScheme, fn FilterFunc) NodeType {
	return &filterType{symbol: symbol, disc: DiscDotFilter, minArgs: 0, maxArgs: 0, scheme: scheme, fn: fn}
}

func (f *filterType) Symbol() string             { return f.symbol }
func (f *filterType) Discriminant() Discriminant { return f.disc }
func (f *filterType) MinChildren() int           { return 2 } // operand, arguments
func (f *filterType) MaxChildren() int           { return 2 }
func (f *filterType) Scheme() OptimizationScheme { return f.scheme }

func (f *filterType) Validate(n *Node) error { return nil }

func (f *filterType) Render(n *Node, rc RenderContext) (value.Value, error) {
	operand, err := rc.Eval(n.Children[0])
	if err != nil {
		return value.Nil(), err
	}
	args, err := evalArgs(n.Children[1], rc)
	if err != nil {
		return value.Nil(), err
	}
	return f.fn(operand, args, rc)
}

func evalArgs(argsNode *Node, rc RenderContext) ([]value.Value, error) {
	args := make([]value.Value, len(argsNode.Children))
	for i, c := range argsNode.Children {
		v, err := rc.Eval(c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (f *filterType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	return foldIfAllLeaves(n, oc, f.scheme)
}

// Compile flattens the operand plus the Arguments node's actual
// children into one list before handing it to the shared
// push-reverse/CALL strategy: unlike an operator, a filter's second
// child is itself a container (Arguments), not a value to push as-is.
//
// A dot-filter is the one exception: Variable's Compile invokes
// it directly on the bare parsed marker node (no Arguments child at
// all), with the running dereference value already sitting in
// register 0 — so there its "operand" is that register, not a child.
func (f *filterType) Compile(n *Node, cc CompileContext) error {
	if f.disc == DiscDotFilter {
		cc.Emit(OpPush, 0, 0)
		cc.Emit(OpMovInt, 0, 1)
		cc.Emit(OpCall, 0, int64(cc.NodeTypeID(n.Type)))
		cc.Emit(OpPop, 0, 1)
		return nil
	}
	argsNode := n.Children[1]
	flat := make([]*Node, 0, 1+len(argsNode.Children))
	flat = append(flat, n.Children[0])
	flat = append(flat, argsNode.Children...)
	for i := len(flat) - 1; i >= 0; i-- {
		reg, err := cc.CompileChild(flat[i])
		if err != nil {
			return err
		}
		cc.Emit(OpPush, reg, 0)
	}
	cc.Emit(OpMovInt, 0, int64(len(flat)))
	cc.Emit(OpCall, 0, int64(cc.NodeTypeID(n.Type)))
	cc.Emit(OpPop, 0, int64(len(flat)))
	return nil
}

// foldIfAllLeaves is the shared `SchemeFull` folding strategy: if every
// child is already a literal leaf, render once and replace the node
// with the result (spec.md §4.4).
func foldIfAllLeaves(n *Node, oc OptimizeContext, scheme OptimizationScheme) (*Node, bool) {
	if scheme != SchemeFull {
		return n, false
	}
	for _, c := range n.Children {
		if !c.IsLeaf() {
			return n, false
		}
	}
	v, err := n.Type.Render(n, oc)
	if err != nil {
		return n, false
	}
	return Leaf(v, n.Pos), true
}

// compileCallNode emits the shared compilation strategy for operators
// and array literals (spec.md §4.5; filters use their own Compile above): push children in reverse, MOVINT the count,
// CALL the node type.
func compileCallNode(n *Node, cc CompileContext) error {
	for i := len(n.Children) - 1; i >= 0; i-- {
		reg, err := cc.CompileChild(n.Children[i])
		if err != nil {
			return err
		}
		cc.Emit(OpPush, reg, 0)
	}
	cc.Emit(OpMovInt, 0, int64(len(n.Children)))
	cc.Emit(OpCall, 0, int64(cc.NodeTypeID(n.Type)))
	cc.Emit(OpPop, 0, int64(len(n.Children)))
	return nil
}
