package ast

import "github.com/adamharrison/liquid-go/value"

// Arity distinguishes unary from binary operators (spec.md §6's
// "arity kind" for host registration: nonary/unary/binary/nary — this
// module's standard dialect only needs unary and binary).
type Arity uint8

const (
	Unary Arity = iota
	Binary
)

// Fixness distinguishes prefix from infix placement. AFFIX exists in
// the source but is unused there too (spec.md §9(c)) and is omitted
// here.
type Fixness uint8

const (
	Prefix Fixness = iota
	Infix
)

// OperatorFunc computes a unary or binary operator's result from its
// already-evaluated operand(s). args has length 1 for Unary, 2 for
// Binary (left, right).
type OperatorFunc func(args []value.Value, rc RenderContext) (value.Value, error)

// OperatorType extends NodeType with the precedence the parser
// consults while rotating the expression tree (spec.md §4.2).
type OperatorType interface {
	NodeType
	Priority() int
	Arity() Arity
	Fixness() Fixness
}

type operatorType struct {
	symbol   string
	priority int
	arity    Arity
	fixness  Fixness
	scheme   OptimizationScheme
	fn       OperatorFunc
}

// NewOperator builds a registered unary/binary operator's NodeType.
func NewOperator(symbol string, priority int, arity Arity, fixness Fixness, scheme OptimizationScheme, fn OperatorFunc) OperatorType {
	return &operatorType{symbol: symbol, priority: priority, arity: arity, fixness: fixness, scheme: scheme, fn: fn}
}

func (o *operatorType) Symbol() string             { return o.symbol }
func (o *operatorType) Discriminant() Discriminant { return DiscOperator }
func (o *operatorType) Priority() int              { return o.priority }
func (o *operatorType) Arity() Arity               { return o.arity }
func (o *operatorType) Fixness() Fixness           { return o.fixness }
func (o *operatorType) Scheme() OptimizationScheme { return o.scheme }
func (o *operatorType) Validate(n *Node) error      { return nil }

func (o *operatorType) MinChildren() int {
	if o.arity == Unary {
		return 1
	}
	return 2
}
func (o *operatorType) MaxChildren() int { return o.MinChildren() }

func (o *operatorType) Render(n *Node, rc RenderContext) (value.Value, error) {
	args := make([]value.Value, len(n.Children))
	for i, c := range n.Children {
		v, err := rc.Eval(c)
		if err != nil {
			return value.Nil(), err
		}
		args[i] = v
	}
	return o.fn(args, rc)
}

func (o *operatorType) Optimize(n *Node, oc OptimizeContext) (*Node, bool) {
	return foldIfAllLeaves(n, oc, o.scheme)
}

func (o *operatorType) Compile(n *Node, cc CompileContext) error {
	return compileCallNode(n, cc)
}
