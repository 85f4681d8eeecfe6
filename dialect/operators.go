package dialect

import (
	"strings"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/value"
)

// compareOp builds a binary comparison operator from a predicate over
// value.Compare's (cmp, ok) result; ok=false (mixed types with no
// total order) always yields false rather than an error, matching
// real Liquid's permissive comparison semantics.
func compareOp(rc ast.RenderContext, pred func(cmp int) bool) func(a, b value.Value) value.Value {
	return func(a, b value.Value) value.Value {
		if cmp, ok := value.Compare(a, b); ok {
			return value.Bool(pred(cmp))
		}
		if cmp, ok := rc.Resolver().Compare(a, b); ok {
			return value.Bool(pred(cmp))
		}
		return value.Bool(false)
	}
}

func arithOperator(symbol string, priority int, op ast.Opcode) ast.OperatorType {
	return ast.NewOperator(symbol, priority, ast.Binary, ast.Infix, ast.SchemeFull,
		func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
			a, b := args[0], args[1]
			if !a.IsNumeric() || !b.IsNumeric() {
				return value.Nil(), nil
			}
			if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
				switch op {
				case ast.OpAdd:
					return value.Int(a.AsInt() + b.AsInt()), nil
				case ast.OpSub:
					return value.Int(a.AsInt() - b.AsInt()), nil
				case ast.OpMul:
					return value.Int(a.AsInt() * b.AsInt()), nil
				case ast.OpDiv:
					if b.AsInt() == 0 {
						return value.Nil(), nil
					}
					return value.Int(a.AsInt() / b.AsInt()), nil
				case ast.OpMod:
					if b.AsInt() == 0 {
						return value.Nil(), nil
					}
					return value.Int(a.AsInt() % b.AsInt()), nil
				}
			}
			af, bf := a.Float64(), b.Float64()
			switch op {
			case ast.OpAdd:
				return value.Float(af + bf), nil
			case ast.OpSub:
				return value.Float(af - bf), nil
			case ast.OpMul:
				return value.Float(af * bf), nil
			case ast.OpDiv:
				if bf == 0 {
					return value.Nil(), nil
				}
				return value.Float(af / bf), nil
			case ast.OpMod:
				if bf == 0 {
					return value.Nil(), nil
				}
				return value.Float(modFloat(af, bf)), nil
			}
			return value.Nil(), nil
		})
}

func modFloat(a, b float64) float64 {
	r := a - b*float64(int64(a/b))
	return r
}

// Operators returns every standard-dialect operator, grounded on
// spec.md §4.2's binding-power table: `|` (filter pipe) binds
// tightest, then multiplicative and additive arithmetic, then range,
// then comparison, then prefix `not`, then boolean and/or — expressed
// here as priority 7 (* / %) > 6 (+ -) > 5 (range) > 4
// (compare/contains) > 3 (not) > 2 (and) > 1 (or).
func Operators() []ast.OperatorType {
	return []ast.OperatorType{
		arithOperator("+", 6, ast.OpAdd),
		arithOperator("-", 6, ast.OpSub),
		arithOperator("*", 7, ast.OpMul),
		arithOperator("/", 7, ast.OpDiv),
		arithOperator("%", 7, ast.OpMod),

		ast.NewOperator("..", 5, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				lo, hi := int(args[0].AsInt()), int(args[1].AsInt())
				if hi < lo {
					return value.Array(nil), nil
				}
				out := make([]value.Value, 0, hi-lo+1)
				for i := lo; i <= hi; i++ {
					out = append(out, value.Int(int64(i)))
				}
				return value.Array(out), nil
			}),

		ast.NewOperator("==", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return value.Bool(value.Equal(args[0], args[1])), nil
			}),
		ast.NewOperator("!=", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return value.Bool(!value.Equal(args[0], args[1])), nil
			}),
		ast.NewOperator("<", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return compareOp(rc, func(c int) bool { return c < 0 })(args[0], args[1]), nil
			}),
		ast.NewOperator("<=", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return compareOp(rc, func(c int) bool { return c <= 0 })(args[0], args[1]), nil
			}),
		ast.NewOperator(">", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return compareOp(rc, func(c int) bool { return c > 0 })(args[0], args[1]), nil
			}),
		ast.NewOperator(">=", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return compareOp(rc, func(c int) bool { return c >= 0 })(args[0], args[1]), nil
			}),
		ast.NewOperator("contains", 4, ast.Binary, ast.Infix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				haystack, needle := args[0], args[1]
				switch haystack.Kind() {
				case value.KindString:
					return value.Bool(strings.Contains(haystack.AsString(), needle.String())), nil
				case value.KindArray:
					for _, e := range haystack.AsArray() {
						if value.Equal(e, needle) {
							return value.Bool(true), nil
						}
					}
					return value.Bool(false), nil
				}
				return value.Bool(false), nil
			}),

		ast.NewOperator("not", 3, ast.Unary, ast.Prefix, ast.SchemeFull,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return value.Bool(!args[0].Truthy(rc.Policy())), nil
			}),

		ast.NewOperator("and", 2, ast.Binary, ast.Infix, ast.SchemeNone,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return value.Bool(args[0].Truthy(rc.Policy()) && args[1].Truthy(rc.Policy())), nil
			}),
		ast.NewOperator("or", 1, ast.Binary, ast.Infix, ast.SchemeNone,
			func(args []value.Value, rc ast.RenderContext) (value.Value, error) {
				return value.Bool(args[0].Truthy(rc.Policy()) || args[1].Truthy(rc.Policy())), nil
			}),
	}
}
