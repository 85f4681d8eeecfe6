package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/value"
)

// Unparse serializes an AST back into canonical source text — the
// round-trip contract spec.md §8 tests against
// (`render(parse(T)) == render(parse(unparse(parse(T))))`).
func Unparse(root *ast.Node) string {
	var sb strings.Builder
	unparseBody(&sb, root)
	return sb.String()
}

func unparseBody(sb *strings.Builder, n *ast.Node) {
	if n.IsLeaf() {
		sb.WriteString(n.Literal.AsString())
		return
	}
	switch n.Type.Discriminant() {
	case ast.DiscConcatenation:
		for _, c := range n.Children {
			unparseBody(sb, c)
		}
	case ast.DiscOutput:
		sb.WriteString("{{ ")
		unparseExpr(sb, n.Children[0])
		sb.WriteString(" }}")
	default:
		unparseTag(sb, n)
	}
}

func unparseTag(sb *strings.Builder, n *ast.Node) {
	sb.WriteString("{% ")
	sb.WriteString(n.Type.Symbol())
	if len(n.Children) > 0 {
		unparseArgs(sb, n.Type.Symbol(), n.Children[0])
	}
	sb.WriteString(" %}")
	for i := 1; i < len(n.Children); i++ {
		child := n.Children[i]
		if child.Type != nil && child.Type.Discriminant() == ast.DiscConcatenation {
			unparseBody(sb, child)
		} else {
			unparseTag(sb, child)
		}
	}
	if tt, ok := n.Type.(ast.TagType); ok && tt.ClosesWith() != "" {
		sb.WriteString("{% ")
		sb.WriteString(tt.ClosesWith())
		sb.WriteString(" %}")
	}
}

func unparseArgs(sb *strings.Builder, sym string, argsNode *ast.Node) {
	switch sym {
	case "for":
		if len(argsNode.Children) < 2 {
			return
		}
		fmt.Fprintf(sb, " %s in ", argsNode.Children[0].Literal.AsString())
		unparseExpr(sb, argsNode.Children[1])
		for _, q := range argsNode.Children[2:] {
			unparseQualifier(sb, q)
		}
		return
	case "assign":
		if len(argsNode.Children) < 2 {
			return
		}
		sb.WriteString(" ")
		unparseExpr(sb, argsNode.Children[0])
		sb.WriteString(" = ")
		unparseExpr(sb, argsNode.Children[1])
		return
	}
	for i, c := range argsNode.Children {
		if c.Type != nil && c.Type.Discriminant() == ast.DiscQualifier {
			unparseQualifier(sb, c)
			continue
		}
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		unparseExpr(sb, c)
	}
}

func unparseQualifier(sb *strings.Builder, q *ast.Node) {
	sb.WriteString(" ")
	sb.WriteString(q.Type.Symbol())
	if len(q.Children) > 0 {
		sb.WriteString(": ")
		unparseExpr(sb, q.Children[0])
	}
}

func unparseExpr(sb *strings.Builder, n *ast.Node) {
	if n.IsLeaf() {
		sb.WriteString(quoteLiteral(n.Literal))
		return
	}
	switch n.Type.Discriminant() {
	case ast.DiscVariable:
		sb.WriteString(n.Children[0].Literal.AsString())
		for _, c := range n.Children[1:] {
			if c.Type != nil && c.Type.Discriminant() == ast.DiscDotFilter {
				sb.WriteString(".")
				sb.WriteString(c.Type.Symbol())
				continue
			}
			if c.Type != nil && c.Type.Discriminant() == ast.DiscGroupDeref {
				sb.WriteString("[")
				unparseExpr(sb, c.Children[0])
				sb.WriteString("]")
				continue
			}
			sb.WriteString(".")
			sb.WriteString(c.Literal.AsString())
		}
	case ast.DiscGroup:
		sb.WriteString("(")
		unparseExpr(sb, n.Children[0])
		sb.WriteString(")")
	case ast.DiscArrayLiteral:
		sb.WriteString("[")
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			unparseExpr(sb, c)
		}
		sb.WriteString("]")
	case ast.DiscOperator:
		if len(n.Children) == 1 {
			sb.WriteString(n.Type.Symbol())
			sb.WriteString(" ")
			unparseExpr(sb, n.Children[0])
			return
		}
		unparseExpr(sb, n.Children[0])
		sb.WriteString(" ")
		sb.WriteString(n.Type.Symbol())
		sb.WriteString(" ")
		unparseExpr(sb, n.Children[1])
	case ast.DiscFilter, ast.DiscDotFilter:
		if len(n.Children) > 0 {
			unparseExpr(sb, n.Children[0])
		}
		sb.WriteString(" | ")
		sb.WriteString(n.Type.Symbol())
		if len(n.Children) > 1 && len(n.Children[1].Children) > 0 {
			sb.WriteString(": ")
			for i, a := range n.Children[1].Children {
				if i > 0 {
					sb.WriteString(", ")
				}
				if a.Type != nil && a.Type.Discriminant() == ast.DiscQualifier {
					unparseQualifier(sb, a)
					continue
				}
				unparseExpr(sb, a)
			}
		}
	default:
		sb.WriteString(n.Type.Symbol())
	}
}

func quoteLiteral(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		return strconv.Quote(v.AsString())
	case value.KindNil:
		return "nil"
	default:
		return v.String()
	}
}
