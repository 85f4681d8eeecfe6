// Package optimize implements the post-order constant-folding walk of
// spec.md §4.4. It has no teacher analog in the source corpus — the
// teacher's decorator/transform packages operate on its own IR, not a
// shared render/compile AST — so this package is built directly from
// the specification, reusing package render's ast.OptimizeContext
// implementation (a Renderer IS an OptimizeContext) rather than
// introducing a second evaluator.
package optimize

import "github.com/adamharrison/liquid-go/ast"

// Run walks root post-order, asking each node's declared
// OptimizationScheme whether and how to fold it, against oc's current
// variable store. It returns the (possibly rewritten) tree and
// whether anything changed.
func Run(root *ast.Node, oc ast.OptimizeContext) (*ast.Node, bool) {
	if root.IsLeaf() {
		return root, false
	}

	scheme := root.Type.Scheme()
	if scheme == ast.SchemeShield {
		return root, false
	}

	changed := false
	children := make([]*ast.Node, len(root.Children))
	for i, c := range root.Children {
		nc, ch := Run(c, oc)
		children[i] = nc
		changed = changed || ch
	}

	node := root
	if changed {
		node = ast.Internal(root.Type, root.Pos, children...)
	}

	folded, ok := node.Type.Optimize(node, oc)
	if ok {
		return folded, true
	}
	return node, changed
}
