package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/dialect"
	"github.com/adamharrison/liquid-go/optimize"
	"github.com/adamharrison/liquid-go/parser"
	"github.com/adamharrison/liquid-go/render"
	"github.com/adamharrison/liquid-go/resolver"
)

func parseAndOptimize(t *testing.T, src string, data map[string]any) (*ast.Node, bool) {
	t.Helper()
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	root, _, err := p.ParseTemplate(src, "t.liquid")
	require.NoError(t, err)
	r := render.New(ctx, resolver.NewMapResolver(data))
	return optimize.Run(root, r)
}

func TestRunFoldsConstantArithmetic(t *testing.T) {
	folded, changed := parseAndOptimize(t, "{{ 1 + 2 }}", nil)
	require.True(t, changed)

	ctx, err := dialect.Standard()
	require.NoError(t, err)
	r := render.New(ctx, resolver.NewMapResolver(nil))
	out, err := r.RenderString(folded)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestRunFoldsAdjacentLiterals(t *testing.T) {
	folded, changed := parseAndOptimize(t, "a{{ 1 }}bc", nil)
	require.True(t, changed)
	// "a", the leaf {{ 1 }} collapses to, and "bc" fold into a single
	// literal child.
	require.Len(t, folded.Children, 1)
	assert.True(t, folded.Children[0].IsLeaf(), "expected the literals to fold to one leaf")
	assert.Equal(t, "a1bc", folded.Children[0].Literal.String())
}

func TestRunDoesNotFoldUnboundVariable(t *testing.T) {
	folded, _ := parseAndOptimize(t, "{{ missing }}", nil)
	// a variable reference to an unbound name must not fold away, since
	// the host-supplied resolver may define it differently at render
	// time than it does right now.
	var walk func(n *ast.Node) bool
	walk = func(n *ast.Node) bool {
		if n.IsLeaf() {
			return false
		}
		if n.Type.Discriminant() == ast.DiscVariable {
			return true
		}
		for _, c := range n.Children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	assert.True(t, walk(folded), "unbound variable node should survive optimization")
}

func TestRunFoldsBoundVariable(t *testing.T) {
	folded, changed := parseAndOptimize(t, "{{ x }}", map[string]any{"x": int64(5)})
	require.True(t, changed)

	ctx, err := dialect.Standard()
	require.NoError(t, err)
	r := render.New(ctx, resolver.NewMapResolver(map[string]any{"x": int64(5)}))
	out, err := r.RenderString(folded)
	require.NoError(t, err)
	assert.Equal(t, "5", out)
}

func TestRunLeavesBranchingTagsUnfolded(t *testing.T) {
	folded, _ := parseAndOptimize(t, `{% if true %}a{% else %}b{% endif %}`, nil)
	require.Len(t, folded.Children, 1)
	assert.Equal(t, ast.DiscTag, folded.Children[0].Type.Discriminant())

	ctx, err := dialect.Standard()
	require.NoError(t, err)
	r := render.New(ctx, resolver.NewMapResolver(nil))
	out, err := r.RenderString(folded)
	require.NoError(t, err)
	assert.Equal(t, "a", out)
}
