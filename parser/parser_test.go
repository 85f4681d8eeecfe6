package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamharrison/liquid-go/dialect"
	"github.com/adamharrison/liquid-go/parser"
	"github.com/adamharrison/liquid-go/render"
	"github.com/adamharrison/liquid-go/resolver"
)

// renderSrc parses and renders src, failing the test on any error.
func renderSrc(t *testing.T, p *parser.Parser, r *render.Renderer, src string) string {
	t.Helper()
	root, _, err := p.ParseTemplate(src, "t.liquid")
	require.NoError(t, err)
	out, err := r.RenderString(root)
	require.NoError(t, err)
	return out
}

func newHarness(t *testing.T) (*parser.Parser, *render.Renderer) {
	t.Helper()
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	return parser.New(ctx), render.New(ctx, resolver.NewMapResolver(nil))
}

func TestParseTemplateRoundTripsThroughUnparse(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)

	tests := []string{
		"plain text",
		"{{ 1 + 2 }}",
		`{% if x %}yes{% else %}no{% endif %}`,
		`{% for n in items %}{{ n }}{% endfor %}`,
		`{% assign x = 1 %}{{ x }}`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			root, _, err := p.ParseTemplate(src, "t.liquid")
			require.NoError(t, err)
			unparsed := parser.Unparse(root)

			root2, _, err := p.ParseTemplate(unparsed, "t.liquid")
			require.NoError(t, err)
			unparsed2 := parser.Unparse(root2)

			assert.Equal(t, unparsed, unparsed2, "unparse(parse(unparse(T))) should be a fixed point")
		})
	}
}

func TestParseUnknownTagRecordsSuppressedError(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	_, errs, err := p.ParseTemplate("{% notareal x %}y{% endnotareal %}", "t.liquid")
	require.NoError(t, err)
	require.NotEmpty(t, errs, "expected an unknown-tag error to be recorded")
	assert.Contains(t, errs[0].Error(), "unknown tag")
}

func TestParseUnbalancedGroupRaisesError(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	_, _, err = p.ParseTemplate("{{ (1 + 2 }}", "t.liquid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNBALANCED_GROUP")
}

func TestParseUnknownOperatorRaisesError(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	_, _, err = p.ParseTemplate("{{ 1 ~ 2 }}", "t.liquid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_OPERATOR")
}

func TestParseUnknownOperatorOrQualifierRaisesError(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	_, _, err = p.ParseTemplate("{% for item in items bogus %}{{ item }}{% endfor %}", "t.liquid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_OPERATOR_OR_QUALIFIER")
}

func TestParseArgumentEvaluatesBareExpression(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	n, err := p.ParseArgument(" 1 + 2 ")
	require.NoError(t, err)

	r := render.New(ctx, resolver.NewMapResolver(nil))
	v, err := r.Eval(n)
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())
}

func TestParseAppropriateRoutesOutputVsTemplate(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	r := render.New(ctx, resolver.NewMapResolver(nil))

	n, _, err := p.ParseAppropriate("{{ 1 + 1 }}")
	require.NoError(t, err)
	v, err := r.Eval(n)
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())

	n, _, err = p.ParseAppropriate("hello {{ 1 }}")
	require.NoError(t, err)
	out, err := r.RenderString(n)
	require.NoError(t, err)
	assert.Equal(t, "hello 1", out)
}

func TestWhitespaceControlTrimsAdjacentLiterals(t *testing.T) {
	p, r := newHarness(t)
	got := renderSrc(t, p, r, "a \n{%- if true -%}\n b \n{%- endif -%}\n c")
	assert.Equal(t, "abc", got)
}

func TestRawTagPreservesLiquidSyntax(t *testing.T) {
	p, r := newHarness(t)
	got := renderSrc(t, p, r, "{% raw %}{% if x %}{% endraw %}")
	assert.Equal(t, "{% if x %}", got)
}

func TestForOverFilteredCollection(t *testing.T) {
	p, r := newHarness(t)
	got := renderSrc(t, p, r, `{% assign items = "c,a,b" | split: "," | sort %}{% for i in items %}{{ i }}{% endfor %}`)
	assert.Equal(t, "abc", got)
}
