package render_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamharrison/liquid-go/dialect"
	"github.com/adamharrison/liquid-go/liquiderr"
	"github.com/adamharrison/liquid-go/parser"
	"github.com/adamharrison/liquid-go/render"
	"github.com/adamharrison/liquid-go/resolver"
	"github.com/adamharrison/liquid-go/value"
)

func newRenderer(t *testing.T, data map[string]any, opts ...render.Option) (*parser.Parser, *render.Renderer) {
	t.Helper()
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	return parser.New(ctx), render.New(ctx, resolver.NewMapResolver(data), opts...)
}

func TestRenderStringEvaluatesTemplate(t *testing.T) {
	p, r := newRenderer(t, map[string]any{"name": "world"})
	root, _, err := p.ParseTemplate("hello {{ name }}", "t.liquid")
	require.NoError(t, err)
	out, err := r.RenderString(root)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestRenderStreamWritesToWriter(t *testing.T) {
	p, r := newRenderer(t, nil)
	root, _, err := p.ParseTemplate("{% assign x = 1 %}{{ x }}", "t.liquid")
	require.NoError(t, err)
	var sb builderWriter
	require.NoError(t, r.RenderStream(root, &sb))
	assert.Equal(t, "1", sb.String())
}

// builderWriter avoids importing strings.Builder twice across files;
// it is just an io.Writer collecting bytes for assertions.
type builderWriter struct{ buf []byte }

func (b *builderWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
func (b *builderWriter) String() string { return string(b.buf) }

func TestCheckLimitsReportsExceededDepth(t *testing.T) {
	p, r := newRenderer(t, nil, render.WithMaxDepth(2))
	root, _, err := p.ParseTemplate(
		"{% if true %}{% if true %}{% if true %}x{% endif %}{% endif %}{% endif %}", "t.liquid")
	require.NoError(t, err)
	_, err = r.RenderString(root)
	require.Error(t, err)
	var le *liquiderr.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, liquiderr.ExceededDepth, le.Code)
}

func TestCheckLimitsReportsExceededMemory(t *testing.T) {
	p, r := newRenderer(t, nil, render.WithMaxMemory(4))
	root, _, err := p.ParseTemplate("hello {{ 1 }} world", "t.liquid")
	require.NoError(t, err)
	_, err = r.RenderString(root)
	require.Error(t, err)
	var le *liquiderr.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, liquiderr.ExceededMemory, le.Code)
}

func TestCheckLimitsReportsExceededDuration(t *testing.T) {
	p, r := newRenderer(t, nil, render.WithMaxDuration(time.Nanosecond))
	root, _, err := p.ParseTemplate("x {{ 1 }} y", "t.liquid")
	require.NoError(t, err)
	_, err = r.RenderString(root)
	require.Error(t, err)
	var le *liquiderr.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, liquiderr.ExceededTime, le.Code)
}

func TestPushPopScopeShadowsLookup(t *testing.T) {
	_, r := newRenderer(t, map[string]any{"forloop": "not-a-scope"})
	r.PushScope("forloop", func(key string) (value.Value, bool) {
		if key == "index" {
			return value.Int(1), true
		}
		return value.Nil(), false
	})
	v, ok := r.Lookup("forloop")
	require.True(t, ok)
	idx, ok := r.Index(v, value.String("index"))
	require.True(t, ok)
	assert.Equal(t, int64(1), idx.AsInt())

	r.PopScope("forloop")
	v, ok = r.Lookup("forloop")
	require.True(t, ok)
	assert.Equal(t, "not-a-scope", v.AsString())
}

func TestPushPopBufferCapturesEmit(t *testing.T) {
	_, r := newRenderer(t, nil)
	r.PushBuffer()
	require.NoError(t, r.Emit("captured"))
	assert.Equal(t, "captured", r.PopBuffer())
}

func TestPopBufferWithoutPushReturnsEmpty(t *testing.T) {
	_, r := newRenderer(t, nil)
	assert.Equal(t, "", r.PopBuffer())
}

func TestWarnRecordsDiagnostic(t *testing.T) {
	_, r := newRenderer(t, nil)
	r.Warn("something happened: %s", "detail")
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, r.Warnings()[0], "something happened: detail")
}

func TestVariableExistsReflectsResolver(t *testing.T) {
	_, r := newRenderer(t, map[string]any{"known": int64(1)})
	assert.True(t, r.VariableExists("known"))
	assert.False(t, r.VariableExists("missing"))
}
