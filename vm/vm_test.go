package vm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamharrison/liquid-go/compile"
	"github.com/adamharrison/liquid-go/dialect"
	"github.com/adamharrison/liquid-go/parser"
	"github.com/adamharrison/liquid-go/resolver"
	"github.com/adamharrison/liquid-go/vm"
)

func runVM(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	root, _, err := p.ParseTemplate(src, "t.liquid")
	require.NoError(t, err)

	prog, err := compile.Compile(root)
	require.NoError(t, err)

	res := resolver.NewMapResolver(data)
	var sb strings.Builder
	require.NoError(t, vm.New(prog, res).Run(&sb))
	return sb.String()
}

func TestVMRunsArithmetic(t *testing.T) {
	assert.Equal(t, "7", runVM(t, "{{ 3 + 4 }}", nil))
	assert.Equal(t, "12", runVM(t, "{{ 3 * 4 }}", nil))
}

func TestVMAssignAndEchoRoundTrip(t *testing.T) {
	out := runVM(t, "{% assign x = 5 %}{{ x }}", nil)
	assert.Equal(t, "5", out)
}

func TestVMReadsHostVariable(t *testing.T) {
	out := runVM(t, "hello {{ name }}", map[string]any{"name": "world"})
	assert.Equal(t, "hello world", out)
}

func TestVMIncrementSequence(t *testing.T) {
	out := runVM(t, "{% increment x %}{% increment x %}{% increment x %}", nil)
	assert.Equal(t, "012", out)
}

func TestVMCaptureBuffersOutput(t *testing.T) {
	out := runVM(t, "{% capture greeting %}hi {{ name }}{% endcapture %}{{ greeting }}",
		map[string]any{"name": "bob"})
	assert.Equal(t, "hi bob", out)
}

func TestVMDecrementSequence(t *testing.T) {
	out := runVM(t, "{% decrement x %}{% decrement x %}", nil)
	assert.Equal(t, "-1-2", out)
}

func TestVMRawPreservesLiquidSyntax(t *testing.T) {
	out := runVM(t, "{% raw %}{{ x }}{% endraw %}", nil)
	assert.Equal(t, "{{ x }}", out)
}

func TestDisassembleProducesOneLinePerInstruction(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	root, _, err := p.ParseTemplate(`{% assign x = "hi" %}{{ x }}`, "t.liquid")
	require.NoError(t, err)
	prog, err := compile.Compile(root)
	require.NoError(t, err)

	out := vm.Disassemble(prog)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.NotEmpty(t, lines)
	assert.Contains(t, out, "EXIT")
	assert.Contains(t, out, `"hi"`)
}
