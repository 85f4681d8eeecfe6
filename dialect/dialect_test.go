package dialect_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamharrison/liquid-go/compile"
	"github.com/adamharrison/liquid-go/dialect"
	"github.com/adamharrison/liquid-go/optimize"
	"github.com/adamharrison/liquid-go/parser"
	"github.com/adamharrison/liquid-go/render"
	"github.com/adamharrison/liquid-go/resolver"
	"github.com/adamharrison/liquid-go/vm"
)

// renderTree parses and renders src through the tree-walking renderer.
func renderTree(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	root, _, err := p.ParseTemplate(src, "test.liquid")
	require.NoError(t, err)
	r := render.New(ctx, resolver.NewMapResolver(data))
	out, err := r.RenderString(root)
	require.NoError(t, err)
	return out
}

// renderVM parses, optimizes, compiles, and runs src through the bytecode VM.
func renderVM(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	p := parser.New(ctx)
	root, _, err := p.ParseTemplate(src, "test.liquid")
	require.NoError(t, err)
	r := render.New(ctx, resolver.NewMapResolver(nil))
	optimized, _ := optimize.Run(root, r)
	prog, err := compile.Compile(optimized)
	require.NoError(t, err)
	var buf bytes.Buffer
	m := vm.New(prog, resolver.NewMapResolver(data))
	require.NoError(t, m.Run(&buf))
	return buf.String()
}

// TestTagsEndToEnd exercises every standard tag through the full
// parse-render pipeline, the same end-to-end shape as the teacher's
// operator integration tests.
func TestTagsEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{
			name: "if true branch",
			src:  "{% if x %}yes{% else %}no{% endif %}",
			data: map[string]any{"x": true},
			want: "yes",
		},
		{
			name: "if false falls to else",
			src:  "{% if x %}yes{% else %}no{% endif %}",
			data: map[string]any{"x": false},
			want: "no",
		},
		{
			name: "if with elsif chain",
			src:  "{% if x == 1 %}one{% elsif x == 2 %}two{% else %}other{% endif %}",
			data: map[string]any{"x": int64(2)},
			want: "two",
		},
		{
			name: "unless inverts the test",
			src:  "{% unless x %}shown{% endunless %}",
			data: map[string]any{"x": false},
			want: "shown",
		},
		{
			name: "case matches a when",
			src:  "{% case x %}{% when 1 %}one{% when 2 %}two{% else %}other{% endcase %}",
			data: map[string]any{"x": int64(2)},
			want: "two",
		},
		{
			name: "case falls to else",
			src:  "{% case x %}{% when 1 %}one{% else %}other{% endcase %}",
			data: map[string]any{"x": int64(9)},
			want: "other",
		},
		{
			name: "for loop basic",
			src:  "{% for n in items %}{{ n }}{% endfor %}",
			data: map[string]any{"items": []any{int64(1), int64(2), int64(3)}},
			want: "123",
		},
		{
			name: "for loop with forloop.index",
			src:  "{% for n in items %}{{ forloop.index }}:{{ n }} {% endfor %}",
			data: map[string]any{"items": []any{"a", "b"}},
			want: "1:a 2:b ",
		},
		{
			name: "for loop forloop.last",
			src:  "{% for n in items %}{% if forloop.last %}last{% endif %}{% endfor %}",
			data: map[string]any{"items": []any{"a", "b", "c"}},
			want: "last",
		},
		{
			name: "for loop else on empty",
			src:  "{% for n in items %}{{ n }}{% else %}empty{% endfor %}",
			data: map[string]any{"items": []any{}},
			want: "empty",
		},
		{
			name: "for loop with limit and offset",
			src:  "{% for n in items limit:2 offset:1 %}{{ n }}{% endfor %}",
			data: map[string]any{"items": []any{int64(1), int64(2), int64(3), int64(4)}},
			want: "23",
		},
		{
			name: "for loop reversed",
			src:  "{% for n in items reversed %}{{ n }}{% endfor %}",
			data: map[string]any{"items": []any{int64(1), int64(2), int64(3)}},
			want: "321",
		},
		{
			name: "break exits the loop early",
			src:  "{% for n in items %}{% if n == 2 %}{% break %}{% endif %}{{ n }}{% endfor %}",
			data: map[string]any{"items": []any{int64(1), int64(2), int64(3)}},
			want: "1",
		},
		{
			name: "continue skips an iteration",
			src:  "{% for n in items %}{% if n == 2 %}{% continue %}{% endif %}{{ n }}{% endfor %}",
			data: map[string]any{"items": []any{int64(1), int64(2), int64(3)}},
			want: "13",
		},
		{
			name: "assign binds a variable",
			src:  "{% assign greeting = \"hi\" %}{{ greeting }}",
			data: nil,
			want: "hi",
		},
		{
			name: "capture buffers the body",
			src:  "{% capture out %}captured{% endcapture %}{{ out }}",
			data: nil,
			want: "captured",
		},
		{
			name: "increment returns prior value and persists",
			src:  "{% increment n %}{% increment n %}{% increment n %}",
			data: nil,
			want: "012",
		},
		{
			name: "decrement returns new value",
			src:  "{% decrement n %}{% decrement n %}",
			data: nil,
			want: "-1-2",
		},
		{
			name: "raw suppresses tag parsing",
			src:  "{% raw %}{{ not a var }}{% endraw %}",
			data: nil,
			want: "{{ not a var }}",
		},
		{
			name: "echo evaluates an expression",
			src:  "{% echo 1 + 2 %}",
			data: nil,
			want: "3",
		},
		{
			name: "cycle round-robins across calls",
			src:  "{% for n in items %}{% cycle \"a\", \"b\" %}{% endfor %}",
			data: map[string]any{"items": []any{int64(1), int64(2), int64(3)}},
			want: "aba",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, renderTree(t, tc.src, tc.data))
		})
	}
}

// TestOperatorsEndToEnd exercises the standard operator set through
// the tree-walking renderer.
func TestOperatorsEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"addition", "{{ 1 + 2 }}", "3"},
		{"subtraction", "{{ 5 - 3 }}", "2"},
		{"multiplication", "{{ 4 * 2 }}", "8"},
		{"division", "{{ 10 / 2 }}", "5"},
		{"division by zero yields nothing", "{{ 10 / 0 }}", ""},
		{"modulo", "{{ 10 % 3 }}", "1"},
		{"float arithmetic", "{{ 1.5 + 1.5 }}", "3.0"},
		{"equality", "{{ 1 == 1 }}", "true"},
		{"inequality", "{{ 1 != 2 }}", "true"},
		{"less than", "{{ 1 < 2 }}", "true"},
		{"greater than", "{{ 2 > 1 }}", "true"},
		{"string contains", "{{ \"hello world\" contains \"world\" }}", "true"},
		{"not negates", "{{ not false }}", "true"},
		{"and both true", "{{ true and true }}", "true"},
		{"or one true", "{{ false or true }}", "true"},
		{"range builds an array", "{% for n in (1..3) %}{{ n }}{% endfor %}", "123"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, renderTree(t, tc.src, nil))
		})
	}
}

// TestFiltersEndToEnd exercises the standard filter set.
func TestFiltersEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{"upcase", `{{ "abc" | upcase }}`, nil, "ABC"},
		{"downcase", `{{ "ABC" | downcase }}`, nil, "abc"},
		{"capitalize", `{{ "abc def" | capitalize }}`, nil, "Abc def"},
		{"strip", `{{ "  hi  " | strip }}`, nil, "hi"},
		{"replace", `{{ "a-b-c" | replace: "-", "_" }}`, nil, "a_b_c"},
		{"append", `{{ "foo" | append: "bar" }}`, nil, "foobar"},
		{"prepend", `{{ "bar" | prepend: "foo" }}`, nil, "foobar"},
		{"split and join", `{{ "a,b,c" | split: "," | join: "-" }}`, nil, "a-b-c"},
		{"size of string", `{{ "hello" | size }}`, nil, "5"},
		{"size of array", `{{ items | size }}`, map[string]any{"items": []any{1, 2, 3}}, "3"},
		{"first", `{{ items | first }}`, map[string]any{"items": []any{int64(1), int64(2)}}, "1"},
		{"last", `{{ items | last }}`, map[string]any{"items": []any{int64(1), int64(2)}}, "2"},
		{"reverse", `{% assign r = items | reverse %}{% for n in r %}{{ n }}{% endfor %}`, map[string]any{"items": []any{int64(1), int64(2), int64(3)}}, "321"},
		{"sort", `{% assign s = items | sort %}{% for n in s %}{{ n }}{% endfor %}`, map[string]any{"items": []any{int64(3), int64(1), int64(2)}}, "123"},
		{"uniq", `{% assign u = items | uniq %}{% for n in u %}{{ n }}{% endfor %}`, map[string]any{"items": []any{int64(1), int64(1), int64(2)}}, "12"},
		{"plus filter", `{{ 1 | plus: 2 }}`, nil, "3"},
		{"minus filter", `{{ 5 | minus: 2 }}`, nil, "3"},
		{"times filter", `{{ 3 | times: 4 }}`, nil, "12"},
		{"divided_by filter", `{{ 10 | divided_by: 2 }}`, nil, "5"},
		{"abs", `{{ -5 | abs }}`, nil, "5"},
		{"ceil", `{{ 4.1 | ceil }}`, nil, "5"},
		{"floor", `{{ 4.9 | floor }}`, nil, "4"},
		{"round with precision", `{{ 3.14159 | round: 2 }}`, nil, "3.14"},
		{"default for nil", `{{ missing | default: "fallback" }}`, nil, "fallback"},
		{"pluralize singular", `{{ 1 | pluralize: "item", "items" }}`, nil, "item"},
		{"pluralize plural", `{{ 2 | pluralize: "item", "items" }}`, nil, "items"},
		{"truncate", `{{ "abcdefgh" | truncate: 5 }}`, nil, "ab..."},
		{
			"slice on array",
			`{% assign s = items | slice: 1, 2 %}{% for n in s %}{{ n }}{% endfor %}`,
			map[string]any{"items": []any{int64(1), int64(2), int64(3), int64(4)}},
			"23",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, renderTree(t, tc.src, tc.data))
		})
	}
}

// TestVMMatchesRenderer spot-checks that the bytecode VM produces the
// same output as the tree-walking renderer for tags (branching and
// looping ones included) and operators that have Compile
// implementations.
func TestVMMatchesRenderer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
	}{
		{"arithmetic", "{{ 1 + 2 * 3 }}", nil},
		{"assign then echo", `{% assign x = 5 %}{{ x }}`, nil},
		{"capture", `{% capture c %}hi {{ name }}{% endcapture %}{{ c }}`, map[string]any{"name": "world"}},
		{"increment sequence", `{% increment n %}{% increment n %}`, nil},
		{"comparison", "{{ 1 < 2 }}", nil},
		{"if true branch", `{% if flag %}yes{% else %}no{% endif %}`, map[string]any{"flag": true}},
		{"if false branch falls to else", `{% if flag %}yes{% else %}no{% endif %}`, map[string]any{"flag": false}},
		{"if elsif chain", `{% if x == 1 %}one{% elsif x == 2 %}two{% else %}other{% endif %}`, map[string]any{"x": 2}},
		{"unless", `{% unless flag %}no{% else %}yes{% endunless %}`, map[string]any{"flag": false}},
		{"case when match", `{% case x %}{% when 1 %}one{% when 2 %}two{% else %}other{% endcase %}`, map[string]any{"x": 2}},
		{"case falls to else", `{% case x %}{% when 1 %}one{% when 2 %}two{% else %}other{% endcase %}`, map[string]any{"x": 9}},
		{"case multi-value when", `{% case x %}{% when 1, 2 %}low{% else %}high{% endcase %}`, map[string]any{"x": 2}},
		{"for over array", `{% for item in items %}{{ item }},{% endfor %}`, map[string]any{"items": []any{1, 2, 3}}},
		{"for reversed", `{% for item in items reversed %}{{ item }},{% endfor %}`, map[string]any{"items": []any{1, 2, 3}}},
		{"for limit and offset", `{% for item in items limit: 2 offset: 1 %}{{ item }},{% endfor %}`, map[string]any{"items": []any{1, 2, 3, 4, 5}}},
		{"for forloop object", `{% for item in items %}{{ forloop.index }}:{{ forloop.first }}:{{ forloop.last }} {% endfor %}`, map[string]any{"items": []any{1, 2, 3}}},
		{"for empty falls to else", `{% for item in items %}x{% else %}empty{% endfor %}`, map[string]any{"items": []any{}}},
		{"for with break", `{% for item in items %}{% if item == 2 %}{% break %}{% endif %}{{ item }}{% endfor %}`, map[string]any{"items": []any{1, 2, 3}}},
		{"for with continue", `{% for item in items %}{% if item == 2 %}{% continue %}{% endif %}{{ item }}{% endfor %}`, map[string]any{"items": []any{1, 2, 3}}},
		{"cycle inside for", `{% for item in items %}{% cycle "a", "b" %}{% endfor %}`, map[string]any{"items": []any{1, 2, 3, 4}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := renderTree(t, tc.src, tc.data)
			got := renderVM(t, tc.src, tc.data)
			assert.Equal(t, want, got)
		})
	}
}

func TestStandardRegistersDialectVersion(t *testing.T) {
	ctx, err := dialect.Standard()
	require.NoError(t, err)
	v, ok := ctx.DialectVersion("standard")
	require.True(t, ok)
	assert.Equal(t, "v1.0.0", v)
}
