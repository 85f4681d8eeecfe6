package dialect

import (
	"net/url"
	"sort"
	"strings"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/value"
)

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Nil()
}

func simpleFilter(symbol string, minArgs, maxArgs int, fn ast.FilterFunc) ast.NodeType {
	return ast.NewFilter(symbol, minArgs, maxArgs, ast.SchemeFull, fn)
}

// --- string filters ---

func upcaseFilter() ast.NodeType {
	return simpleFilter("upcase", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.ToUpper(operand.String())), nil
	})
}

func downcaseFilter() ast.NodeType {
	return simpleFilter("downcase", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.ToLower(operand.String())), nil
	})
}

func capitalizeFilter() ast.NodeType {
	return simpleFilter("capitalize", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		s := operand.String()
		if s == "" {
			return value.String(s), nil
		}
		return value.String(strings.ToUpper(s[:1]) + strings.ToLower(s[1:])), nil
	})
}

func stripFilter() ast.NodeType {
	return simpleFilter("strip", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.TrimSpace(operand.String())), nil
	})
}

func lstripFilter() ast.NodeType {
	return simpleFilter("lstrip", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.TrimLeft(operand.String(), " \t\r\n")), nil
	})
}

func rstripFilter() ast.NodeType {
	return simpleFilter("rstrip", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.TrimRight(operand.String(), " \t\r\n")), nil
	})
}

func replaceFilter() ast.NodeType {
	return simpleFilter("replace", 1, 2, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.ReplaceAll(operand.String(), arg(args, 0).String(), arg(args, 1).String())), nil
	})
}

func removeFilter() ast.NodeType {
	return simpleFilter("remove", 1, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(strings.ReplaceAll(operand.String(), arg(args, 0).String(), "")), nil
	})
}

func appendFilter() ast.NodeType {
	return simpleFilter("append", 1, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(operand.String() + arg(args, 0).String()), nil
	})
}

func prependFilter() ast.NodeType {
	return simpleFilter("prepend", 1, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(arg(args, 0).String() + operand.String()), nil
	})
}

func splitFilter() ast.NodeType {
	return simpleFilter("split", 1, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		parts := strings.Split(operand.String(), arg(args, 0).String())
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.String(p)
		}
		return value.Array(out), nil
	})
}

func joinFilter() ast.NodeType {
	return simpleFilter("join", 0, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		sep := " "
		if len(args) > 0 {
			sep = arg(args, 0).String()
		}
		parts := make([]string, len(operand.AsArray()))
		for i, e := range operand.AsArray() {
			parts[i] = e.String()
		}
		return value.String(strings.Join(parts, sep)), nil
	})
}

func escapeFilter() ast.NodeType {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")
	return simpleFilter("escape", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(replacer.Replace(operand.String())), nil
	})
}

func urlEncodeFilter() ast.NodeType {
	return simpleFilter("url_encode", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.String(url.QueryEscape(operand.String())), nil
	})
}

func urlDecodeFilter() ast.NodeType {
	return simpleFilter("url_decode", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		s, err := url.QueryUnescape(operand.String())
		if err != nil {
			return operand, nil
		}
		return value.String(s), nil
	})
}

func truncateFilter() ast.NodeType {
	return simpleFilter("truncate", 1, 2, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		s := operand.String()
		n := int(arg(args, 0).AsInt())
		suffix := "..."
		if len(args) > 1 {
			suffix = arg(args, 1).String()
		}
		if len(s) <= n {
			return value.String(s), nil
		}
		cut := n - len(suffix)
		if cut < 0 {
			cut = 0
		}
		return value.String(s[:cut] + suffix), nil
	})
}

func truncatewordsFilter() ast.NodeType {
	return simpleFilter("truncatewords", 1, 2, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		words := strings.Fields(operand.String())
		n := int(arg(args, 0).AsInt())
		suffix := "..."
		if len(args) > 1 {
			suffix = arg(args, 1).String()
		}
		if len(words) <= n {
			return value.String(operand.String()), nil
		}
		return value.String(strings.Join(words[:n], " ") + suffix), nil
	})
}

// --- array filters ---

func sizeFilter() ast.NodeType {
	return simpleFilter("size", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		if n, ok := rc.Resolver().Length(operand); ok {
			return value.Int(int64(n)), nil
		}
		return value.Int(0), nil
	})
}

func firstFilter() ast.NodeType {
	return simpleFilter("first", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := operand.AsArray()
		if len(a) == 0 {
			return value.Nil(), nil
		}
		return a[0], nil
	})
}

func lastFilter() ast.NodeType {
	return simpleFilter("last", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := operand.AsArray()
		if len(a) == 0 {
			return value.Nil(), nil
		}
		return a[len(a)-1], nil
	})
}

func reverseFilter() ast.NodeType {
	return simpleFilter("reverse", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := operand.AsArray()
		out := make([]value.Value, len(a))
		for i, e := range a {
			out[len(a)-1-i] = e
		}
		return value.Array(out), nil
	})
}

func sortFilter() ast.NodeType {
	return simpleFilter("sort", 0, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := append([]value.Value(nil), operand.AsArray()...)
		var key string
		if len(args) > 0 {
			key = arg(args, 0).String()
		}
		sort.SliceStable(a, func(i, j int) bool {
			x, y := a[i], a[j]
			if key != "" {
				x, _ = rc.Resolver().Index(x, value.String(key))
				y, _ = rc.Resolver().Index(y, value.String(key))
			}
			if cmp, ok := value.Compare(x, y); ok {
				return cmp < 0
			}
			if cmp, ok := rc.Resolver().Compare(x, y); ok {
				return cmp < 0
			}
			return false
		})
		return value.Array(a), nil
	})
}

func uniqFilter() ast.NodeType {
	return simpleFilter("uniq", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := operand.AsArray()
		var out []value.Value
		for _, e := range a {
			dup := false
			for _, o := range out {
				if value.Equal(e, o) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, e)
			}
		}
		return value.Array(out), nil
	})
}

func sliceFilter() ast.NodeType {
	return simpleFilter("slice", 1, 2, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := operand.AsArray()
		start := int(arg(args, 0).AsInt())
		if start < 0 {
			start += len(a)
		}
		if start < 0 {
			start = 0
		}
		if start > len(a) {
			start = len(a)
		}
		n := 1
		if len(args) > 1 {
			n = int(arg(args, 1).AsInt())
		}
		end := start + n
		if end > len(a) {
			end = len(a)
		}
		if end < start {
			end = start
		}
		return value.Array(a[start:end]), nil
	})
}

// --- numeric filters ---

func numericFilter(symbol string, fn func(a, b float64) float64) ast.NodeType {
	return simpleFilter(symbol, 1, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a, b := operand.Float64(), arg(args, 0).Float64()
		r := fn(a, b)
		if operand.Kind() == value.KindInt && arg(args, 0).Kind() == value.KindInt && r == float64(int64(r)) {
			return value.Int(int64(r)), nil
		}
		return value.Float(r), nil
	})
}

func absFilter() ast.NodeType {
	return simpleFilter("abs", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		if operand.Kind() == value.KindInt {
			n := operand.AsInt()
			if n < 0 {
				n = -n
			}
			return value.Int(n), nil
		}
		f := operand.Float64()
		if f < 0 {
			f = -f
		}
		return value.Float(f), nil
	})
}

func ceilFilter() ast.NodeType {
	return simpleFilter("ceil", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.Int(int64(ceilFloat(operand.Float64()))), nil
	})
}

func floorFilter() ast.NodeType {
	return simpleFilter("floor", 0, 0, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		return value.Int(int64(floorFloat(operand.Float64()))), nil
	})
}

func roundFilter() ast.NodeType {
	return simpleFilter("round", 0, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		if len(args) == 0 {
			return value.Int(int64(floorFloat(operand.Float64() + 0.5))), nil
		}
		prec := int(arg(args, 0).AsInt())
		mult := 1.0
		for i := 0; i < prec; i++ {
			mult *= 10
		}
		return value.Float(floorFloat(operand.Float64()*mult+0.5) / mult), nil
	})
}

func ceilFloat(f float64) float64 {
	i := floorFloat(f)
	if i < f {
		return i + 1
	}
	return i
}

func floorFloat(f float64) float64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}

func defaultFilter() ast.NodeType {
	return simpleFilter("default", 1, 1, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		if !operand.Truthy(value.Permissive) {
			return arg(args, 0), nil
		}
		return operand, nil
	})
}

func pluralizeFilter() ast.NodeType {
	return simpleFilter("pluralize", 2, 2, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		if operand.AsInt() == 1 {
			return arg(args, 0), nil
		}
		return arg(args, 1), nil
	})
}

// --- dot filters ---

func sizeDotFilter() ast.NodeType {
	return ast.NewDotFilter("size", ast.SchemeFull, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		if n, ok := rc.Resolver().Length(operand); ok {
			return value.Int(int64(n)), nil
		}
		return value.Int(0), nil
	})
}

func firstDotFilter() ast.NodeType {
	return ast.NewDotFilter("first", ast.SchemeFull, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
		a := operand.AsArray()
		if len(a) == 0 {
			return value.Nil(), nil
		}
		return a[0], nil
	})
}

// Filters returns every standard-dialect filter and dot-filter.
func Filters() []ast.NodeType {
	return []ast.NodeType{
		upcaseFilter(), downcaseFilter(), capitalizeFilter(),
		stripFilter(), lstripFilter(), rstripFilter(),
		replaceFilter(), removeFilter(), appendFilter(), prependFilter(),
		splitFilter(), joinFilter(),
		escapeFilter(), urlEncodeFilter(), urlDecodeFilter(),
		truncateFilter(), truncatewordsFilter(),
		sizeFilter(), firstFilter(), lastFilter(), reverseFilter(),
		sortFilter(), uniqFilter(), sliceFilter(),
		numericFilter("plus", func(a, b float64) float64 { return a + b }),
		numericFilter("minus", func(a, b float64) float64 { return a - b }),
		numericFilter("times", func(a, b float64) float64 { return a * b }),
		numericFilter("divided_by", func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		}),
		numericFilter("modulo", func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return modFloat(a, b)
		}),
		absFilter(), ceilFilter(), floorFilter(), roundFilter(),
		defaultFilter(), pluralizeFilter(),
		sizeDotFilter(), firstDotFilter(),
	}
}
