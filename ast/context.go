package ast

import (
	"fmt"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/mod/semver"

	"github.com/adamharrison/liquid-go/value"
)

// Context is the registry a dialect populates and the parser/renderer
// consult by name: tags, operators, filters, dot-filters, and named
// literals (`true`, `false`, `nil`, ...), guarded by a single
// reader/writer lock the way the teacher's decorator registry guards
// its own name tables, with the same check-before-insert discipline
// (spec.md §1, §6).
type Context struct {
	mu         sync.RWMutex
	tags       map[string]TagType
	operators  map[string]OperatorType
	filters    map[string]NodeType
	dotFilters map[string]NodeType
	literals   map[string]value.Value
	dialects   map[string]string
}

// NewContext builds an empty registry. Callers normally get one
// pre-populated by a dialect constructor (dialect.Standard()) rather
// than calling this directly.
func NewContext() *Context {
	return &Context{
		tags:       map[string]TagType{},
		operators:  map[string]OperatorType{},
		filters:    map[string]NodeType{},
		dotFilters: map[string]NodeType{},
		literals:   map[string]value.Value{},
		dialects:   map[string]string{},
	}
}

func collision(kind, symbol string) error {
	return fmt.Errorf("ast: %s %q already registered", kind, symbol)
}

// RegisterTag installs t under its own Symbol(), failing if a tag of
// that name is already registered.
func (c *Context) RegisterTag(t TagType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tags[t.Symbol()]; exists {
		return collision("tag", t.Symbol())
	}
	c.tags[t.Symbol()] = t
	return nil
}

// RegisterOperator installs op under its own Symbol().
func (c *Context) RegisterOperator(op OperatorType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.operators[op.Symbol()]; exists {
		return collision("operator", op.Symbol())
	}
	c.operators[op.Symbol()] = op
	return nil
}

// RegisterFilter installs f (built by NewFilter) under its own Symbol().
func (c *Context) RegisterFilter(f NodeType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.filters[f.Symbol()]; exists {
		return collision("filter", f.Symbol())
	}
	c.filters[f.Symbol()] = f
	return nil
}

// RegisterDotFilter installs f (built by NewDotFilter) under its own
// Symbol(). Dot-filters and ordinary filters share no namespace: a
// `.size` dot-filter and a `| size` filter may coexist.
func (c *Context) RegisterDotFilter(f NodeType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.dotFilters[f.Symbol()]; exists {
		return collision("dot-filter", f.Symbol())
	}
	c.dotFilters[f.Symbol()] = f
	return nil
}

// RegisterLiteral installs a named constant (`nil`, `true`, `false`,
// `empty`, `blank`, ...) the parser folds directly into a leaf.
func (c *Context) RegisterLiteral(symbol string, v value.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.literals[symbol]; exists {
		return collision("literal", symbol)
	}
	c.literals[symbol] = v
	return nil
}

// RegisterDialect records that this Context implements the named
// dialect extension at the given semantic version, validated with the
// same x/mod/semver rules the teacher uses for its own compatibility
// checks (spec.md §6).
func (c *Context) RegisterDialect(name, version string) error {
	v := version
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("ast: invalid dialect version %q for %q", version, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialects[name] = v
	return nil
}

// DialectVersion reports the registered version for name, if any.
func (c *Context) DialectVersion(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.dialects[name]
	return v, ok
}

func (c *Context) Tag(symbol string) (TagType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tags[symbol]
	return t, ok
}

func (c *Context) Operator(symbol string) (OperatorType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.operators[symbol]
	return o, ok
}

func (c *Context) Filter(symbol string) (NodeType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.filters[symbol]
	return f, ok
}

func (c *Context) DotFilter(symbol string) (NodeType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.dotFilters[symbol]
	return f, ok
}

func (c *Context) Literal(symbol string) (value.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.literals[symbol]
	return v, ok
}

// TagNames, OperatorNames, and FilterNames list every registered
// symbol in their respective table (FilterNames includes dot-filters), the candidate pool the
// parser's "did you mean" suggestion ranks against.
func (c *Context) TagNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tags))
	for k := range c.tags {
		names = append(names, k)
	}
	return names
}

func (c *Context) OperatorNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.operators))
	for k := range c.operators {
		names = append(names, k)
	}
	return names
}

func (c *Context) FilterNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.filters)+len(c.dotFilters))
	for k := range c.filters {
		names = append(names, k)
	}
	for k := range c.dotFilters {
		names = append(names, k)
	}
	return names
}

// Suggest ranks candidates against name using fuzzy string matching and
// returns the best match, if any scored within tolerance (SPEC_FULL.md
// §6, grounded on the teacher's planner suggestion lookup).
func Suggest(candidates []string, name string) (string, bool) {
	if name == "" || len(candidates) == 0 {
		return "", false
	}
	matches := fuzzy.RankFindFold(name, candidates)
	if len(matches) == 0 {
		return "", false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Distance < best.Distance {
			best = m
		}
	}
	return best.Target, true
}
