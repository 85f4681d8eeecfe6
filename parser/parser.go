// Package parser implements the parser of spec.md §4.2: it buffers
// package lexer's token stream into a slice, builds the tree from it by
// recursive descent (it keeps no explicit node stack), and emits the
// typed ast.Node tree package render/optimize/compile all share.
package parser

import (
	"strings"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/lexer"
	"github.com/adamharrison/liquid-go/liquiderr"
	"github.com/adamharrison/liquid-go/value"
)

// Parser is bound to a single ast.Context and reused across templates;
// it holds no per-parse state of its own (that lives in parseState).
type Parser struct {
	ctx *ast.Context
	cfg Config
}

// New builds a Parser bound to ctx.
func New(ctx *ast.Context, opts ...Option) *Parser {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Parser{ctx: ctx, cfg: cfg}
}

// parseState is the mutable state of a single parse: the token slice,
// cursor, suppression flag, pushdown depth, and collected
// warnings/errors (spec.md §4.2, §7's suppression policy).
type parseState struct {
	p          *Parser
	toks       []tok
	i          int
	file       string
	depth      int
	suppressed bool
	errs       []error
	warnings   []string
}

func (ps *parseState) peek() tok {
	if ps.i >= len(ps.toks) {
		return tok{kind: -1}
	}
	return ps.toks[ps.i]
}

func (ps *parseState) peekAt(off int) tok {
	if ps.i+off >= len(ps.toks) {
		return tok{kind: -1}
	}
	return ps.toks[ps.i+off]
}

func (ps *parseState) next() tok {
	t := ps.peek()
	ps.i++
	return t
}

func (ps *parseState) recordError(e error) {
	if ps.suppressed {
		return
	}
	ps.errs = append(ps.errs, e)
	ps.suppressed = true
}

func (ps *parseState) warn(msg string) { ps.warnings = append(ps.warnings, msg) }

// skipToEndControlBlock discards tokens after an unrecoverable parse
// error inside a control block, looking for the block's close so the
// parser can resynchronize on the next top-level construct.
func (ps *parseState) skipToEndControlBlock() {
	for ps.peek().kind != lexer.TokEndControlBlock && ps.peek().kind != -1 {
		ps.i++
	}
	if ps.peek().kind == lexer.TokEndControlBlock {
		ps.i++
	}
}

// ParseTemplate parses a full document (spec.md §4.2's
// `parseTemplate`). Returns the AST root (always a Concatenation),
// any non-fatal parse errors collected under suppression, and a fatal
// error when lexing failed or an expression could not be parsed (for
// example an unbalanced group, an unknown operator, or an unknown
// filter under strict filters).
func (p *Parser) ParseTemplate(src, file string) (*ast.Node, []error, error) {
	toks, err := tokenize(src, file, p.ctx, p.cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	ps := &parseState{p: p, toks: toks, file: file}
	root, _, err := ps.parseSequence(nil)
	if err != nil {
		return root, ps.errs, err
	}
	return root, ps.errs, nil
}

// ParseArgument parses a single expression equivalent to the inside
// of `{{ … }}` (spec.md §4.2's `parseArgument`).
func (p *Parser) ParseArgument(src string) (*ast.Node, error) {
	toks, err := tokenize("{{"+src+"}}", "<argument>", nil, p.cfg.Logger)
	if err != nil {
		return nil, err
	}
	ps := &parseState{p: p, toks: toks, file: "<argument>"}
	if ps.peek().kind != lexer.TokStartOutputBlock {
		return nil, liquiderr.New(liquiderr.UnexpectedOperand, ps.file, 0, 0, src)
	}
	ps.i++
	expr, err := ps.parseExpression(0, nil)
	if err != nil {
		return nil, err
	}
	if ps.peek().kind != lexer.TokEndOutputBlock {
		return nil, liquiderr.New(liquiderr.UnexpectedOperand, ps.file, 0, 0, src)
	}
	return expr, nil
}

// ParseAppropriate sniffs src for `{{`/`{%` and routes to
// ParseArgument or ParseTemplate (spec.md §4.2's `parseAppropriate`).
func (p *Parser) ParseAppropriate(src string) (*ast.Node, []error, error) {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "{{") {
		inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "{{"), "}}")
		n, err := p.ParseArgument(inner)
		return n, nil, err
	}
	return p.ParseTemplate(src, "<appropriate>")
}

// parseSequence builds a Concatenation from the token stream until
// EOF or a control block whose tag symbol is in stopSet, which is
// left unconsumed for the caller (the enclosing tag) to handle as its
// intermediate or closing marker.
func (ps *parseState) parseSequence(stopSet map[string]bool) (*ast.Node, string, error) {
	ps.depth++
	defer func() { ps.depth-- }()
	if ps.depth > ps.p.cfg.MaxDepth {
		return nil, "", liquiderr.New(liquiderr.ParseDepthExceeded, ps.file, ps.peek().pos.Line, ps.peek().pos.Column)
	}

	var children []*ast.Node
	for {
		t := ps.peek()
		switch t.kind {
		case -1:
			return ast.Internal(ast.Concatenation, t.pos, children...), "", nil
		case lexer.TokLiteral:
			ps.i++
			children = append(children, ast.Leaf(value.String(t.text), t.pos))
		case lexer.TokStartOutputBlock:
			ps.i++
			expr, err := ps.parseExpression(0, nil)
			if err != nil {
				return ast.Internal(ast.Concatenation, t.pos, children...), "", err
			}
			if ps.peek().kind == lexer.TokEndOutputBlock {
				ps.i++
			}
			children = append(children, ast.Internal(ast.Output, t.pos, expr))
		case lexer.TokStartControlBlock:
			sym := ps.peekAt(1).text
			if stopSet != nil && stopSet[sym] {
				return ast.Internal(ast.Concatenation, t.pos, children...), sym, nil
			}
			node, err := ps.parseControlBlock()
			if err != nil {
				return ast.Internal(ast.Concatenation, t.pos, children...), "", err
			}
			children = append(children, node)
		default:
			// Stray punctuation at top level; skip defensively.
			ps.i++
		}
	}
}

// parseControlBlock consumes one `{% tag … %}` construct, recursing
// for any body/intermediate structure the tag declares (spec.md
// §4.2's tag composition, invariant 3).
func (ps *parseState) parseControlBlock() (*ast.Node, error) {
	ps.i++ // StartControlBlock
	symTok := ps.next()
	pos := symTok.pos

	tagType, ok := ps.p.ctx.Tag(symTok.text)
	if !ok {
		suggestion, _ := ast.Suggest(ps.p.ctx.TagNames(), symTok.text)
		e := liquiderr.New(liquiderr.UnknownTag, ps.file, pos.Line, pos.Column, symTok.text)
		if suggestion != "" {
			e = e.WithSuggestion(suggestion)
		}
		ps.recordError(e)
		ps.skipToEndControlBlock()
		return ast.Leaf(value.Nil(), pos), nil
	}
	ps.suppressed = false

	argsNode, err := ps.parseArguments(symTok.text, tagType, pos)
	if err != nil {
		return nil, err
	}
	if ps.peek().kind == lexer.TokEndControlBlock {
		ps.i++
	}

	children := []*ast.Node{argsNode}
	if tagType.ClosesWith() == "" {
		return ast.Internal(tagType, pos, children...), nil
	}

	stopSet := map[string]bool{tagType.ClosesWith(): true}
	for _, im := range tagType.Intermediates() {
		stopSet[im] = true
	}
	for {
		body, stopSym, err := ps.parseSequence(stopSet)
		children = append(children, body)
		if err != nil {
			return ast.Internal(tagType, pos, children...), err
		}
		if stopSym == tagType.ClosesWith() {
			ps.consumeCloseBlock()
			break
		}
		if stopSym == "" {
			ps.recordError(liquiderr.New(liquiderr.UnexpectedEnd, ps.file, pos.Line, pos.Column, symTok.text))
			break
		}
		marker, err := ps.parseIntermediateBlock(stopSym)
		if err != nil {
			return ast.Internal(tagType, pos, children...), err
		}
		children = append(children, marker)
	}
	return ast.Internal(tagType, pos, children...), nil
}

func (ps *parseState) consumeCloseBlock() {
	ps.i++ // StartControlBlock
	ps.i++ // identifier (the end<tag> symbol)
	ps.skipToEndControlBlock()
}

func (ps *parseState) parseIntermediateBlock(sym string) (*ast.Node, error) {
	ps.i++ // StartControlBlock
	symTok := ps.next()
	pos := symTok.pos
	markerType, ok := ps.p.ctx.Tag(sym)
	if !ok {
		ps.skipToEndControlBlock()
		return ast.Leaf(value.Nil(), pos), nil
	}
	argsNode, err := ps.parseArguments(sym, markerType, pos)
	if err != nil {
		return nil, err
	}
	if ps.peek().kind == lexer.TokEndControlBlock {
		ps.i++
	}
	return ast.Internal(markerType, pos, argsNode), nil
}

// parseArguments builds a tag's argument-list node. `for` and
// `assign` have bespoke grammars (loop-variable/`in`, target/`=`);
// every other tag takes a comma-separated list of expressions,
// keyword args (`name: value`), and qualifiers.
func (ps *parseState) parseArguments(sym string, tagType ast.TagType, pos ast.Position) (*ast.Node, error) {
	switch sym {
	case "for":
		return ps.parseForArguments(tagType, pos)
	case "assign":
		return ps.parseAssignArguments(pos)
	case "increment", "decrement", "capture":
		if ps.peek().kind != lexer.TokIdentifier {
			return ast.Internal(ast.Arguments, pos), nil
		}
		nameTok := ps.next()
		return ast.Internal(ast.Arguments, pos, ast.Leaf(value.String(nameTok.text), nameTok.pos)), nil
	case "break", "continue", "else", "raw":
		return ast.Internal(ast.Arguments, pos), nil
	}
	return ps.parseGenericArguments(tagType, pos)
}

func (ps *parseState) parseForArguments(tagType ast.TagType, pos ast.Position) (*ast.Node, error) {
	if ps.peek().kind != lexer.TokIdentifier {
		return nil, liquiderr.New(liquiderr.InvalidArguments, ps.file, pos.Line, pos.Column, "for")
	}
	varTok := ps.next()
	if ps.peek().kind != lexer.TokIdentifier || ps.peek().text != "in" {
		return nil, liquiderr.New(liquiderr.InvalidArguments, ps.file, pos.Line, pos.Column, "for")
	}
	ps.i++ // "in"
	coll, err := ps.parseExpression(0, tagType)
	if err != nil {
		return nil, err
	}
	children := []*ast.Node{ast.Leaf(value.String(varTok.text), varTok.pos), coll}
	children = append(children, ps.parseQualifiers(tagType)...)
	return ast.Internal(ast.Arguments, pos, children...), nil
}

func (ps *parseState) parseAssignArguments(pos ast.Position) (*ast.Node, error) {
	target, err := ps.parseVariableChain()
	if err != nil {
		return nil, err
	}
	if ps.peek().kind != lexer.TokIdentifier || ps.peek().text != "=" {
		return nil, liquiderr.New(liquiderr.InvalidArguments, ps.file, pos.Line, pos.Column, "assign")
	}
	ps.i++ // "="
	val, err := ps.parseExpression(0, nil)
	if err != nil {
		return nil, err
	}
	return ast.Internal(ast.Arguments, pos, target, val), nil
}

func (ps *parseState) parseQualifiers(tagType ast.TagType) []*ast.Node {
	var out []*ast.Node
	for ps.peek().kind == lexer.TokIdentifier && isQualifier(tagType, ps.peek().text) {
		t := ps.next()
		if ps.peek().kind == lexer.TokColon {
			ps.i++
			v, err := ps.parseExpression(0, tagType)
			if err != nil {
				break
			}
			out = append(out, ast.Internal(ast.NewQualifier(t.text), t.pos, v))
			continue
		}
		out = append(out, ast.Internal(ast.NewQualifier(t.text), t.pos))
	}
	return out
}

func isQualifier(tagType ast.TagType, name string) bool {
	for _, q := range tagType.Qualifiers() {
		if q == name {
			return true
		}
	}
	return false
}

func (ps *parseState) parseGenericArguments(tagType ast.TagType, pos ast.Position) (*ast.Node, error) {
	var children []*ast.Node
	for {
		if ps.peek().kind == lexer.TokEndControlBlock || ps.peek().kind == -1 {
			break
		}
		if ps.peek().kind == lexer.TokIdentifier && isQualifier(tagType, ps.peek().text) {
			children = append(children, ps.parseQualifiers(tagType)...)
			continue
		}
		if ps.peek().kind == lexer.TokIdentifier && ps.peekAt(1).kind == lexer.TokColon {
			nameTok := ps.next()
			ps.i++ // colon
			v, err := ps.parseExpression(0, tagType)
			if err != nil {
				return nil, err
			}
			children = append(children, ast.Internal(ast.NewQualifier(nameTok.text), nameTok.pos, v))
		} else {
			expr, err := ps.parseExpression(0, tagType)
			if err != nil {
				return nil, err
			}
			children = append(children, expr)
		}
		if ps.peek().kind == lexer.TokComma {
			ps.i++
			continue
		}
		break
	}
	return ast.Internal(ast.Arguments, pos, children...), nil
}

// parseExpression is the precedence-climbing expression parser:
// operator precedence is realized in the resulting tree shape exactly
// as spec.md §4.2 describes (the lower-priority operator ends up as
// the root), implemented here via recursive-descent binding-power
// comparison rather than an explicit rotation on a value stack — the
// two produce identical trees for left-associative binary operators.
// tagType is the enclosing tag's declared qualifier set, consulted only
// to recognize a trailing identifier that legally terminates the
// expression (a bare qualifier like `reversed`, or the start of a
// `name:` keyword argument) rather than a malformed operator; pass nil
// from contexts where no qualifier/keyword-argument can follow (output
// expressions, group/array/filter-argument interiors, dotted index
// expressions).
func (ps *parseState) parseExpression(minPriority int, tagType ast.TagType) (*ast.Node, error) {
	left, err := ps.parsePrimary()
	if err != nil {
		return nil, err
	}
	for ps.peek().kind == lexer.TokIdentifier && ps.peek().text == "|" {
		ps.i++
		left, err = ps.parseFilterApplication(left)
		if err != nil {
			return nil, err
		}
	}
	for ps.peek().kind == lexer.TokIdentifier {
		t := ps.peek()
		op, ok := ps.p.ctx.Operator(t.text)
		if ok {
			if op.Priority() < minPriority {
				break
			}
		} else {
			// A trailing identifier that isn't a registered operator is
			// only legal here if it starts the next keyword argument
			// (`name:`) or is one of the enclosing tag's bare
			// qualifiers (`reversed`) — both cases the caller's own
			// argument loop picks back up. Anything else is a malformed
			// operator (spec.md §4.2).
			if ps.peekAt(1).kind == lexer.TokColon || (tagType != nil && isQualifier(tagType, t.text)) {
				break
			}
			code := liquiderr.UnknownOperator
			if tagType != nil {
				code = liquiderr.UnknownOperatorOrQual
			}
			e := liquiderr.New(code, ps.file, t.pos.Line, t.pos.Column, t.text)
			if suggestion, ok := ast.Suggest(ps.p.ctx.OperatorNames(), t.text); ok {
				e = e.WithSuggestion(suggestion)
			}
			return nil, e
		}
		opTok := ps.next()
		right, err := ps.parseExpression(op.Priority()+1, tagType)
		if err != nil {
			return nil, err
		}
		left = ast.Internal(op, opTok.pos, left, right)
	}
	return left, nil
}

func (ps *parseState) parsePrimary() (*ast.Node, error) {
	t := ps.peek()
	switch t.kind {
	case lexer.TokInteger:
		ps.i++
		return ast.Leaf(value.Int(t.ival), t.pos), nil
	case lexer.TokFloating:
		ps.i++
		return ast.Leaf(value.Float(t.fval), t.pos), nil
	case lexer.TokString:
		ps.i++
		return ast.Leaf(value.String(t.text), t.pos), nil
	case lexer.TokOpenParen:
		if !ps.p.cfg.Grouping {
			break
		}
		ps.i++
		inner, err := ps.parseExpression(0, nil)
		if err != nil {
			return nil, err
		}
		if ps.peek().kind != lexer.TokCloseParen {
			return nil, liquiderr.New(liquiderr.UnbalancedGroup, ps.file, t.pos.Line, t.pos.Column)
		}
		ps.i++
		return ast.Internal(ast.Group, t.pos, inner), nil
	case lexer.TokStartDeref:
		if !ps.p.cfg.ArrayLiterals {
			break
		}
		ps.i++
		var elems []*ast.Node
		for ps.peek().kind != lexer.TokEndDeref && ps.peek().kind != -1 {
			e, err := ps.parseExpression(0, nil)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if ps.peek().kind == lexer.TokComma {
				ps.i++
			}
		}
		if ps.peek().kind == lexer.TokEndDeref {
			ps.i++
		}
		return ast.Internal(ast.ArrayLiteral, t.pos, elems...), nil
	case lexer.TokIdentifier:
		if lit, ok := ps.p.ctx.Literal(t.text); ok {
			ps.i++
			return ast.Leaf(lit, t.pos), nil
		}
		if op, ok := ps.p.ctx.Operator(t.text); ok && op.Arity() == ast.Unary && op.Fixness() == ast.Prefix {
			ps.i++
			operand, err := ps.parseExpression(op.Priority()+1, nil)
			if err != nil {
				return nil, err
			}
			return ast.Internal(op, t.pos, operand), nil
		}
		return ps.parseVariableChain()
	}
	ps.recordError(liquiderr.New(liquiderr.UnexpectedOperand, ps.file, t.pos.Line, t.pos.Column, t.text))
	ps.i++
	return ast.Leaf(value.Nil(), t.pos), nil
}

// parseVariableChain builds a Variable node: a root-name leaf followed
// by dereference keys (`.member`, `[expr]`) and dot-filters
// (`.upcase`), per spec.md §3 invariant 4.
func (ps *parseState) parseVariableChain() (*ast.Node, error) {
	rootTok := ps.next()
	children := []*ast.Node{ast.Leaf(value.String(rootTok.text), rootTok.pos)}
	for {
		switch ps.peek().kind {
		case lexer.TokDot:
			ps.i++
			keyTok := ps.next()
			if df, ok := ps.p.ctx.DotFilter(keyTok.text); ok {
				children = append(children, ast.Internal(df, keyTok.pos))
				continue
			}
			children = append(children, ast.Leaf(value.String(keyTok.text), keyTok.pos))
		case lexer.TokStartDeref:
			ps.i++
			key, err := ps.parseExpression(0, nil)
			if err != nil {
				return nil, err
			}
			if ps.peek().kind == lexer.TokEndDeref {
				ps.i++
			}
			children = append(children, ast.Internal(ast.GroupDeref, key.Pos, key))
		default:
			return ast.Internal(ast.Variable, rootTok.pos, children...), nil
		}
	}
}

func (ps *parseState) parseFilterApplication(operand *ast.Node) (*ast.Node, error) {
	if ps.peek().kind != lexer.TokIdentifier {
		return operand, liquiderr.New(liquiderr.UnknownFilter, ps.file, ps.peek().pos.Line, ps.peek().pos.Column, "")
	}
	nameTok := ps.next()
	filterType, ok := ps.p.ctx.Filter(nameTok.text)
	if !ok {
		if ps.p.cfg.StrictFilters {
			suggestion, _ := ast.Suggest(ps.p.ctx.FilterNames(), nameTok.text)
			e := liquiderr.New(liquiderr.UnknownFilter, ps.file, nameTok.pos.Line, nameTok.pos.Column, nameTok.text)
			if suggestion != "" {
				e = e.WithSuggestion(suggestion)
			}
			return nil, e
		} else {
			ps.warn("unknown filter " + nameTok.text)
		}
		name := nameTok.text
		filterType = ast.NewFilter(name, 0, -1, ast.SchemeNone, func(operand value.Value, args []value.Value, rc ast.RenderContext) (value.Value, error) {
			rc.Warn("unknown filter %q", name)
			return value.Nil(), nil
		})
	}
	args, err := ps.parseFilterArgs()
	if err != nil {
		return nil, err
	}
	return ast.Internal(filterType, nameTok.pos, operand, args), nil
}

func (ps *parseState) parseFilterArgs() (*ast.Node, error) {
	pos := ps.peek().pos
	var children []*ast.Node
	if ps.peek().kind != lexer.TokColon {
		return ast.Internal(ast.Arguments, pos), nil
	}
	ps.i++ // colon
	for {
		if ps.peek().kind == lexer.TokIdentifier && ps.peekAt(1).kind == lexer.TokColon {
			nameTok := ps.next()
			ps.i++
			v, err := ps.parseExpression(0, nil)
			if err != nil {
				return nil, err
			}
			children = append(children, ast.Internal(ast.NewQualifier(nameTok.text), nameTok.pos, v))
		} else {
			v, err := ps.parseExpression(0, nil)
			if err != nil {
				return nil, err
			}
			children = append(children, v)
		}
		if ps.peek().kind == lexer.TokComma {
			ps.i++
			continue
		}
		break
	}
	return ast.Internal(ast.Arguments, pos, children...), nil
}
