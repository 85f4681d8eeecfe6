package parser

import (
	"log/slog"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/lexer"
)

// tok is one buffered lexer event. The parser consumes a fully
// tokenized slice rather than being driven inline from lexer
// callbacks, and builds the tree by recursive descent over that slice
// (there is no explicit node stack), which keeps the expression/tag
// logic straightforward to read and to extend per-dialect.
type tok struct {
	kind lexer.Token
	text string
	ival int64
	fval float64
	pos  ast.Position
}

// tokenize runs the lexer over src and buffers every callback as a
// tok. It special-cases the `{% liquid %}` wrapper (its own
// Start/EndControlBlock is consumed by EnterLiquidLine, and each
// subsequent line becomes an ordinary Start/EndControlBlock pair
// carrying one statement) and, via ctx, any tag registered with
// HaltsLexing (`raw`): once that block's own EndControlBlock is
// buffered, the lexer switches to raw-text scanning until the
// matching `{% endraw %}`. ctx may be nil (e.g. ParseArgument, which
// never spans a control block), in which case no tag halts lexing.
func tokenize(src, file string, ctx *ast.Context, logger *slog.Logger) ([]tok, error) {
	var toks []tok
	var l *lexer.Lexer
	awaitingFirstIdent := false
	haltsNext := false

	pos := func() ast.Position {
		line, col := l.Position()
		return ast.Position{Line: line, Column: col}
	}

	cb := lexer.Callbacks{
		Literal: func(s string) { toks = append(toks, tok{kind: lexer.TokLiteral, text: s, pos: pos()}) },
		Identifier: func(s string) {
			if awaitingFirstIdent && s == "liquid" {
				awaitingFirstIdent = false
				// Drop the wrapper's StartControlBlock; EnterLiquidLine
				// emits the first line's own.
				toks = toks[:len(toks)-1]
				l.EnterLiquidLine()
				return
			}
			if awaitingFirstIdent && ctx != nil {
				if tt, ok := ctx.Tag(s); ok && tt.HaltsLexing() {
					haltsNext = true
				}
			}
			awaitingFirstIdent = false
			toks = append(toks, tok{kind: lexer.TokIdentifier, text: s, pos: pos()})
		},
		String:     func(s string) { toks = append(toks, tok{kind: lexer.TokString, text: s, pos: pos()}) },
		Integer:    func(i int64) { toks = append(toks, tok{kind: lexer.TokInteger, ival: i, pos: pos()}) },
		Floating:   func(f float64) { toks = append(toks, tok{kind: lexer.TokFloating, fval: f, pos: pos()}) },
		Dot:        func() { toks = append(toks, tok{kind: lexer.TokDot, pos: pos()}) },
		Comma:      func() { toks = append(toks, tok{kind: lexer.TokComma, pos: pos()}) },
		Colon:      func() { toks = append(toks, tok{kind: lexer.TokColon, pos: pos()}) },
		OpenParen:  func() { toks = append(toks, tok{kind: lexer.TokOpenParen, pos: pos()}) },
		CloseParen: func() { toks = append(toks, tok{kind: lexer.TokCloseParen, pos: pos()}) },
		StartDeref: func() { toks = append(toks, tok{kind: lexer.TokStartDeref, pos: pos()}) },
		EndDeref:   func() { toks = append(toks, tok{kind: lexer.TokEndDeref, pos: pos()}) },
		StartOutputBlock: func(trim bool) {
			toks = append(toks, tok{kind: lexer.TokStartOutputBlock, pos: pos()})
		},
		EndOutputBlock: func(trim bool) {
			toks = append(toks, tok{kind: lexer.TokEndOutputBlock, pos: pos()})
		},
		StartControlBlock: func(trim bool) {
			toks = append(toks, tok{kind: lexer.TokStartControlBlock, pos: pos()})
			awaitingFirstIdent = true
		},
		EndControlBlock: func(trim bool) {
			toks = append(toks, tok{kind: lexer.TokEndControlBlock, pos: pos()})
			if haltsNext {
				haltsNext = false
				l.EnterRaw()
			}
		},
		Newline: func() {},
	}

	opts := []lexer.Option{lexer.WithFile(file)}
	if logger != nil {
		opts = append(opts, lexer.WithLogger(logger))
	}
	l = lexer.New(src, cb, opts...)
	if err := l.Run(); err != nil {
		return nil, err
	}
	return toks, nil
}
