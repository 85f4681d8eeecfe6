// Package lexer implements the streaming, restartable UTF-8 tokenizer
// described by spec.md §4.1: a four-state machine (INITIAL, OUTPUT,
// CONTROL, RAW) plus the liquid-line pseudo-mode entered by
// `{% liquid %}`. Output is a sequence of semantic callbacks, not a
// token vector, matching the source's own design.
package lexer

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/adamharrison/liquid-go/liquiderr"
)

// Callbacks is the set of semantic events a Lexer drives as it scans.
// Any field left nil is simply never invoked; Run wires every
// production field in practice (package parser supplies the full set).
type Callbacks struct {
	Literal           func(s string)
	Identifier        func(s string)
	String            func(s string)
	Integer           func(i int64)
	Floating          func(f float64)
	Dot               func()
	Comma             func()
	Colon             func()
	OpenParen         func()
	CloseParen        func()
	StartDeref        func()
	EndDeref          func()
	StartOutputBlock  func(trim bool)
	EndOutputBlock    func(trim bool)
	StartControlBlock func(trim bool)
	EndControlBlock   func(trim bool)
	Newline           func()
}

// Option configures a Lexer at construction (functional-options, the
// idiom this module uses everywhere a component has more than a
// couple of optional knobs; see the parser/render Config types).
type Option func(*Lexer)

// WithLogger attaches a debug logger; nil (the default) disables
// logging entirely rather than writing to a discard sink.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lexer) { l.logger = logger }
}

// WithFile sets the source name reported in errors.
func WithFile(file string) Option {
	return func(l *Lexer) { l.file = file }
}

// Lexer holds the scanning state for one source document. It is not
// safe for concurrent use; create one per parse.
type Lexer struct {
	src  []byte
	pos  int
	line int
	col  int
	file string

	mode Mode

	cb     Callbacks
	logger *slog.Logger

	// trimPending is set when the block that just closed used a
	// right-trim marker (`-}}`/`-%}`); the next literal run strips its
	// leading whitespace.
	trimPending bool
}

// New builds a Lexer over src. Run drives it to completion.
func New(src string, cb Callbacks, opts ...Option) *Lexer {
	l := &Lexer{src: []byte(src), line: 1, col: 1, cb: cb}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Lexer) errorf(code liquiderr.Code, args ...string) error {
	return liquiderr.New(code, l.file, l.line, l.col, args...)
}

func (l *Lexer) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

func (l *Lexer) peekByte() byte {
	if l.eof() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// Run scans the entire source, driving cb until EOF or a lexer error.
// The only error this returns is UNEXPECTED_END (spec.md §4.1).
func (l *Lexer) Run() error {
	for !l.eof() {
		var err error
		switch l.mode {
		case ModeInitial:
			err = l.scanInitial()
		case ModeOutput:
			err = l.scanExpr(TokEndOutputBlock)
		case ModeControl, ModeLiquidLine:
			err = l.scanExpr(TokEndControlBlock)
		case ModeRaw:
			err = l.scanRaw()
		}
		if err != nil {
			return err
		}
	}
	if l.mode != ModeInitial {
		return l.errorf(liquiderr.UnexpectedEnd)
	}
	return nil
}

// scanInitial consumes literal text until a `{{` or `{%` delimiter,
// applying the pending right-trim from the previous block and the
// incoming block's own left-trim marker.
func (l *Lexer) scanInitial() error {
	start := l.pos
	for !l.eof() {
		if l.peekByte() == '{' && (l.peekByteAt(1) == '{' || l.peekByteAt(1) == '%') {
			break
		}
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if l.trimPending {
		text = strings.TrimLeftFunc(text, isTrimSpace)
		l.trimPending = false
	}

	if l.eof() {
		if text != "" && l.cb.Literal != nil {
			l.cb.Literal(text)
		}
		return nil
	}

	open := l.peekByteAt(1) // '{' or '%'
	// Peek ahead for the trim marker without consuming yet, so we can
	// right-trim `text` before flushing it.
	trimLeft := l.peekByteAt(2) == '-'
	if trimLeft {
		text = strings.TrimRightFunc(text, isTrimSpace)
	}
	if text != "" && l.cb.Literal != nil {
		l.cb.Literal(text)
	}

	l.advance() // '{'
	l.advance() // '{' or '%'
	if trimLeft {
		l.advance() // '-'
	}
	if open == '{' {
		l.mode = ModeOutput
		if l.cb.StartOutputBlock != nil {
			l.cb.StartOutputBlock(trimLeft)
		}
	} else {
		l.mode = ModeControl
		if l.cb.StartControlBlock != nil {
			l.cb.StartControlBlock(trimLeft)
		}
	}
	return nil
}

// scanExpr tokenizes the inside of `{{ … }}` or `{% … %}` (and, in
// ModeLiquidLine, one line at a time) until the matching close
// delimiter, which it emits via closeTok.
func (l *Lexer) scanExpr(closeTok Token) error {
	for {
		if l.eof() {
			return l.errorf(liquiderr.UnexpectedEnd)
		}
		ch := l.peekByte()

		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
			continue
		case ch == '\n':
			l.advance()
			if l.mode == ModeLiquidLine {
				// One statement per line: treat the newline as the
				// implicit close/open of successive pseudo control
				// blocks (spec.md §4.1).
				if l.cb.EndControlBlock != nil {
					l.cb.EndControlBlock(false)
				}
				if l.peekIsLiquidLineEnd() {
					return l.closeLiquidLine()
				}
				if l.cb.StartControlBlock != nil {
					l.cb.StartControlBlock(false)
				}
				continue
			}
			if l.cb.Newline != nil {
				l.cb.Newline()
			}
			continue
		}

		if closeTok == TokEndOutputBlock && ch == '}' && l.peekByteAt(1) == '}' {
			return l.closeBlock(false)
		}
		if ch == '}' && l.peekByteAt(1) == '}' && l.mode != ModeLiquidLine {
			return l.closeBlock(false)
		}
		if ch == '-' && l.peekByteAt(1) == '}' && l.peekByteAt(2) == '}' {
			return l.closeBlock(true)
		}
		if ch == '%' && l.peekByteAt(1) == '}' {
			return l.closeBlock(false)
		}
		if ch == '-' && l.peekByteAt(1) == '%' && l.peekByteAt(2) == '}' {
			return l.closeBlock(true)
		}

		switch {
		case ch == '"' || ch == '\'':
			s, err := l.scanString(ch)
			if err != nil {
				return err
			}
			if l.cb.String != nil {
				l.cb.String(s)
			}
		case ch < 128 && isDigitASCII[ch]:
			l.scanNumber()
		case ch == '-' && l.peekByteAt(1) < 128 && isDigitASCII[l.peekByteAt(1)]:
			l.scanNumber()
		case ch < 128 && isIdentStartASCII[ch]:
			name := l.scanIdent()
			if l.cb.Identifier != nil {
				l.cb.Identifier(name)
			}
		case ch == '.' && l.peekByteAt(1) == '.':
			l.advance()
			l.advance()
			if l.cb.Identifier != nil {
				l.cb.Identifier("..")
			}
		default:
			l.scanSigil(ch)
		}
	}
}

func (l *Lexer) peekIsLiquidLineEnd() bool {
	p := l.pos
	for p < len(l.src) && (l.src[p] == ' ' || l.src[p] == '\t' || l.src[p] == '\r' || l.src[p] == '\n') {
		p++
	}
	if p < len(l.src) && l.src[p] == '-' {
		p++
	}
	return p+1 < len(l.src) && l.src[p] == '%' && l.src[p+1] == '}'
}

func (l *Lexer) closeLiquidLine() error {
	for l.peekByte() == ' ' || l.peekByte() == '\t' || l.peekByte() == '\r' || l.peekByte() == '\n' {
		l.advance()
	}
	trim := false
	if l.peekByte() == '-' {
		trim = true
		l.advance()
	}
	l.advance() // '%'
	l.advance() // '}'
	l.mode = ModeInitial
	l.trimPending = trim
	if l.cb.EndControlBlock != nil {
		l.cb.EndControlBlock(trim)
	}
	return nil
}

func (l *Lexer) closeBlock(trim bool) error {
	if trim {
		l.advance() // '-'
	}
	closeTok := TokEndOutputBlock
	if l.mode == ModeControl {
		closeTok = TokEndControlBlock
	}
	l.advance()
	l.advance()
	l.mode = ModeInitial
	l.trimPending = trim
	if closeTok == TokEndOutputBlock {
		if l.cb.EndOutputBlock != nil {
			l.cb.EndOutputBlock(trim)
		}
	} else if l.cb.EndControlBlock != nil {
		l.cb.EndControlBlock(trim)
	}
	return nil
}

func (l *Lexer) scanSigil(ch byte) {
	l.advance()
	if ch >= 128 {
		return
	}
	switch singleChar[ch] {
	case TokDot:
		if l.cb.Dot != nil {
			l.cb.Dot()
		}
	case TokComma:
		if l.cb.Comma != nil {
			l.cb.Comma()
		}
	case TokColon:
		if l.cb.Colon != nil {
			l.cb.Colon()
		}
	case TokOpenParen:
		if l.cb.OpenParen != nil {
			l.cb.OpenParen()
		}
	case TokCloseParen:
		if l.cb.CloseParen != nil {
			l.cb.CloseParen()
		}
	case TokStartDeref:
		if l.cb.StartDeref != nil {
			l.cb.StartDeref()
		}
	case TokEndDeref:
		if l.cb.EndDeref != nil {
			l.cb.EndDeref()
		}
	default:
		// Operators (+ - * / % < > = ! |) are single/double-char
		// sigils the parser recognizes by identifier text; route them
		// through Identifier the same as named operators (`and`/`or`).
		sym := string(ch)
		if (ch == '=' || ch == '!' || ch == '<' || ch == '>') && l.peekByte() == '=' {
			l.advance()
			sym += "="
		}
		if l.cb.Identifier != nil {
			l.cb.Identifier(sym)
		}
	}
}

func (l *Lexer) scanIdent() string {
	start := l.pos
	for !l.eof() {
		ch := l.peekByte()
		if ch >= 128 || !isIdentPartASCII[ch] {
			break
		}
		l.advance()
	}
	return string(l.src[start:l.pos])
}

// scanNumber classifies digits+`.`+`-` runs, with the `1..5`
// back-track rule: a second `.` ends the number so the range operator
// can be re-tokenized on the next call (spec.md §4.1).
func (l *Lexer) scanNumber() {
	start := l.pos
	if l.peekByte() == '-' {
		l.advance()
	}
	for !l.eof() && l.peekByte() < 128 && isDigitASCII[l.peekByte()] {
		l.advance()
	}
	isFloat := false
	if l.peekByte() == '.' && l.peekByteAt(1) != '.' && l.peekByteAt(1) < 128 && isDigitASCII[l.peekByteAt(1)] {
		isFloat = true
		l.advance()
		for !l.eof() && l.peekByte() < 128 && isDigitASCII[l.peekByte()] {
			l.advance()
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		f, _ := strconv.ParseFloat(text, 64)
		if l.cb.Floating != nil {
			l.cb.Floating(f)
		}
		return
	}
	i, _ := strconv.ParseInt(text, 10, 64)
	if l.cb.Integer != nil {
		l.cb.Integer(i)
	}
}

// scanString reads a quoted literal with `\` as a one-character
// escape; an unterminated literal is UNEXPECTED_END.
func (l *Lexer) scanString(quote byte) (string, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.eof() {
			return "", l.errorf(liquiderr.UnexpectedEnd)
		}
		ch := l.advance()
		if ch == quote {
			return sb.String(), nil
		}
		if ch == '\\' {
			if l.eof() {
				return "", l.errorf(liquiderr.UnexpectedEnd)
			}
			sb.WriteByte(l.advance())
			continue
		}
		sb.WriteByte(ch)
	}
}

// scanRaw implements §4.1's raw-mode scan: accumulate literal text
// until the exact pattern `{%[-]? *endraw *[-]?%}`, which is itself
// processed as an ordinary control block.
func (l *Lexer) scanRaw() error {
	start := l.pos
	for {
		if l.eof() {
			return l.errorf(liquiderr.UnexpectedEnd, "raw")
		}
		if l.peekByte() == '{' && l.peekByteAt(1) == '%' {
			if end, trimLeft, ok := l.matchEndraw(); ok {
				text := string(l.src[start:l.pos])
				if trimLeft {
					text = strings.TrimRightFunc(text, isTrimSpace)
				}
				if text != "" && l.cb.Literal != nil {
					l.cb.Literal(text)
				}
				l.col += end - l.pos
				l.pos = end
				l.mode = ModeControl
				if l.cb.StartControlBlock != nil {
					l.cb.StartControlBlock(trimLeft)
				}
				const kw = "endraw"
				l.pos += len(kw)
				l.col += len(kw)
				if l.cb.Identifier != nil {
					l.cb.Identifier(kw)
				}
				return l.scanExpr(TokEndControlBlock)
			}
		}
		l.advance()
	}
}

// matchEndraw checks for `{%[-]? *endraw *[-]?%}` starting at l.pos
// without consuming input; on match it returns the byte offset just
// past `{%[-]?` (so scanExpr can tokenize `endraw`'s trailing
// whitespace/qualifiers normally) and whether a left-trim marker was
// present.
func (l *Lexer) matchEndraw() (newPos int, trimLeft bool, ok bool) {
	p := l.pos + 2 // past "{%"
	if p < len(l.src) && l.src[p] == '-' {
		trimLeft = true
		p++
	}
	for p < len(l.src) && (l.src[p] == ' ' || l.src[p] == '\t') {
		p++
	}
	const kw = "endraw"
	if p+len(kw) > len(l.src) || string(l.src[p:p+len(kw)]) != kw {
		return 0, false, false
	}
	return p, trimLeft, true
}

// EnterLiquidLine is called by the parser when it recognizes the
// `liquid` tag name as the first token of a control block: subsequent
// content is tokenized one statement per line until the block's own
// closing delimiter (spec.md §4.1).
func (l *Lexer) EnterLiquidLine() {
	l.mode = ModeLiquidLine
	if l.cb.StartControlBlock != nil {
		l.cb.StartControlBlock(false)
	}
}

// EnterRaw is called by the parser immediately after it closes a
// control block whose tag halts lexing (spec.md §4.1's `raw`): the
// literal text up to the matching `{% endraw %}` is then scanned
// verbatim instead of being tokenized as ordinary template source.
func (l *Lexer) EnterRaw() {
	l.mode = ModeRaw
}

func (l *Lexer) Position() (line, col int) { return l.line, l.col }

func (l *Lexer) String() string {
	return fmt.Sprintf("lexer@%d:%d mode=%d", l.line, l.col, l.mode)
}
