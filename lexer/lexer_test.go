package lexer

import (
	"strings"
	"testing"
)

// recorder accumulates lexer callback events as short tagged strings,
// so tests can assert on the token sequence without building a full
// parser harness.
type recorder struct {
	events []string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		Literal:    func(s string) { r.events = append(r.events, "lit:"+s) },
		Identifier: func(s string) { r.events = append(r.events, "id:"+s) },
		String:     func(s string) { r.events = append(r.events, "str:"+s) },
		Integer:    func(i int64) { r.events = append(r.events, "int") },
		Floating:   func(f float64) { r.events = append(r.events, "float") },
		Dot:        func() { r.events = append(r.events, "dot") },
		Comma:      func() { r.events = append(r.events, "comma") },
		Colon:      func() { r.events = append(r.events, "colon") },
		OpenParen:  func() { r.events = append(r.events, "(") },
		CloseParen: func() { r.events = append(r.events, ")") },
		StartDeref: func() { r.events = append(r.events, "[") },
		EndDeref:   func() { r.events = append(r.events, "]") },
		StartOutputBlock: func(trim bool) {
			r.events = append(r.events, "startOutput")
		},
		EndOutputBlock: func(trim bool) {
			r.events = append(r.events, "endOutput")
		},
		StartControlBlock: func(trim bool) {
			r.events = append(r.events, "startControl")
		},
		EndControlBlock: func(trim bool) {
			r.events = append(r.events, "endControl")
		},
		Newline: func() { r.events = append(r.events, "newline") },
	}
}

func run(t *testing.T, src string) []string {
	t.Helper()
	r := &recorder{}
	l := New(src, r.callbacks())
	if err := l.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return r.events
}

func TestLexLiteralOnly(t *testing.T) {
	got := run(t, "hello world")
	want := "lit:hello world"
	if len(got) != 1 || got[0] != want {
		t.Errorf("events = %v, want [%q]", got, want)
	}
}

func TestLexOutputBlock(t *testing.T) {
	got := run(t, "{{ name }}")
	joined := strings.Join(got, ",")
	if !strings.Contains(joined, "startOutput") || !strings.Contains(joined, "id:name") || !strings.Contains(joined, "endOutput") {
		t.Errorf("events = %v, missing expected output-block markers", got)
	}
}

func TestLexControlBlock(t *testing.T) {
	got := run(t, "{% assign x = 1 %}")
	joined := strings.Join(got, ",")
	for _, want := range []string{"startControl", "id:assign", "id:x", "int", "endControl"} {
		if !strings.Contains(joined, want) {
			t.Errorf("events = %v, missing %q", got, want)
		}
	}
}

func TestLexStringLiteral(t *testing.T) {
	got := run(t, `{{ "hi" }}`)
	joined := strings.Join(got, ",")
	if !strings.Contains(joined, "str:hi") {
		t.Errorf("events = %v, missing string token", got)
	}
}

func TestLexPunctuation(t *testing.T) {
	got := run(t, "{{ a.b[0] | f: 1, 2 }}")
	joined := strings.Join(got, ",")
	for _, want := range []string{"dot", "[", "]", "colon", "comma"} {
		if !strings.Contains(joined, want) {
			t.Errorf("events = %v, missing %q", got, want)
		}
	}
}

func TestLexTrimMarkersConsumeWhitespace(t *testing.T) {
	got := run(t, "a {{- x -}} b")
	joined := strings.Join(got, ",")
	for _, ev := range got {
		if strings.HasPrefix(ev, "lit:") && strings.Contains(ev, "  ") {
			t.Errorf("literal %q retained double space around a trimmed block", ev)
		}
	}
	if !strings.Contains(joined, "lit:a") {
		t.Errorf("events = %v, expected a leading literal", got)
	}
}

// TestEnterRawSuppressesParsing exercises the raw-mode entry point a
// caller (package parser) switches to, synchronously from its own
// EndControlBlock callback, after recognizing a HaltsLexing tag; the
// lexer itself has no notion of tag symbols, so this drives EnterRaw
// directly rather than through "raw" by name.
func TestEnterRawSuppressesParsing(t *testing.T) {
	r := &recorder{}
	cb := r.callbacks()
	var l *Lexer
	first := true
	cb.EndControlBlock = func(trim bool) {
		r.events = append(r.events, "endControl")
		if first {
			first = false
			l.EnterRaw()
		}
	}
	src := "{% x %}{{ not parsed }}{% endraw %} after"
	l = New(src, cb)
	if err := l.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	joined := strings.Join(r.events, ",")
	if strings.Contains(joined, "startOutput") {
		t.Errorf("events = %v, raw-mode body should not be lexed as an output block", r.events)
	}
	if !strings.Contains(joined, "{{ not parsed }}") {
		t.Errorf("events = %v, expected the raw body verbatim as a literal", r.events)
	}
	if !strings.Contains(joined, "lit: after") {
		t.Errorf("events = %v, expected trailing literal after endraw", r.events)
	}
}
