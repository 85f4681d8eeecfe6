package liquiderr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFormatsCodeAndMessage(t *testing.T) {
	e := New(UnknownTag, "page.liquid", 3, 5, "frobnicate")
	got := e.Error()
	for _, want := range []string{"page.liquid:3:5:", string(UnknownTag), "frobnicate"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestErrorWithoutPositionOmitsLocation(t *testing.T) {
	e := New(DivideByZero, "", 0, 0)
	got := e.Error()
	if strings.Contains(got, ":0:0:") {
		t.Errorf("Error() = %q, should not print a zero location", got)
	}
}

func TestWrapPreservesCauseAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(InternalError, "", 1, 1, cause, "detail")
	if !errors.Is(e, cause) {
		t.Error("Wrap's Error should unwrap to its cause")
	}
	if !strings.Contains(e.Error(), "caused by: boom") {
		t.Errorf("Error() = %q, expected to mention the cause", e.Error())
	}
}

func TestWithSuggestionAppendsHint(t *testing.T) {
	e := New(UnknownFilter, "t.liquid", 1, 1, "upcse")
	e.WithSuggestion("upcase")
	got := e.Error()
	if !strings.Contains(got, "did you mean 'upcase'?") {
		t.Errorf("Error() = %q, expected a suggestion hint", got)
	}
}

func TestWithSuggestionNoOpWhenEmpty(t *testing.T) {
	e := New(UnknownFilter, "t.liquid", 1, 1, "upcse")
	before := e.Error()
	e.WithSuggestion("")
	if e.Error() != before {
		t.Errorf("WithSuggestion(\"\") changed the message: %q -> %q", before, e.Error())
	}
}

func TestArgsCapAtFive(t *testing.T) {
	e := New(InvalidQualifier, "", 1, 1, "a", "b", "c", "d", "e", "f")
	if e.Nargs != 5 {
		t.Errorf("Nargs = %d, want 5", e.Nargs)
	}
}
