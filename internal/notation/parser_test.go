package notation

import (
	"errors"
	"testing"
)

func TestParseBasicVoice(t *testing.T) {
	p, err := Parse("K/q, K/q, K/q, K/q")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("expected 4 tokens, got %d", p.Len())
	}
	for i := 0; i < p.Len(); i++ {
		tok := p.At(i)
		if tok.Symbol != "K" || tok.Code != Quarter {
			t.Fatalf("token %d = %+v, want K/q", i, tok)
		}
	}
	if p.Ticks() != TicksPerWhole {
		t.Fatalf("ticks = %d, want %d", p.Ticks(), TicksPerWhole)
	}
	if p.Duration() != 1 {
		t.Fatalf("duration = %v, want 1", p.Duration())
	}
}

func TestParseRestsAndWhitespace(t *testing.T) {
	p, err := Parse("/q,S/q,  /8 ,\tH / 16")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []Token{
		{Symbol: "", Code: Quarter},
		{Symbol: "S", Code: Quarter},
		{Symbol: "", Code: Eighth},
		{Symbol: "H", Code: Sixteenth},
	}
	if p.Len() != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), p.Len())
	}
	for i, w := range want {
		if got := p.At(i); got != w {
			t.Fatalf("token %d = %+v, want %+v", i, got, w)
		}
	}
	if !p.At(0).Rest() || p.At(1).Rest() {
		t.Fatalf("rest detection wrong")
	}
}

func TestParseAllDurationCodes(t *testing.T) {
	p, err := Parse("H/h, H/q, H/8, H/8t, H/16")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	wantTicks := []int{8, 4, 2, 2, 1}
	for i, w := range wantTicks {
		if got := p.At(i).Code.Ticks(); got != w {
			t.Fatalf("token %d ticks = %d, want %d", i, got, w)
		}
	}
	if p.At(2).Code == p.At(3).Code {
		t.Fatalf("eighth and triplet eighth must stay distinct codes")
	}
	if p.At(3).Code.Label() != "8t" {
		t.Fatalf("triplet label = %q, want 8t", p.At(3).Code.Label())
	}
	if p.At(2).Code.Fraction() != p.At(3).Code.Fraction() {
		t.Fatalf("triplet eighth should be numerically an eighth")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		index int
		want  error
	}{
		{"missing separator", "K/q, Kq", 1, ErrMissingSeparator},
		{"unknown code", "K/q, K/w", 1, ErrUnknownDuration},
		{"empty code", "K/", 0, ErrUnknownDuration},
		{"trailing comma", "K/q,", 1, ErrMissingSeparator},
		{"double separator", "K/q/8", 0, ErrExtraSeparator},
		{"empty", "   ", 0, ErrEmptyPattern},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Index != tc.index {
				t.Fatalf("index = %d, want %d", pe.Index, tc.index)
			}
		})
	}
}

func TestPatternStringRoundTrip(t *testing.T) {
	in := "/16, H/16, /8, /h, H/8t, H/8t, H/8t"
	p := MustParse(in)
	if p.String() != in {
		t.Fatalf("String() = %q, want %q", p.String(), in)
	}
	again := MustParse(p.String())
	if again.Len() != p.Len() || again.Ticks() != p.Ticks() {
		t.Fatalf("round trip changed the pattern")
	}
}

func TestPatternIsImmutable(t *testing.T) {
	tokens := []Token{{Symbol: "K", Code: Quarter}}
	p := NewPattern(tokens)
	tokens[0].Symbol = "S"
	out := p.Tokens()
	out[0].Symbol = "H"
	if p.At(0).Symbol != "K" {
		t.Fatalf("pattern mutated through caller slice: %q", p.At(0).Symbol)
	}
}

func TestRepeat(t *testing.T) {
	if got := Repeat("K/q, S/q", 2); got != "K/q, S/q, K/q, S/q" {
		t.Fatalf("Repeat = %q", got)
	}
	if got := Repeat("K/q", 0); got != "K/q" {
		t.Fatalf("Repeat with n=0 = %q", got)
	}
	all := RepeatAll([]string{"K/h", "S/h"}, 3)
	if MustParse(all[1]).Len() != 3 {
		t.Fatalf("RepeatAll did not repeat: %v", all)
	}
}

func TestParseAllReportsVoice(t *testing.T) {
	_, err := ParseAll([]string{"K/q", "S/x"})
	if !errors.Is(err, ErrUnknownDuration) {
		t.Fatalf("expected unknown duration, got %v", err)
	}
}
