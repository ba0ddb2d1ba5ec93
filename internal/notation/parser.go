package notation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPattern     = errors.New("empty pattern")
	ErrMissingSeparator = errors.New("missing '/' separator")
	ErrExtraSeparator   = errors.New("more than one '/' separator")
	ErrUnknownDuration  = errors.New("unknown duration code")
)

// ParseError reports the beat that could not be tokenized.
type ParseError struct {
	Index int    // zero-based beat index within the pattern
	Beat  string // beat text as written
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("beat %d %q: %v", e.Index, e.Beat, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse tokenizes one voice, e.g. "K/q, /8, S/8, H/8t".
func Parse(input string) (Pattern, error) {
	if strings.TrimSpace(input) == "" {
		return Pattern{}, &ParseError{Index: 0, Beat: input, Err: ErrEmptyPattern}
	}
	beats := strings.Split(input, ",")
	tokens := make([]Token, 0, len(beats))
	for i, beat := range beats {
		tok, err := parseBeat(beat)
		if err != nil {
			return Pattern{}, &ParseError{Index: i, Beat: strings.TrimSpace(beat), Err: err}
		}
		tokens = append(tokens, tok)
	}
	return NewPattern(tokens), nil
}

// MustParse is Parse for patterns known at compile time.
func MustParse(input string) Pattern {
	p, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseAll tokenizes several voices, failing on the first malformed one.
func ParseAll(voices []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(voices))
	for i, v := range voices {
		p, err := Parse(v)
		if err != nil {
			return nil, fmt.Errorf("voice %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseBeat(beat string) (Token, error) {
	symbol, code, ok := strings.Cut(beat, "/")
	if !ok {
		return Token{}, ErrMissingSeparator
	}
	if strings.Contains(code, "/") {
		return Token{}, ErrExtraSeparator
	}
	code = strings.TrimSpace(code)
	dc, ok := ParseDurationCode(code)
	if !ok {
		return Token{}, fmt.Errorf("%w %q", ErrUnknownDuration, code)
	}
	return Token{Symbol: strings.TrimSpace(symbol), Code: dc}, nil
}

// Repeat joins n copies of a voice so one pass spans n loops of it.
func Repeat(voice string, n int) string {
	if n <= 1 {
		return voice
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = voice
	}
	return strings.Join(parts, ", ")
}

// RepeatAll applies Repeat to every voice.
func RepeatAll(voices []string, n int) []string {
	out := make([]string, len(voices))
	for i, v := range voices {
		out[i] = Repeat(v, n)
	}
	return out
}
