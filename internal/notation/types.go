package notation

import "strings"

// TicksPerWhole is the resolution of the shared clock. One tick is a
// sixteenth note.
const TicksPerWhole = 16

// Trigger symbols understood by the cue map and the measure renderer.
const (
	Kick            byte = 'K'
	SnareAccent     byte = 'S'
	SnareQuiet      byte = 's'
	HiHat           byte = 'H'
	MetronomeStrong byte = 'M'
	MetronomeWeak   byte = 'm'
)

type DurationCode int

const (
	Sixteenth DurationCode = iota + 1
	Eighth
	EighthTriplet
	Quarter
	Half
)

var durationLabels = map[DurationCode]string{
	Sixteenth:     "16",
	Eighth:        "8",
	EighthTriplet: "8t",
	Quarter:       "q",
	Half:          "h",
}

var durationTicks = map[DurationCode]int{
	Sixteenth: 1,
	Eighth:    2,
	// Triplet eighths are played as straight eighths; only the label differs.
	EighthTriplet: 2,
	Quarter:       4,
	Half:          8,
}

// ParseDurationCode maps a notation code (h, q, 8, 8t, 16) to its DurationCode.
func ParseDurationCode(s string) (DurationCode, bool) {
	for code, label := range durationLabels {
		if label == s {
			return code, true
		}
	}
	return 0, false
}

// Label returns the notation code, which is also the renderer's duration label.
func (d DurationCode) Label() string { return durationLabels[d] }

// Ticks returns the length in clock ticks, 0 for an invalid code.
func (d DurationCode) Ticks() int { return durationTicks[d] }

// Fraction returns the length as a fraction of a whole note.
func (d DurationCode) Fraction() float64 {
	return float64(d.Ticks()) / TicksPerWhole
}

func (d DurationCode) String() string {
	if l, ok := durationLabels[d]; ok {
		return l
	}
	return "invalid"
}

// Token is one beat of a voice. An empty Symbol is a rest.
type Token struct {
	Symbol string
	Code   DurationCode
}

func (t Token) Rest() bool { return t.Symbol == "" }

func (t Token) String() string { return t.Symbol + "/" + t.Code.Label() }

// Pattern is the immutable token sequence of one voice.
type Pattern struct {
	tokens []Token
	ticks  int
}

// NewPattern builds a Pattern from tokens. The slice is copied.
func NewPattern(tokens []Token) Pattern {
	p := Pattern{tokens: make([]Token, len(tokens))}
	copy(p.tokens, tokens)
	for _, t := range p.tokens {
		p.ticks += t.Code.Ticks()
	}
	return p
}

func (p Pattern) Len() int { return len(p.tokens) }

func (p Pattern) At(i int) Token { return p.tokens[i] }

// Tokens returns a copy of the token sequence.
func (p Pattern) Tokens() []Token {
	out := make([]Token, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// Ticks is the total length of one pass over the pattern.
func (p Pattern) Ticks() int { return p.ticks }

// Duration is the total length in whole notes.
func (p Pattern) Duration() float64 { return float64(p.ticks) / TicksPerWhole }

// String formats the pattern in canonical notation; Parse(p.String()) yields p.
func (p Pattern) String() string {
	parts := make([]string, len(p.tokens))
	for i, t := range p.tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
