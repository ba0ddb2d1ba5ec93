// Package measure groups aligner events into whole-note measures of notes
// ready for a notation renderer.
package measure

import (
	"fmt"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/notation"
)

// Stem directions, matching the renderer's convention.
const (
	StemUp   = 1
	StemDown = -1
)

// Pitch slots on the percussion stave.
const (
	KeyKick        = "f/4"
	KeySnareAccent = "c/5"
	KeySnareQuiet  = "b/4"
	KeyHiHat       = "g/5/x2"

	restKeyUp   = "g/5"
	restKeyDown = "f/4"
)

var pitchSlots = []struct {
	symbol byte
	key    string
}{
	{notation.Kick, KeyKick},
	{notation.SnareAccent, KeySnareAccent},
	{notation.SnareQuiet, KeySnareQuiet},
	{notation.HiHat, KeyHiHat},
}

type Highlight int

const (
	Normal Highlight = iota
	Highlighted
	Dimmed
)

var highlightNames = [...]string{"normal", "highlighted", "dimmed"}

func (h Highlight) String() string {
	if h < 0 || int(h) >= len(highlightNames) {
		return fmt.Sprintf("Highlight(%d)", int(h))
	}
	return highlightNames[h]
}

func (h Highlight) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// Note is one renderable note, chord or rest.
type Note struct {
	Keys      []string              `json:"keys"`
	Code      notation.DurationCode `json:"-"`
	Label     string                `json:"duration"`
	Rest      bool                  `json:"rest"`
	Highlight Highlight             `json:"highlight"`
	Stem      int                   `json:"stem"`
	Onset     float64               `json:"onset"`
	Ticks     int                   `json:"ticks"`
}

// Duration is the note length in whole notes.
func (n Note) Duration() float64 { return float64(n.Ticks) / notation.TicksPerWhole }

type Measure []Note

func (m Measure) Ticks() int {
	total := 0
	for _, n := range m {
		total += n.Ticks
	}
	return total
}

func (m Measure) Duration() float64 { return float64(m.Ticks()) / notation.TicksPerWhole }

// Options controls stem direction and styling of a render pass.
type Options struct {
	Stem        int
	HighlightAt float64 // transport position to highlight; exact match only
	Contrast    bool    // dim every note that is not highlighted
}

// Group drains a and returns its pass as measures. The aligner is rewound
// before and after, so the same instance serves every render pass.
func Group(a *aligner.Aligner, opts Options) []Measure {
	a.Reset()
	defer a.Reset()

	var (
		out         []Measure
		cur         Measure
		fill        int
		highlighted bool
	)
	for a.HasNext() {
		ev := a.Next()
		keys := pitchKeys(ev.Triggers)
		onset := ev.Offset
		remaining := ev.Ticks
		first := true
		for remaining > 0 {
			chunk := notatable(min(remaining, notation.TicksPerWhole-fill))
			n := Note{
				Keys:  keys,
				Label: tickLabels[chunk],
				Stem:  opts.Stem,
				Onset: float64(onset) / notation.TicksPerWhole,
				Ticks: chunk,
			}
			if first && ev.Code.Ticks() == chunk {
				n.Code = ev.Code
				n.Label = ev.Code.Label()
			}
			if !first || len(keys) == 0 {
				n.Keys = []string{restKey(opts.Stem)}
				n.Rest = true
				n.Label += "r"
			}
			switch {
			case first && !highlighted && n.Onset == opts.HighlightAt:
				n.Highlight = Highlighted
				highlighted = true
			case opts.Contrast:
				n.Highlight = Dimmed
			}
			cur = append(cur, n)
			fill += chunk
			onset += chunk
			remaining -= chunk
			first = false
			if fill == notation.TicksPerWhole {
				out = append(out, cur)
				cur, fill = nil, 0
			}
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func pitchKeys(triggers string) []string {
	var keys []string
	for _, slot := range pitchSlots {
		for i := 0; i < len(triggers); i++ {
			if triggers[i] == slot.symbol {
				keys = append(keys, slot.key)
				break
			}
		}
	}
	return keys
}

func restKey(stem int) string {
	if stem > 0 {
		return restKeyUp
	}
	return restKeyDown
}

// tickLabels lists every length that a single (possibly dotted) note can show.
var tickLabels = map[int]string{
	1:  "16",
	2:  "8",
	3:  "8d",
	4:  "q",
	6:  "qd",
	8:  "h",
	12: "hd",
	16: "w",
}

// notatable returns the longest single-note length that fits in ticks.
func notatable(ticks int) int {
	for t := ticks; t > 1; t-- {
		if _, ok := tickLabels[t]; ok {
			return t
		}
	}
	return 1
}
