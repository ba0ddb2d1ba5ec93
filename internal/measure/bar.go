package measure

import "github.com/christianjuth/drum-music-generator/internal/aligner"

// Bar is one system column: the upper and lower voices of a measure.
type Bar struct {
	Index         int     `json:"index"`
	Upper         Measure `json:"upper"`
	Lower         Measure `json:"lower"`
	Clef          string  `json:"clef,omitempty"`
	TimeSignature string  `json:"timeSignature,omitempty"`
	RepeatEnd     bool    `json:"repeatEnd"`
}

// Pair lines up upper and lower measures. Extra measures on either side are
// dropped; the first bar carries clef and time signature and the last bar
// closes the repeat.
func Pair(upper, lower []Measure) []Bar {
	n := min(len(upper), len(lower))
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = Bar{Index: i, Upper: upper[i], Lower: lower[i]}
	}
	if n > 0 {
		bars[0].Clef = "percussion"
		bars[0].TimeSignature = "4/4"
		bars[n-1].RepeatEnd = true
	}
	return bars
}

// Render groups the upper voices stem up and the lower voices stem down.
func Render(upper, lower *aligner.Aligner, highlightAt float64, contrast bool) []Bar {
	up := Group(upper, Options{Stem: StemUp, HighlightAt: highlightAt, Contrast: contrast})
	down := Group(lower, Options{Stem: StemDown, HighlightAt: highlightAt, Contrast: contrast})
	return Pair(up, down)
}
