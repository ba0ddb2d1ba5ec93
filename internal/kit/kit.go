// Package kit maps trigger symbols to named audio cues and describes how each
// kit voices those cues.
package kit

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Cue identifiers understood by every cue player.
const (
	CueKick   = "kick"
	CueSnare  = "snare"
	CueHiHat  = "hihat"
	CueClick1 = "click1"
	CueClick2 = "click2"
)

// DefaultKit is the kit selected when none is configured.
const DefaultKit = "acoustic"

var ErrUnknownKit = errors.New("unknown kit")

// Cue is one dispatch to the cue player.
type Cue struct {
	Name string  `yaml:"cue" json:"cue"`
	Gain float64 `yaml:"gain" json:"gain"`
}

// CueMap resolves trigger symbols (one character each) to cues.
type CueMap map[string]Cue

func DefaultCueMap() CueMap {
	return CueMap{
		"K": {Name: CueKick, Gain: 1},
		"S": {Name: CueSnare, Gain: 1},
		"s": {Name: CueSnare, Gain: 0.45},
		"H": {Name: CueHiHat, Gain: 1},
		"M": {Name: CueClick1, Gain: 1},
		"m": {Name: CueClick2, Gain: 1},
	}
}

// Resolve returns one cue per distinct symbol in triggers, in order of first
// appearance. Symbols without a mapping are skipped.
func (m CueMap) Resolve(triggers string) []Cue {
	var out []Cue
	var seen [256]bool
	for i := 0; i < len(triggers); i++ {
		c := triggers[i]
		if seen[c] {
			continue
		}
		seen[c] = true
		if cue, ok := m[string(c)]; ok {
			out = append(out, cue)
		}
	}
	return out
}

// Voice describes how a synthesizer renders one cue: a sine swept from Tone
// to ToneEnd mixed with noise, high-passed at Cutoff, decaying exponentially.
type Voice struct {
	Tone    float64 `yaml:"tone"`
	ToneEnd float64 `yaml:"toneEnd"`
	Sweep   float64 `yaml:"sweep"` // seconds from Tone to ToneEnd
	Noise   float64 `yaml:"noise"` // 0 = pure tone, 1 = pure noise
	Cutoff  float64 `yaml:"cutoff"`
	Decay   float64 `yaml:"decay"` // seconds to -60 dB
	Gain    float64 `yaml:"gain"`
}

type Kit struct {
	Name   string           `yaml:"name"`
	Cues   CueMap           `yaml:"cues,omitempty"`
	Voices map[string]Voice `yaml:"voices"`
}

// CueMap returns the kit's cue map, falling back to DefaultCueMap.
func (k Kit) CueMap() CueMap {
	if len(k.Cues) == 0 {
		return DefaultCueMap()
	}
	return k.Cues
}

func Acoustic() Kit {
	return Kit{
		Name: "acoustic",
		Voices: map[string]Voice{
			CueKick:   {Tone: 110, ToneEnd: 48, Sweep: 0.06, Decay: 0.45, Gain: 0.9},
			CueSnare:  {Tone: 190, ToneEnd: 170, Sweep: 0.05, Noise: 0.65, Cutoff: 900, Decay: 0.28, Gain: 0.7},
			CueHiHat:  {Noise: 1, Cutoff: 7000, Decay: 0.08, Gain: 0.35},
			CueClick1: {Tone: 1600, ToneEnd: 1600, Decay: 0.03, Gain: 0.4},
			CueClick2: {Tone: 1000, ToneEnd: 1000, Decay: 0.03, Gain: 0.3},
		},
	}
}

func TR909() Kit {
	return Kit{
		Name: "909",
		Voices: map[string]Voice{
			CueKick:   {Tone: 180, ToneEnd: 52, Sweep: 0.03, Decay: 0.6, Gain: 1},
			CueSnare:  {Tone: 230, ToneEnd: 180, Sweep: 0.02, Noise: 0.8, Cutoff: 1800, Decay: 0.22, Gain: 0.75},
			CueHiHat:  {Noise: 1, Cutoff: 9000, Decay: 0.05, Gain: 0.3},
			CueClick1: {Tone: 2000, ToneEnd: 2000, Decay: 0.025, Gain: 0.4},
			CueClick2: {Tone: 1300, ToneEnd: 1300, Decay: 0.025, Gain: 0.3},
		},
	}
}

// Library holds the kits available to a machine, keyed by name.
type Library map[string]Kit

func DefaultLibrary() Library {
	return Library{
		"acoustic": Acoustic(),
		"909":      TR909(),
	}
}

func (l Library) Get(name string) (Kit, error) {
	k, ok := l[name]
	if !ok {
		return Kit{}, fmt.Errorf("%w %q", ErrUnknownKit, name)
	}
	return k, nil
}

// Names lists kit names in sorted order.
func (l Library) Names() []string {
	names := maps.Keys(l)
	slices.Sort(names)
	return names
}

// Merge returns a copy of l with the kits of other added or replaced.
func (l Library) Merge(other Library) Library {
	out := make(Library, len(l)+len(other))
	maps.Copy(out, l)
	for name, k := range other {
		if k.Name == "" {
			k.Name = name
		}
		out[name] = k
	}
	return out
}
