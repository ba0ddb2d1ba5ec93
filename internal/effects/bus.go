// Package effects is the drum bus: a glue compressor followed by a small
// room reverb, applied to the mixed kit output.
package effects

import "math"

// Settings configure a Bus. Zero Room disables the reverb; zero Threshold
// disables the compressor.
type Settings struct {
	Room      float64 `yaml:"room" json:"room"`           // room size 0..1
	Mix       float64 `yaml:"mix" json:"mix"`             // reverb level 0..1
	Decay     float64 `yaml:"decay" json:"decay"`         // reverb feedback 0..0.95
	Threshold float64 `yaml:"threshold" json:"threshold"` // compressor threshold in dBFS
	Ratio     float64 `yaml:"ratio" json:"ratio"`         // input dB per output dB above threshold
	Attack    float64 `yaml:"attack" json:"attack"`       // ms
	Release   float64 `yaml:"release" json:"release"`     // ms
}

func DefaultSettings() Settings {
	return Settings{
		Room:      0.3,
		Mix:       0.12,
		Decay:     0.6,
		Threshold: -12,
		Ratio:     3,
		Attack:    3,
		Release:   120,
	}
}

// Dry returns settings that pass audio through unchanged.
func Dry() Settings { return Settings{} }

type stage interface {
	frame(l, r float32) (float32, float32)
	reset()
}

// Bus runs its stages in order over interleaved stereo buffers. It is not
// safe for concurrent use.
type Bus struct {
	stages []stage
}

func NewBus(sampleRate int, s Settings) *Bus {
	b := &Bus{}
	if s.Threshold < 0 && s.Ratio > 1 {
		b.stages = append(b.stages, newGlue(sampleRate, s))
	}
	if s.Room > 0 && s.Mix > 0 {
		b.stages = append(b.stages, newRoom(sampleRate, s))
	}
	return b
}

// Bypassed reports whether the bus leaves audio untouched.
func (b *Bus) Bypassed() bool { return len(b.stages) == 0 }

// Process transforms dst in place.
func (b *Bus) Process(dst []float32) {
	if len(b.stages) == 0 {
		return
	}
	for i := 0; i+1 < len(dst); i += 2 {
		l, r := dst[i], dst[i+1]
		for _, st := range b.stages {
			l, r = st.frame(l, r)
		}
		dst[i], dst[i+1] = l, r
	}
}

// Reset clears envelopes and reverb tails.
func (b *Bus) Reset() {
	for _, st := range b.stages {
		st.reset()
	}
}

func dbToGain(db float64) float64 { return math.Pow(10, db/20) }

// coefficient converts a time constant in milliseconds to a one-pole factor.
func coefficient(ms float64, sampleRate int) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1 - math.Exp(-1/(ms*float64(sampleRate)/1000)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
