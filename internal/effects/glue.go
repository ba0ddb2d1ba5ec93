package effects

import "math"

// glue is a stereo-linked peak compressor: both channels share one envelope
// so hits do not wander in the stereo field.
type glue struct {
	threshold float32
	slope     float64
	attack    float32
	release   float32
	env       float32
}

func newGlue(sampleRate int, s Settings) *glue {
	return &glue{
		threshold: float32(dbToGain(s.Threshold)),
		slope:     1/s.Ratio - 1,
		attack:    coefficient(s.Attack, sampleRate),
		release:   coefficient(s.Release, sampleRate),
	}
}

func (g *glue) frame(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	coef := g.release
	if peak > g.env {
		coef = g.attack
	}
	g.env += coef * (peak - g.env)
	if g.env <= g.threshold {
		return l, r
	}
	gain := float32(math.Pow(float64(g.env/g.threshold), g.slope))
	return l * gain, r * gain
}

func (g *glue) reset() { g.env = 0 }
