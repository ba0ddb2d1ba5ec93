package effects

// room is a Schroeder reverb: four parallel feedback combs into two series
// allpasses, mixed under the dry signal.
type room struct {
	combs [4]delayLine
	diff  [2]delayLine
	mix   float32
}

// Comb and allpass lengths relative to the base delay; the ratios are
// mutually prime-ish to keep the tail from ringing.
var (
	combRatios = [4]float64{1, 1.117, 1.271, 1.437}
	diffRatios = [2]float64{0.347, 0.213}
)

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

func newDelayLine(n int, fb float32) delayLine {
	if n < 1 {
		n = 1
	}
	return delayLine{buf: make([]float32, n), fb: fb}
}

// comb returns the delayed sample and feeds in back with feedback.
func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	delayed := d.buf[d.pos]
	d.buf[d.pos] = in + delayed*d.fb
	d.advance()
	return delayed - in
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) clear() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.pos = 0
}

func newRoom(sampleRate int, s Settings) *room {
	// A full-size room has a 50ms base delay.
	base := float64(sampleRate) * clamp(s.Room, 0, 1) * 0.05
	if base < 10 {
		base = 10
	}
	fb := float32(clamp(s.Decay, 0, 0.95))
	r := &room{mix: float32(clamp(s.Mix, 0, 1))}
	for i, ratio := range combRatios {
		r.combs[i] = newDelayLine(int(base*ratio), fb)
	}
	for i, ratio := range diffRatios {
		r.diff[i] = newDelayLine(int(base*ratio), 0.5)
	}
	return r
}

func (r *room) frame(l, rt float32) (float32, float32) {
	in := (l + rt) * 0.5
	var wet float32
	for i := range r.combs {
		wet += r.combs[i].comb(in)
	}
	wet *= 0.25
	for i := range r.diff {
		wet = r.diff[i].allpass(wet)
	}
	return l + wet*r.mix, rt + wet*r.mix
}

func (r *room) reset() {
	for i := range r.combs {
		r.combs[i].clear()
	}
	for i := range r.diff {
		r.diff[i].clear()
	}
}
