// Package drumsynth renders one-shot drum cues procedurally: a swept sine for
// body, LFSR noise through a one-pole high-pass for snap, and an exponential
// decay envelope.
package drumsynth

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/christianjuth/drum-music-generator/internal/effects"
	"github.com/christianjuth/drum-music-generator/internal/kit"
)

const (
	twoPi = math.Pi * 2

	DefaultMaxVoices  = 32
	DefaultMasterGain = 0.8

	// ln(1000): Decay is the time to fall 60 dB.
	decay60dB = 6.907755278982137
)

type Option func(*config)

type config struct {
	maxVoices  int
	masterGain float64
	log        logrus.FieldLogger
	bus        *effects.Settings
}

// WithMaxVoices caps polyphony. The oldest hit is stolen when full.
func WithMaxVoices(n int) Option {
	return func(c *config) {
		c.maxVoices = n
	}
}

func WithMasterGain(g float64) Option {
	return func(c *config) {
		c.masterGain = g
	}
}

// WithBus runs the mixed output through a compressor and room.
func WithBus(s effects.Settings) Option {
	return func(c *config) {
		c.bus = &s
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

type hit struct {
	voice kit.Voice
	gain  float64
	age   int
	phase float64
	lfsr  uint16
	lp    float64
	alpha float64
	end   int
}

// Engine mixes active hits into stereo frames. Play is safe to call from the
// scheduler goroutine while the audio thread calls Process.
type Engine struct {
	sampleRate float64
	kits       kit.Library
	maxVoices  int
	masterGain uint64
	log        logrus.FieldLogger

	mu     sync.Mutex
	bus    *effects.Bus
	hits   []hit
	seed   uint16
	played uint64
}

func New(sampleRate int, kits kit.Library, opts ...Option) *Engine {
	cfg := config{
		maxVoices:  DefaultMaxVoices,
		masterGain: DefaultMasterGain,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxVoices <= 0 {
		cfg.maxVoices = 1
	}
	if kits == nil {
		kits = kit.DefaultLibrary()
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		kits:       kits,
		maxVoices:  cfg.maxVoices,
		masterGain: math.Float64bits(cfg.masterGain),
		log:        cfg.log,
		seed:       0xACE1,
	}
	if cfg.bus != nil {
		e.bus = effects.NewBus(sampleRate, *cfg.bus)
	}
	return e
}

// Play starts cue from the named kit. Unknown kits or cues are logged and
// ignored.
func (e *Engine) Play(kitName, cue string, gain float64) {
	k, err := e.kits.Get(kitName)
	if err != nil {
		e.log.WithError(err).Warn("cue dropped")
		return
	}
	v, ok := k.Voices[cue]
	if !ok {
		e.log.WithFields(logrus.Fields{"kit": kitName, "cue": cue}).Warn("kit has no voice for cue")
		return
	}
	h := hit{voice: v, gain: clamp(gain, 0, 1)}
	if v.Cutoff > 0 && v.Cutoff < e.sampleRate/2 {
		rc := 1.0 / (twoPi * v.Cutoff)
		dt := 1.0 / e.sampleRate
		h.alpha = dt / (rc + dt)
	}
	h.end = int(math.Ceil(v.Decay * e.sampleRate))
	if h.end <= 0 {
		h.end = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.played++
	h.lfsr = seedLFSR(e.seed, e.played)
	e.seed = h.lfsr
	if len(e.hits) >= e.maxVoices {
		oldest := 0
		for i := range e.hits {
			if e.hits[i].age > e.hits[oldest].age {
				oldest = i
			}
		}
		e.hits[oldest] = h
		return
	}
	e.hits = append(e.hits, h)
}

func (e *Engine) SetMasterGain(g float64) {
	atomic.StoreUint64(&e.masterGain, math.Float64bits(g))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// Active returns the number of sounding hits.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.hits)
}

// Reset silences every hit and any bus tail.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.hits = e.hits[:0]
	if e.bus != nil {
		e.bus.Reset()
	}
	e.mu.Unlock()
}

// Process fills dst with interleaved stereo frames.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.MasterGain()
	for i := 0; i+1 < len(dst); i += 2 {
		s := float32(e.renderSample() * g)
		dst[i], dst[i+1] = s, s
	}
	if e.bus != nil {
		e.bus.Process(dst)
	}
}

// RenderFrame renders a single stereo frame.
func (e *Engine) RenderFrame() (float32, float32) {
	var frame [2]float32
	e.Process(frame[:])
	return frame[0], frame[1]
}

func (e *Engine) renderSample() float64 {
	var mix float64
	live := e.hits[:0]
	for i := range e.hits {
		h := e.hits[i]
		mix += e.renderHit(&h)
		if h.age < h.end {
			live = append(live, h)
		}
	}
	e.hits = live
	return mix
}

func (e *Engine) renderHit(h *hit) float64 {
	v := h.voice
	t := float64(h.age) / e.sampleRate
	h.age++

	var tone float64
	if v.Tone > 0 {
		freq := v.Tone
		if v.Sweep > 0 {
			freq = v.ToneEnd + (v.Tone-v.ToneEnd)*math.Exp(-t/v.Sweep)
		}
		h.phase += twoPi * freq / e.sampleRate
		if h.phase >= twoPi {
			h.phase -= twoPi
		}
		tone = math.Sin(h.phase)
	}

	var noise float64
	if v.Noise > 0 {
		bit := (h.lfsr ^ (h.lfsr >> 1)) & 1
		h.lfsr = (h.lfsr >> 1) | (bit << 15)
		if h.lfsr&1 == 1 {
			noise = 1
		} else {
			noise = -1
		}
		if h.alpha > 0 {
			h.lp += h.alpha * (noise - h.lp)
			noise -= h.lp
		}
	}

	env := 1.0
	if v.Decay > 0 {
		env = math.Exp(-t * decay60dB / v.Decay)
	}
	return ((1-v.Noise)*tone + v.Noise*noise) * env * v.Gain * h.gain
}

func seedLFSR(prev uint16, n uint64) uint16 {
	s := prev ^ uint16(n*73)
	if s == 0 {
		return 0xACE1
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
