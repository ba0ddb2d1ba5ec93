package scheduler

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	MinBPM     = 40
	MaxBPM     = 300
	DefaultBPM = 120
)

// Tempo is a BPM value shared by any number of schedulers. It is read once per
// step, so a change only affects the next sleep.
type Tempo struct {
	bits atomic.Uint64
}

func NewTempo(bpm float64) *Tempo {
	t := &Tempo{}
	t.Set(bpm)
	return t
}

// Set clamps bpm to [MinBPM, MaxBPM] and returns the stored value.
func (t *Tempo) Set(bpm float64) float64 {
	if math.IsNaN(bpm) {
		bpm = DefaultBPM
	}
	bpm = math.Min(math.Max(bpm, MinBPM), MaxBPM)
	t.bits.Store(math.Float64bits(bpm))
	return bpm
}

func (t *Tempo) BPM() float64 {
	return math.Float64frombits(t.bits.Load())
}

// StepDuration converts a length in whole notes to wall time at the current
// tempo: wholeNotes * (60 / bpm) * 4 seconds.
func (t *Tempo) StepDuration(wholeNotes float64) time.Duration {
	return WallTime(wholeNotes, t.BPM())
}

// WallTime converts a length in whole notes to wall time at bpm.
func WallTime(wholeNotes, bpm float64) time.Duration {
	sec := wholeNotes * (60 / bpm) * 4
	return time.Duration(sec * float64(time.Second))
}
