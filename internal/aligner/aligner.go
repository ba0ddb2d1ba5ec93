// Package aligner merges independently looping voices onto one clock.
//
// Each voice keeps a cursor into its pattern and the number of ticks it still
// owes before its next onset. A pass lasts the least common multiple of the
// voice lengths, so every voice ends a pass on its own loop boundary.
package aligner

import (
	"errors"
	"fmt"
	"math"

	"github.com/christianjuth/drum-music-generator/internal/notation"
)

// DefaultMaxCycle bounds a pass to 64 whole notes.
const DefaultMaxCycle = 64 * notation.TicksPerWhole

var (
	ErrNoVoices     = errors.New("no voices")
	ErrEmptyVoice   = errors.New("voice has no duration")
	ErrCycleTooLong = errors.New("cycle too long")
)

// ConstructionError rejects a voice set before any playback state exists.
type ConstructionError struct {
	Voice int // -1 when the error concerns the whole set
	Err   error
}

func (e *ConstructionError) Error() string {
	if e.Voice < 0 {
		return "aligner: " + e.Err.Error()
	}
	return fmt.Sprintf("aligner: voice %d: %v", e.Voice, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Event is one combined step of all voices.
type Event struct {
	Triggers string  // symbols of voices that advanced, in voice order
	Duration float64 // whole notes until the next onset
	Position float64 // whole notes since the pass began
	Ticks    int
	Offset   int
	// Code is the duration code of the token that set the step length, or 0
	// when the step ends on another voice's pending onset.
	Code notation.DurationCode
}

// Has reports whether sym fired in this event.
func (e Event) Has(sym byte) bool {
	for i := 0; i < len(e.Triggers); i++ {
		if e.Triggers[i] == sym {
			return true
		}
	}
	return false
}

type Option func(*options)

type options struct {
	maxCycle int
}

// WithMaxCycle sets the longest accepted pass in ticks.
func WithMaxCycle(ticks int) Option {
	return func(o *options) {
		o.maxCycle = ticks
	}
}

type voice struct {
	pattern  notation.Pattern
	repeats  int // pattern loops per pass
	cursor   int
	consumed int
	delay    int
}

func (v *voice) remaining() bool {
	return v.consumed < v.pattern.Len()*v.repeats
}

type Aligner struct {
	voices []voice
	cycle  int
	offset int
}

// New validates the voice set and returns an aligner positioned at tick 0.
func New(patterns []notation.Pattern, opts ...Option) (*Aligner, error) {
	o := options{maxCycle: DefaultMaxCycle}
	for _, opt := range opts {
		opt(&o)
	}
	if len(patterns) == 0 {
		return nil, &ConstructionError{Voice: -1, Err: ErrNoVoices}
	}
	cycle := 1
	for i, p := range patterns {
		if p.Len() == 0 || p.Ticks() <= 0 {
			return nil, &ConstructionError{Voice: i, Err: ErrEmptyVoice}
		}
		cycle = lcm(cycle, p.Ticks())
		if cycle > o.maxCycle {
			return nil, &ConstructionError{
				Voice: -1,
				Err:   fmt.Errorf("%w: exceeds %d ticks at voice %d", ErrCycleTooLong, o.maxCycle, i),
			}
		}
	}
	a := &Aligner{voices: make([]voice, len(patterns)), cycle: cycle}
	for i, p := range patterns {
		a.voices[i] = voice{pattern: p, repeats: cycle / p.Ticks()}
	}
	return a, nil
}

// FromNotation tokenizes voices and builds an aligner from them.
func FromNotation(voices []string, opts ...Option) (*Aligner, error) {
	patterns, err := notation.ParseAll(voices)
	if err != nil {
		return nil, err
	}
	return New(patterns, opts...)
}

// HasNext reports whether any voice still has tokens in the current pass.
func (a *Aligner) HasNext() bool {
	for i := range a.voices {
		if a.voices[i].remaining() {
			return true
		}
	}
	return false
}

// Next advances every due voice and returns the combined event. Calling Next
// when HasNext is false is a programming error.
func (a *Aligner) Next() Event {
	if !a.HasNext() {
		panic("aligner: Next called on an exhausted pass")
	}
	var triggers []byte
	var due []notation.Token
	for i := range a.voices {
		v := &a.voices[i]
		if v.delay > 0 || !v.remaining() {
			continue
		}
		tok := v.pattern.At(v.cursor)
		triggers = append(triggers, tok.Symbol...)
		v.delay += tok.Code.Ticks()
		v.cursor = (v.cursor + 1) % v.pattern.Len()
		v.consumed++
		due = append(due, tok)
	}
	if len(due) == 0 {
		panic(fmt.Sprintf("aligner: no voice due at tick %d", a.offset))
	}

	// The step never overshoots a voice that is still sounding.
	step := math.MaxInt
	for i := range a.voices {
		if d := a.voices[i].delay; d > 0 && d < step {
			step = d
		}
	}
	var code notation.DurationCode
	for _, tok := range due {
		if tok.Code.Ticks() == step {
			code = tok.Code
			break
		}
	}
	for i := range a.voices {
		a.voices[i].delay -= step
	}

	ev := Event{
		Triggers: string(triggers),
		Duration: float64(step) / notation.TicksPerWhole,
		Position: float64(a.offset) / notation.TicksPerWhole,
		Ticks:    step,
		Offset:   a.offset,
		Code:     code,
	}
	a.offset += step
	return ev
}

// Reset rewinds every voice and the running offset.
func (a *Aligner) Reset() {
	for i := range a.voices {
		v := &a.voices[i]
		v.cursor, v.consumed, v.delay = 0, 0, 0
	}
	a.offset = 0
}

func (a *Aligner) Voices() int { return len(a.voices) }

// CycleTicks is the length of one pass in ticks.
func (a *Aligner) CycleTicks() int { return a.cycle }

// CycleLength is the length of one pass in whole notes.
func (a *Aligner) CycleLength() float64 {
	return float64(a.cycle) / notation.TicksPerWhole
}

// Offset is the tick at which the next event begins.
func (a *Aligner) Offset() int { return a.offset }

// AtMeasureBoundary reports whether the next event starts a whole-note measure.
func (a *Aligner) AtMeasureBoundary() bool {
	return a.offset%notation.TicksPerWhole == 0
}
