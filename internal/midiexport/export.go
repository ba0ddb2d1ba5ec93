// Package midiexport writes voice sets as General MIDI drum tracks.
package midiexport

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/notation"
)

const (
	// DrumChannel is MIDI channel 10, zero based.
	DrumChannel = 9

	TicksPerQuarter = 960
	ticksPerTick    = TicksPerQuarter * 4 / notation.TicksPerWhole

	// Notes are released a 32nd after onset, or earlier if the step is shorter.
	gateTicks = TicksPerQuarter / 8
)

// Note is the key and velocity one trigger symbol plays.
type Note struct {
	Key      uint8
	Velocity uint8
}

// DefaultNotes maps trigger symbols to the General MIDI percussion map.
func DefaultNotes() map[byte]Note {
	return map[byte]Note{
		notation.Kick:            {Key: 36, Velocity: 100},
		notation.SnareAccent:     {Key: 38, Velocity: 110},
		notation.SnareQuiet:      {Key: 38, Velocity: 50},
		notation.HiHat:           {Key: 42, Velocity: 80},
		notation.MetronomeStrong: {Key: 76, Velocity: 100},
		notation.MetronomeWeak:   {Key: 77, Velocity: 80},
	}
}

type Options struct {
	BPM    float64
	Cycles int // full passes of the voice set, at least 1
	Name   string
	Notes  map[byte]Note
}

type timed struct {
	at  uint32
	off bool
	msg midi.Message
}

// Export renders Cycles passes of voices into a two-track SMF: a tempo track
// and a drum track on channel 10.
func Export(w io.Writer, voices []notation.Pattern, opts Options) error {
	a, err := aligner.New(voices)
	if err != nil {
		return err
	}
	if opts.BPM <= 0 {
		opts.BPM = 120
	}
	if opts.Cycles < 1 {
		opts.Cycles = 1
	}
	if opts.Notes == nil {
		opts.Notes = DefaultNotes()
	}

	events, end := collect(a, opts)
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var meta smf.Track
	if opts.Name != "" {
		meta.Add(0, smf.MetaTrackSequenceName(opts.Name))
	}
	meta.Add(0, smf.MetaMeter(4, 4))
	meta.Add(0, smf.MetaTempo(opts.BPM))
	meta.Close(end)
	if err := sm.Add(meta); err != nil {
		return fmt.Errorf("midiexport: add tempo track: %w", err)
	}

	var drums smf.Track
	drums.Add(0, smf.MetaTrackSequenceName("drums"))
	var last uint32
	for _, ev := range events {
		drums.Add(ev.at-last, ev.msg)
		last = ev.at
	}
	drums.Close(end - last)
	if err := sm.Add(drums); err != nil {
		return fmt.Errorf("midiexport: add drum track: %w", err)
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("midiexport: write: %w", err)
	}
	return nil
}

// collect flattens the passes into absolute-time messages, note offs first at
// equal times so a retrigger is never swallowed.
func collect(a *aligner.Aligner, opts Options) ([]timed, uint32) {
	var events []timed
	var base uint32
	for c := 0; c < opts.Cycles; c++ {
		a.Reset()
		for a.HasNext() {
			ev := a.Next()
			at := base + uint32(ev.Offset*ticksPerTick)
			gate := uint32(ev.Ticks * ticksPerTick)
			if gate > gateTicks {
				gate = gateTicks
			}
			var seen [256]bool
			for i := 0; i < len(ev.Triggers); i++ {
				sym := ev.Triggers[i]
				n, ok := opts.Notes[sym]
				if !ok || seen[sym] {
					continue
				}
				seen[sym] = true
				events = append(events,
					timed{at: at, msg: midi.NoteOn(DrumChannel, n.Key, n.Velocity)},
					timed{at: at + gate, off: true, msg: midi.NoteOff(DrumChannel, n.Key)},
				)
			}
		}
		base += uint32(a.CycleTicks() * ticksPerTick)
	}
	a.Reset()
	slices.SortStableFunc(events, func(x, y timed) bool {
		if x.at != y.at {
			return x.at < y.at
		}
		return x.off && !y.off
	})
	return events, base
}
