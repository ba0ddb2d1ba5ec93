package drumgen

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/drumsynth"
	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/notation"
	"github.com/christianjuth/drum-music-generator/internal/scheduler"
)

// Hit is one cue at a point in time.
type Hit struct {
	Cue      string  `json:"cue"`
	Gain     float64 `json:"gain"`
	Seconds  float64 `json:"seconds"`
	Position float64 `json:"position"` // whole notes since the first pass began
}

// Timeline lists the cues the scheduler would dispatch over cycles passes of
// voices at bpm, without sleeping. It also returns the total length in
// seconds.
func Timeline(voices []notation.Pattern, cues kit.CueMap, bpm float64, cycles int) ([]Hit, float64, error) {
	a, err := aligner.New(voices)
	if err != nil {
		return nil, 0, err
	}
	if cues == nil {
		cues = kit.DefaultCueMap()
	}
	if cycles < 1 {
		cycles = 1
	}
	bpm = scheduler.NewTempo(bpm).BPM()
	secondsPerWhole := 60 / bpm * 4

	var hits []Hit
	var base float64
	for c := 0; c < cycles; c++ {
		a.Reset()
		for a.HasNext() {
			ev := a.Next()
			pos := base + ev.Position
			for _, cue := range cues.Resolve(ev.Triggers) {
				hits = append(hits, Hit{Cue: cue.Name, Gain: cue.Gain, Seconds: pos * secondsPerWhole, Position: pos})
			}
		}
		base += a.CycleLength()
	}
	return hits, base * secondsPerWhole, nil
}

// RenderSamples plays hits through a drum synthesizer voiced by k and returns
// interleaved stereo samples. Hits must be in time order.
func RenderSamples(hits []Hit, k kit.Kit, sampleRate int, seconds float64, opts ...drumsynth.Option) []float32 {
	engine := drumsynth.New(sampleRate, kit.Library{k.Name: k}, opts...)
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	cursor := 0
	for _, h := range hits {
		at := int(math.Round(h.Seconds * float64(sampleRate)))
		if at >= frames {
			break
		}
		if at > cursor {
			engine.Process(out[cursor*2 : at*2])
			cursor = at
		}
		engine.Play(k.Name, h.Cue, h.Gain)
	}
	engine.Process(out[cursor*2:])
	return out
}

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

const wavFormatFloat = 3

// WriteWAV writes samples as a 32-bit float WAV file.
func WriteWAV(w io.Writer, samples []float32, sampleRate, channels int) error {
	dataSize := uint32(len(samples) * 4)
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        wavFormatFloat,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 4),
		BlockAlign:    uint16(channels * 4),
		BitsPerSample: 32,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("wav header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("wav data: %w", err)
	}
	return nil
}
