package effects

import (
	"math"
	"testing"
)

func TestDryBusIsBypassed(t *testing.T) {
	b := NewBus(48000, Dry())
	if !b.Bypassed() {
		t.Fatalf("dry bus has stages")
	}
	buf := []float32{0.5, -0.25, 1, 1}
	b.Process(buf)
	if buf[0] != 0.5 || buf[1] != -0.25 || buf[2] != 1 {
		t.Fatalf("dry bus changed audio: %v", buf)
	}
}

func TestGlueReducesLoudSignal(t *testing.T) {
	b := NewBus(48000, Settings{Threshold: -10, Ratio: 4, Attack: 1, Release: 50})
	buf := make([]float32, 2000)
	for i := range buf {
		buf[i] = 1
	}
	b.Process(buf)
	if l := buf[len(buf)-2]; l >= 1 {
		t.Fatalf("compressor should reduce loud signals, got %f", l)
	}
	if buf[len(buf)-2] != buf[len(buf)-1] {
		t.Fatalf("channels compressed differently")
	}
}

func TestGlueLeavesQuietSignal(t *testing.T) {
	b := NewBus(48000, Settings{Threshold: -6, Ratio: 4, Attack: 1, Release: 50})
	buf := make([]float32, 200)
	for i := range buf {
		buf[i] = 0.1
	}
	b.Process(buf)
	for _, s := range buf {
		if s != 0.1 {
			t.Fatalf("quiet sample changed to %v", s)
		}
	}
}

func TestRoomAddsTail(t *testing.T) {
	b := NewBus(44100, Settings{Room: 0.5, Mix: 0.5, Decay: 0.7})
	buf := make([]float32, 20000)
	buf[0], buf[1] = 1, 1
	b.Process(buf)
	var tail float64
	for _, s := range buf[2000:] {
		tail = math.Max(tail, math.Abs(float64(s)))
	}
	if tail < 0.001 {
		t.Fatalf("expected reverb tail")
	}

	b.Reset()
	silent := make([]float32, 2000)
	b.Process(silent)
	for _, s := range silent {
		if s != 0 {
			t.Fatalf("tail survived reset")
		}
	}
}

func TestDefaultSettingsBuildBothStages(t *testing.T) {
	b := NewBus(48000, DefaultSettings())
	if len(b.stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(b.stages))
	}
}
