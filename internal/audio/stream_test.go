package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

type constSource float32

func (c constSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = float32(c)
	}
}

func sampleAt(p []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
}

func TestStreamReaderEncodesFrames(t *testing.T) {
	r := NewStreamReader(constSource(0.25))
	p := make([]byte, 8*16+3)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 8*16 {
		t.Fatalf("n = %d, want %d", n, 8*16)
	}
	for i := 0; i < 32; i++ {
		if got := sampleAt(p, i); got != 0.25 {
			t.Fatalf("sample %d = %v, want 0.25", i, got)
		}
	}
}

func TestStreamReaderClips(t *testing.T) {
	r := NewStreamReader(constSource(-3))
	p := make([]byte, 8)
	if _, err := r.Read(p); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := sampleAt(p, 0); got != -1 {
		t.Fatalf("sample = %v, want -1", got)
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	r := NewStreamReader(constSource(1))
	n, err := r.Read(make([]byte, 7))
	if n != 0 || err != nil {
		t.Fatalf("read = %d, %v; want 0, nil", n, err)
	}
}

func TestStreamReaderEOFAfterClose(t *testing.T) {
	r := NewStreamReader(constSource(1))
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := r.Read(make([]byte, 64)); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}
