package drumgen

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/measure"
	"github.com/christianjuth/drum-music-generator/internal/scheduler"
)

var (
	testUpper = []string{"/q, S/q, /q, S/q", "H/8, H/8, H/8, H/8, H/8, H/8, H/8, H/8"}
	testLower = []string{"K/q, K/q, K/q, K/q"}
)

type recordingPlayer struct {
	mu     sync.Mutex
	plays  []string
	kits   kit.Library
	closed bool
}

func (p *recordingPlayer) Play(kitName, cue string, gain float64) {
	p.mu.Lock()
	p.plays = append(p.plays, kitName+":"+cue)
	p.mu.Unlock()
}

func (p *recordingPlayer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *recordingPlayer) has(entry string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.plays {
		if e == entry {
			return true
		}
	}
	return false
}

// holdSleep never advances past the first step.
func holdSleep(ctx context.Context, d time.Duration) { <-ctx.Done() }

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *recordingPlayer) {
	t.Helper()
	rec := &recordingPlayer{}
	log := logrus.New()
	log.SetOutput(io.Discard)
	base := []Option{
		WithLogger(log),
		WithSchedulerOptions(scheduler.WithSleep(holdSleep)),
		WithCuePlayerFactory(func(kits kit.Library) (scheduler.CuePlayer, error) {
			rec.kits = kits
			return rec, nil
		}),
	}
	m, err := New(testUpper, testLower, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return m, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMachineDefaults(t *testing.T) {
	m, rec := newTestMachine(t)
	if m.Kit() != kit.DefaultKit || m.Tempo() != scheduler.DefaultBPM {
		t.Fatalf("kit %q tempo %v", m.Kit(), m.Tempo())
	}
	if m.Running() || m.Metronome() {
		t.Fatalf("new machine should be stopped without metronome")
	}
	if st := m.Status(); st.Position != scheduler.Stopped {
		t.Fatalf("status = %+v", st)
	}
	if len(rec.kits) != 2 || len(m.Kits()) != 2 {
		t.Fatalf("factory saw %d kits", len(rec.kits))
	}
}

func TestMachineStartStop(t *testing.T) {
	m, rec := newTestMachine(t)
	ch := m.Watch()
	m.Start()
	waitFor(t, "first step", func() bool { return rec.has("acoustic:kick") })
	if !m.Running() {
		t.Fatalf("not running after Start")
	}
	for _, entry := range []string{"acoustic:hihat", "acoustic:kick"} {
		if !rec.has(entry) {
			t.Fatalf("missing cue %s", entry)
		}
	}
	if st := <-ch; st.Kind != scheduler.EventStarted {
		t.Fatalf("first event = %v", st.Kind)
	}
	m.Stop()
	if m.Running() || m.Status().Position != scheduler.Stopped {
		t.Fatalf("status after stop = %+v", m.Status())
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !rec.closed {
		t.Fatalf("cue player not closed")
	}
}

func TestMachineMetronome(t *testing.T) {
	m, rec := newTestMachine(t, WithMetronome(true), WithKit("909"))
	if !m.Metronome() {
		t.Fatalf("metronome not configured")
	}
	m.Start()
	waitFor(t, "click", func() bool { return rec.has("909:click1") })
	waitFor(t, "kick", func() bool { return rec.has("909:kick") })
	m.SetTempo(90)
	if m.Tempo() != 90 {
		t.Fatalf("tempo = %v", m.Tempo())
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestMachineSetKit(t *testing.T) {
	m, rec := newTestMachine(t)
	if err := m.SetKit("cowbell"); !errors.Is(err, kit.ErrUnknownKit) {
		t.Fatalf("err = %v, want ErrUnknownKit", err)
	}
	if err := m.SetKit("909"); err != nil {
		t.Fatalf("set kit: %v", err)
	}
	if m.Kit() != "909" || m.Running() {
		t.Fatalf("kit %q running %v", m.Kit(), m.Running())
	}
	m.Start()
	waitFor(t, "909 kick", func() bool { return rec.has("909:kick") })
	m.Close()
}

func TestMachineTempoClamp(t *testing.T) {
	m, _ := newTestMachine(t, WithTempo(20))
	if m.Tempo() != scheduler.MinBPM {
		t.Fatalf("tempo = %v", m.Tempo())
	}
	if got := m.SetTempo(500); got != scheduler.MaxBPM {
		t.Fatalf("tempo = %v", got)
	}
}

func TestMachineRejectsBadInput(t *testing.T) {
	if _, err := New([]string{"S/q, S"}, testLower); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := New(nil, testLower); err == nil {
		t.Fatalf("expected error for empty upper staff")
	}
	if _, err := New(testUpper, testLower, WithKit("cowbell")); !errors.Is(err, kit.ErrUnknownKit) {
		t.Fatalf("err = %v, want ErrUnknownKit", err)
	}
	failing := WithCuePlayerFactory(func(kit.Library) (scheduler.CuePlayer, error) {
		return nil, errors.New("no device")
	})
	if _, err := New(testUpper, testLower, failing); err == nil {
		t.Fatalf("expected factory error")
	}
}

func TestMachineRenderHighlightsTransport(t *testing.T) {
	m, _ := newTestMachine(t)
	bars := m.Render(true)
	if len(bars) != 1 {
		t.Fatalf("bars = %d, want 1", len(bars))
	}
	for _, n := range append(bars[0].Upper, bars[0].Lower...) {
		if n.Highlight != measure.Dimmed {
			t.Fatalf("stopped render highlighted %+v", n)
		}
	}

	m.Start()
	waitFor(t, "running", m.Running)
	bars = m.Render(false)
	if bars[0].Upper[0].Highlight != measure.Highlighted || bars[0].Lower[0].Highlight != measure.Highlighted {
		t.Fatalf("onset at 0 not highlighted: %+v", bars[0])
	}
	if bars[0].Upper[1].Highlight != measure.Normal {
		t.Fatalf("second note = %v", bars[0].Upper[1].Highlight)
	}
	m.Close()
}

func TestMachineSetVoices(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.SetVoices([]string{"S/h, S/h"}, []string{"K/h, K/h, K/h, K/h"}); err != nil {
		t.Fatalf("set voices: %v", err)
	}
	upper, lower := m.Voices()
	if upper[0] != "S/h, S/h" || lower[0] != "K/h, K/h, K/h, K/h" {
		t.Fatalf("voices = %v / %v", upper, lower)
	}
	// The upper staff is repeated to the two-measure pass.
	if bars := m.Render(false); len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if err := m.SetVoices([]string{"S/x"}, lower); err == nil {
		t.Fatalf("expected parse error")
	}
	if upper, _ := m.Voices(); upper[0] != "S/h, S/h" {
		t.Fatalf("failed SetVoices changed voices: %v", upper)
	}
}
