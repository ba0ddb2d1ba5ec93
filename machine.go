// Package drumgen is a drum machine: looping voices written in a compact
// rhythm notation are played through a cue player, optionally against a
// metronome, and rendered as notation bars that follow the transport.
package drumgen

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/measure"
	"github.com/christianjuth/drum-music-generator/internal/notation"
	"github.com/christianjuth/drum-music-generator/internal/scheduler"
)

// MetronomeVoice accents the downbeat of every measure.
const MetronomeVoice = "M/q, m/q, m/q, m/q"

// CuePlayerFactory builds the cue player once the kit library is known.
type CuePlayerFactory func(kits kit.Library) (scheduler.CuePlayer, error)

type Option func(*machineConfig)

type machineConfig struct {
	kit       string
	kits      kit.Library
	bpm       float64
	metronome bool
	factory   CuePlayerFactory
	log       logrus.FieldLogger
	schedOpts []scheduler.Option
}

func defaultMachineConfig() machineConfig {
	return machineConfig{
		kit:  kit.DefaultKit,
		kits: kit.DefaultLibrary(),
		bpm:  scheduler.DefaultBPM,
		log:  logrus.StandardLogger(),
	}
}

func WithKit(name string) Option {
	return func(cfg *machineConfig) {
		cfg.kit = name
	}
}

// WithKits replaces the kit library.
func WithKits(kits kit.Library) Option {
	return func(cfg *machineConfig) {
		cfg.kits = kits
	}
}

func WithTempo(bpm float64) Option {
	return func(cfg *machineConfig) {
		cfg.bpm = bpm
	}
}

// WithMetronome runs a click track alongside the drums. The two loops share
// the tempo but are not phase locked.
func WithMetronome(enabled bool) Option {
	return func(cfg *machineConfig) {
		cfg.metronome = enabled
	}
}

func WithCuePlayerFactory(f CuePlayerFactory) Option {
	return func(cfg *machineConfig) {
		cfg.factory = f
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *machineConfig) {
		cfg.log = l
	}
}

// WithSchedulerOptions passes extra options to every scheduler the machine
// creates.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(cfg *machineConfig) {
		cfg.schedOpts = append(cfg.schedOpts, opts...)
	}
}

type Machine struct {
	log    logrus.FieldLogger
	kits   kit.Library
	tempo  *scheduler.Tempo
	player scheduler.CuePlayer

	drums     *scheduler.Scheduler
	metronome *scheduler.Scheduler

	mu    sync.Mutex
	kit   kit.Kit
	upper []notation.Pattern
	lower []notation.Pattern
}

// New builds a stopped machine. upper voices are drawn stem up, lower voices
// stem down; all of them play together.
func New(upper, lower []string, opts ...Option) (*Machine, error) {
	cfg := defaultMachineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	up, down, all, err := parseStaves(upper, lower)
	if err != nil {
		return nil, err
	}
	k, err := cfg.kits.Get(cfg.kit)
	if err != nil {
		return nil, err
	}
	var player scheduler.CuePlayer = scheduler.Discard
	if cfg.factory != nil {
		if player, err = cfg.factory(cfg.kits); err != nil {
			return nil, fmt.Errorf("cue player: %w", err)
		}
	}

	m := &Machine{
		log:    cfg.log,
		kits:   cfg.kits,
		tempo:  scheduler.NewTempo(cfg.bpm),
		player: player,
		kit:    k,
		upper:  up,
		lower:  down,
	}
	common := []scheduler.Option{
		scheduler.WithTempo(m.tempo),
		scheduler.WithLogger(cfg.log),
		scheduler.WithCues(k, player),
	}
	m.drums, err = scheduler.New(all, append(append(common, scheduler.WithName("drums")), cfg.schedOpts...)...)
	if err != nil {
		return nil, err
	}
	if cfg.metronome {
		click := []notation.Pattern{notation.MustParse(MetronomeVoice)}
		m.metronome, err = scheduler.New(click, append(append(common, scheduler.WithName("metronome")), cfg.schedOpts...)...)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseStaves(upper, lower []string) (up, down, all []notation.Pattern, err error) {
	if up, err = notation.ParseAll(upper); err != nil {
		return nil, nil, nil, fmt.Errorf("upper %w", err)
	}
	if down, err = notation.ParseAll(lower); err != nil {
		return nil, nil, nil, fmt.Errorf("lower %w", err)
	}
	for _, staff := range [][]notation.Pattern{up, down} {
		if _, err := aligner.New(staff); err != nil {
			return nil, nil, nil, err
		}
	}
	all = append(append(all, up...), down...)
	if _, err := aligner.New(all); err != nil {
		return nil, nil, nil, err
	}
	return up, down, all, nil
}

// Start plays from the top. It is a no-op while running.
func (m *Machine) Start() {
	m.drums.Start()
	if m.metronome != nil {
		m.metronome.Start()
	}
}

// Stop halts the drums and the metronome and rewinds both.
func (m *Machine) Stop() {
	m.drums.Stop()
	if m.metronome != nil {
		m.metronome.Stop()
	}
}

func (m *Machine) Running() bool { return m.drums.Running() }

// Status reports the drum transport.
func (m *Machine) Status() scheduler.Status { return m.drums.Status() }

// Watch returns the drum transport's status channel. Only the most recent
// Watch channel receives events.
func (m *Machine) Watch() <-chan scheduler.Status { return m.drums.Watch() }

// Metronome reports whether a click track is configured.
func (m *Machine) Metronome() bool { return m.metronome != nil }

// SetTempo clamps bpm and applies it from the next step of every loop.
func (m *Machine) SetTempo(bpm float64) float64 {
	bpm = m.tempo.Set(bpm)
	m.log.WithField("bpm", bpm).Info("tempo changed")
	return bpm
}

func (m *Machine) Tempo() float64 { return m.tempo.BPM() }

// SetKit switches kits without interrupting playback.
func (m *Machine) SetKit(name string) error {
	k, err := m.kits.Get(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.kit = k
	m.mu.Unlock()
	m.drums.SetCues(k, m.player)
	if m.metronome != nil {
		m.metronome.SetCues(k, m.player)
	}
	m.log.WithField("kit", name).Info("kit changed")
	return nil
}

func (m *Machine) Kit() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kit.Name
}

// Kits lists the available kit names.
func (m *Machine) Kits() []string { return m.kits.Names() }

// SetVoices replaces both staves. A running machine picks the new voices up
// at the next measure boundary.
func (m *Machine) SetVoices(upper, lower []string) error {
	up, down, all, err := parseStaves(upper, lower)
	if err != nil {
		return err
	}
	if err := m.drums.SetVoices(all); err != nil {
		return err
	}
	m.mu.Lock()
	m.upper, m.lower = up, down
	m.mu.Unlock()
	return nil
}

// Voices returns the current staves in canonical notation.
func (m *Machine) Voices() (upper, lower []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return patternStrings(m.upper), patternStrings(m.lower)
}

func patternStrings(ps []notation.Pattern) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

// Render returns the bars of one pass with the note under the transport
// highlighted. Each call builds its own aligners.
func (m *Machine) Render(contrast bool) []measure.Bar {
	m.mu.Lock()
	upper, lower := m.upper, m.lower
	m.mu.Unlock()
	bars, err := RenderBars(upper, lower, m.Status().Position, contrast)
	if err != nil {
		// Staves were validated when they were set.
		panic(err)
	}
	return bars
}

// RenderBars groups upper and lower staves over the pass length of both
// together, so the bars line up with playback positions.
func RenderBars(upper, lower []notation.Pattern, highlightAt float64, contrast bool) ([]measure.Bar, error) {
	all, err := aligner.New(append(append([]notation.Pattern(nil), upper...), lower...))
	if err != nil {
		return nil, err
	}
	cycle := all.CycleTicks()
	up, err := aligner.New(stretch(upper, cycle))
	if err != nil {
		return nil, err
	}
	down, err := aligner.New(stretch(lower, cycle))
	if err != nil {
		return nil, err
	}
	return measure.Render(up, down, highlightAt, contrast), nil
}

// stretch repeats each pattern so that it lasts exactly cycle ticks.
func stretch(ps []notation.Pattern, cycle int) []notation.Pattern {
	out := make([]notation.Pattern, len(ps))
	for i, p := range ps {
		reps := cycle / p.Ticks()
		tokens := make([]notation.Token, 0, p.Len()*reps)
		for r := 0; r < reps; r++ {
			tokens = append(tokens, p.Tokens()...)
		}
		out[i] = notation.NewPattern(tokens)
	}
	return out
}

// Close stops playback, waits for the loops to exit and closes the cue player
// if it holds resources.
func (m *Machine) Close() error {
	m.Stop()
	m.drums.Wait()
	if m.metronome != nil {
		m.metronome.Wait()
	}
	if c, ok := m.player.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
