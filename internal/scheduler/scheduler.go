// Package scheduler drives an aligner in real time, dispatching audio cues
// and reporting the transport position once per step.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/notation"
)

// Stopped is the transport position reported while not running.
const Stopped = -1.0

// CuePlayer receives named cues. Play must not block; it is called from the
// step loop.
type CuePlayer interface {
	Play(kit, cue string, gain float64)
}

type CuePlayerFunc func(kit, cue string, gain float64)

func (f CuePlayerFunc) Play(kit, cue string, gain float64) { f(kit, cue, gain) }

// Discard drops every cue.
var Discard CuePlayer = CuePlayerFunc(func(string, string, float64) {})

type EventKind int

const (
	EventStarted EventKind = iota
	EventStopped
	EventStep
	EventLoopCompleted
	EventVoicesSwapped
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventStep:
		return "step"
	case EventLoopCompleted:
		return "loop"
	case EventVoicesSwapped:
		return "swapped"
	}
	return "unknown"
}

// Status is a transport snapshot. Watch delivers one per step and one on each
// start and stop.
type Status struct {
	Kind     EventKind `json:"-"`
	Running  bool      `json:"running"`
	Position float64   `json:"position"`
	Triggers string    `json:"triggers,omitempty"`
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

type Option func(*config)

type config struct {
	name       string
	tempo      *Tempo
	log        logrus.FieldLogger
	sleep      SleepFunc
	kit        kit.Kit
	player     CuePlayer
	alignerOps []aligner.Option
}

// WithTempo shares t with other schedulers.
func WithTempo(t *Tempo) Option {
	return func(c *config) {
		c.tempo = t
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithName labels the scheduler in log output.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithSleep replaces the timer used between steps.
func WithSleep(fn SleepFunc) Option {
	return func(c *config) {
		c.sleep = fn
	}
}

func WithCues(k kit.Kit, p CuePlayer) Option {
	return func(c *config) {
		c.kit = k
		c.player = p
	}
}

func WithAlignerOptions(opts ...aligner.Option) Option {
	return func(c *config) {
		c.alignerOps = append(c.alignerOps, opts...)
	}
}

type cueTarget struct {
	kit    string
	cues   kit.CueMap
	player CuePlayer
}

type Scheduler struct {
	id         string
	log        logrus.FieldLogger
	tempo      *Tempo
	sleep      SleepFunc
	alignerOps []aligner.Option
	target     atomic.Pointer[cueTarget]

	mu       sync.Mutex
	aligner  *aligner.Aligner
	pending  *aligner.Aligner
	running  bool
	position float64
	cancel   context.CancelFunc
	done     chan struct{}

	eventMu sync.Mutex
	eventCh chan Status
}

// New validates the voices and returns a stopped scheduler. Malformed voice
// sets are rejected here, before Start can be called.
func New(voices []notation.Pattern, opts ...Option) (*Scheduler, error) {
	cfg := config{
		log:    logrus.StandardLogger(),
		sleep:  sleepContext,
		kit:    kit.Acoustic(),
		player: Discard,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tempo == nil {
		cfg.tempo = NewTempo(DefaultBPM)
	}
	a, err := aligner.New(voices, cfg.alignerOps...)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	fields := logrus.Fields{"scheduler": id}
	if cfg.name != "" {
		fields["name"] = cfg.name
	}
	s := &Scheduler{
		id:         id,
		log:        cfg.log.WithFields(fields),
		tempo:      cfg.tempo,
		sleep:      cfg.sleep,
		alignerOps: cfg.alignerOps,
		aligner:    a,
		position:   Stopped,
	}
	s.SetCues(cfg.kit, cfg.player)
	return s, nil
}

// ID identifies this scheduler in logs.
func (s *Scheduler) ID() string { return s.id }

func (s *Scheduler) Tempo() *Tempo { return s.tempo }

// Start begins playback from position 0. It is a no-op while running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	prev := s.done
	s.mu.Unlock()
	// A stopped loop may still be waking from its last sleep.
	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.position = 0
	done := s.done
	s.mu.Unlock()

	s.log.WithField("bpm", s.tempo.BPM()).Info("playback started")
	s.emit(Status{Kind: EventStarted, Running: true, Position: 0})
	go s.loop(ctx, done)
}

// Stop halts playback and rewinds the voices immediately. A sleep in flight
// is woken but produces no further steps.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.position = Stopped
	s.cancel()
	if s.pending != nil {
		s.aligner, s.pending = s.pending, nil
	}
	s.aligner.Reset()
	s.mu.Unlock()

	s.log.Info("playback stopped")
	s.emit(Status{Kind: EventStopped, Running: false, Position: Stopped})
}

// Wait blocks until the step loop has exited. It returns immediately if the
// scheduler was never started.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the current transport snapshot.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Running: s.running, Position: s.position}
}

// SetVoices replaces the voice set. While stopped the change is immediate;
// while running it takes effect at the next measure boundary. It never
// starts playback.
func (s *Scheduler) SetVoices(voices []notation.Pattern) error {
	a, err := aligner.New(voices, s.alignerOps...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.pending = a
		return nil
	}
	s.aligner, s.pending = a, nil
	return nil
}

// SetCues swaps the kit and cue player used for dispatch. It never starts
// playback.
func (s *Scheduler) SetCues(k kit.Kit, p CuePlayer) {
	if p == nil {
		p = Discard
	}
	s.target.Store(&cueTarget{kit: k.Name, cues: k.CueMap(), player: p})
}

// Watch returns a channel receiving status events. The channel is buffered;
// events are dropped rather than blocking the step loop. Only the most recent
// Watch channel receives events.
func (s *Scheduler) Watch() <-chan Status {
	ch := make(chan Status, 64)
	s.eventMu.Lock()
	s.eventCh = ch
	s.eventMu.Unlock()
	return ch
}

func (s *Scheduler) emit(st Status) {
	s.eventMu.Lock()
	ch := s.eventCh
	s.eventMu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- st:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		d, ok := s.step(ctx)
		if !ok {
			return
		}
		s.sleep(ctx, d)
		if !s.advance(ctx) {
			return
		}
	}
}

// step fires the next event and returns how long to sleep after it.
func (s *Scheduler) step(ctx context.Context) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return 0, false
	}
	ev := s.aligner.Next()
	s.position = ev.Position
	d := s.tempo.StepDuration(ev.Duration)
	target := s.target.Load()
	for _, cue := range target.cues.Resolve(ev.Triggers) {
		target.player.Play(target.kit, cue.Name, cue.Gain)
	}
	s.emit(Status{Kind: EventStep, Running: true, Position: ev.Position, Triggers: ev.Triggers})
	s.log.WithFields(logrus.Fields{
		"position": ev.Position,
		"triggers": ev.Triggers,
		"sleep":    d,
	}).Debug("step")
	return d, true
}

// advance handles the end of a pass and pending voice swaps after a sleep.
func (s *Scheduler) advance(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	switch {
	case !s.aligner.HasNext():
		if s.pending != nil {
			s.aligner, s.pending = s.pending, nil
			s.log.Info("voices swapped at loop end")
		}
		s.aligner.Reset()
		s.position = 0
		s.emit(Status{Kind: EventLoopCompleted, Running: true, Position: 0})
	case s.pending != nil && s.aligner.AtMeasureBoundary():
		s.aligner, s.pending = s.pending, nil
		s.aligner.Reset()
		s.position = 0
		s.log.Info("voices swapped at measure boundary")
		s.emit(Status{Kind: EventVoicesSwapped, Running: true, Position: 0})
	}
	return true
}
