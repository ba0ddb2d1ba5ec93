// Package config loads groove files: YAML documents describing the voices,
// tempo, kit and metronome of a drum machine.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/effects"
	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/notation"
)

const (
	DefaultKick  = "K/q, K/q, K/q, K/q"
	DefaultSnare = "/q, S/q, /q, S/q"
	DefaultHiHat = "H/8, H/8, H/8, H/8, H/8, H/8, H/8, H/16, H/16"

	DefaultTempo  = 120
	DefaultRepeat = 2
)

var (
	ErrNoVoices      = errors.New("no voices")
	ErrInvalidTempo  = errors.New("tempo must be positive")
	ErrInvalidRepeat = errors.New("repeat must be at least 1")
	ErrInvalidBus    = errors.New("bus setting out of range")
)

// FieldError reports which field of a groove file is invalid.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

type Groove struct {
	Tempo     float64          `yaml:"tempo"`
	Kit       string           `yaml:"kit"`
	Metronome bool             `yaml:"metronome"`
	Repeat    int              `yaml:"repeat"`
	Upper     []string         `yaml:"upper"`
	Lower     []string         `yaml:"lower"`
	Kits      kit.Library      `yaml:"kits,omitempty"`
	Bus       effects.Settings `yaml:"bus"`
}

// Default returns the stock groove: snare and hi-hat over a four on the
// floor kick, each looped twice.
func Default() Groove {
	return Groove{
		Tempo:  DefaultTempo,
		Kit:    kit.DefaultKit,
		Repeat: DefaultRepeat,
		Upper:  []string{DefaultSnare, DefaultHiHat},
		Lower:  []string{DefaultKick},
		Bus:    effects.DefaultSettings(),
	}
}

// Load reads and validates a groove file.
func Load(path string) (Groove, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Groove{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return Groove{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes data over Default and validates the result. Fields absent
// from data keep their defaults.
func Parse(data []byte) (Groove, error) {
	g := Default()
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Groove{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Groove{}, err
	}
	return g, nil
}

// Library returns the built-in kits with the groove's kits merged over them.
func (g Groove) Library() kit.Library {
	return kit.DefaultLibrary().Merge(g.Kits)
}

// Voices returns the upper and lower voices with Repeat applied.
func (g Groove) Voices() (upper, lower []string) {
	n := g.Repeat
	if n < 1 {
		n = 1
	}
	return notation.RepeatAll(g.Upper, n), notation.RepeatAll(g.Lower, n)
}

// Validate checks every field that playback depends on.
func (g Groove) Validate() error {
	if g.Tempo <= 0 {
		return &FieldError{Field: "tempo", Err: ErrInvalidTempo}
	}
	if g.Repeat < 1 {
		return &FieldError{Field: "repeat", Err: ErrInvalidRepeat}
	}
	if err := validateBus(g.Bus); err != nil {
		return &FieldError{Field: "bus", Err: err}
	}
	if _, err := g.Library().Get(g.Kit); err != nil {
		return &FieldError{Field: "kit", Err: err}
	}
	upper, lower := g.Voices()
	var all []notation.Pattern
	for _, staff := range []struct {
		field  string
		voices []string
	}{{"upper", upper}, {"lower", lower}} {
		if len(staff.voices) == 0 {
			return &FieldError{Field: staff.field, Err: ErrNoVoices}
		}
		patterns, err := notation.ParseAll(staff.voices)
		if err != nil {
			return &FieldError{Field: staff.field, Err: err}
		}
		all = append(all, patterns...)
	}
	if _, err := aligner.New(all); err != nil {
		return &FieldError{Field: "voices", Err: err}
	}
	return nil
}

func validateBus(s effects.Settings) error {
	for _, f := range []struct {
		name      string
		v, lo, hi float64
	}{
		{"room", s.Room, 0, 1},
		{"mix", s.Mix, 0, 1},
		{"decay", s.Decay, 0, 0.95},
		{"threshold", s.Threshold, -60, 0},
	} {
		if f.v < f.lo || f.v > f.hi {
			return fmt.Errorf("%w: %s %g not in [%g, %g]", ErrInvalidBus, f.name, f.v, f.lo, f.hi)
		}
	}
	if s.Threshold < 0 && s.Ratio < 1 {
		return fmt.Errorf("%w: ratio %g below 1", ErrInvalidBus, s.Ratio)
	}
	return nil
}
