package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/bep/debounce"
	"github.com/spf13/cobra"

	drumgen "github.com/christianjuth/drum-music-generator"
	"github.com/christianjuth/drum-music-generator/internal/audio"
	"github.com/christianjuth/drum-music-generator/internal/config"
	"github.com/christianjuth/drum-music-generator/internal/drumsynth"
	"github.com/christianjuth/drum-music-generator/internal/effects"
	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/scheduler"
	"github.com/christianjuth/drum-music-generator/internal/termview"
)

var (
	playLoops int
	playQuiet bool
)

func init() {
	playCmd.Flags().IntVar(&playLoops, "loops", 0, "stop after N passes (0 = until interrupted)")
	playCmd.Flags().BoolVar(&playQuiet, "no-score", false, "do not draw the score")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [groove.yml]",
	Short: "Play a groove through the speakers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

// speaker is a synthesizer wired to the audio output.
type speaker struct {
	*drumsynth.Engine
	out *audio.Output
}

func (s *speaker) Close() error { return s.out.Close() }

func speakerFactory(bus effects.Settings) drumgen.CuePlayerFactory {
	return func(kits kit.Library) (scheduler.CuePlayer, error) {
		engine := drumsynth.New(audio.DefaultSampleRate, kits,
			drumsynth.WithBus(bus), drumsynth.WithLogger(log))
		out, err := audio.NewOutput(audio.DefaultSampleRate, engine)
		if err != nil {
			return nil, err
		}
		out.Play()
		return &speaker{Engine: engine, out: out}, nil
	}
}

func newMachine(g config.Groove, player drumgen.CuePlayerFactory) (*drumgen.Machine, error) {
	upper, lower := g.Voices()
	opts := []drumgen.Option{
		drumgen.WithKits(g.Library()),
		drumgen.WithKit(g.Kit),
		drumgen.WithTempo(g.Tempo),
		drumgen.WithMetronome(g.Metronome),
		drumgen.WithLogger(log),
	}
	if player != nil {
		opts = append(opts, drumgen.WithCuePlayerFactory(player))
	}
	return drumgen.New(upper, lower, opts...)
}

func runPlay(cmd *cobra.Command, args []string) error {
	g, err := loadGroove(cmd, args)
	if err != nil {
		return err
	}
	m, err := newMachine(g, speakerFactory(g.Bus))
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	styles := termview.DefaultStyles()
	draw := func() {
		score := termview.Render(m.Render(false), termview.Options{Styles: styles, BarsPerLine: 4})
		fmt.Fprintf(out, "\033[H\033[2J%s\n\n%.0f BPM  kit %s  position %.4g\n", score, m.Tempo(), m.Kit(), m.Status().Position)
	}
	redraw := debounce.New(20 * time.Millisecond)

	ch := m.Watch()
	m.Start()
	passes := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-ch:
			switch st.Kind {
			case scheduler.EventStep:
				if !playQuiet {
					redraw(draw)
				}
			case scheduler.EventLoopCompleted:
				passes++
				log.WithField("pass", passes).Debug("pass completed")
				if playLoops > 0 && passes >= playLoops {
					return nil
				}
			}
		}
	}
}
