package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/christianjuth/drum-music-generator/internal/config"
)

var log = logrus.New()

var (
	verbose       bool
	flagTempo     float64
	flagKit       string
	flagMetronome bool
	flagRepeat    int
)

var rootCmd = &cobra.Command{
	Use:   "drumgen",
	Short: "Loop drum grooves written in rhythm notation",
	Long: `drumgen plays, renders and exports drum grooves.

Voices are comma separated beats of SYMBOL/CODE, for example
"K/q, /8, S/8, H/8t". Symbols: K kick, S snare, s ghost snare, H hi-hat,
M and m metronome clicks. Codes: h, q, 8, 8t, 16. An empty symbol is a rest.
Grooves can be read from a YAML file given as the first argument.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "log every step")
	pf.Float64Var(&flagTempo, "tempo", config.DefaultTempo, "tempo in BPM (40-300)")
	pf.StringVar(&flagKit, "kit", "", "drum kit name")
	pf.BoolVar(&flagMetronome, "metronome", false, "play a click track")
	pf.IntVar(&flagRepeat, "repeat", config.DefaultRepeat, "times each voice is looped within a pass")
}

func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

// loadGroove reads the groove file named by args, or the default groove, and
// applies any groove flags set on the command line.
func loadGroove(cmd *cobra.Command, args []string) (config.Groove, error) {
	g := config.Default()
	if len(args) > 0 {
		var err error
		if g, err = config.Load(args[0]); err != nil {
			return config.Groove{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("tempo") {
		g.Tempo = flagTempo
	}
	if flags.Changed("kit") {
		g.Kit = flagKit
	}
	if flags.Changed("metronome") {
		g.Metronome = flagMetronome
	}
	if flags.Changed("repeat") {
		g.Repeat = flagRepeat
	}
	if err := g.Validate(); err != nil {
		return config.Groove{}, err
	}
	return g, nil
}
