package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	drumgen "github.com/christianjuth/drum-music-generator"
	"github.com/christianjuth/drum-music-generator/internal/audio"
	"github.com/christianjuth/drum-music-generator/internal/config"
	"github.com/christianjuth/drum-music-generator/internal/drumsynth"
	"github.com/christianjuth/drum-music-generator/internal/midiexport"
	"github.com/christianjuth/drum-music-generator/internal/notation"
)

var (
	exportFormat string
	exportOut    string
	exportCycles int
	exportTail   float64
)

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFormat, "format", "mid", "output format: mid|wav")
	f.StringVarP(&exportOut, "out", "o", "", "output file (default: random name in the working directory)")
	f.IntVar(&exportCycles, "cycles", 1, "passes to write")
	f.Float64Var(&exportTail, "tail", 1, "seconds of decay appended to wav output")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [groove.yml]",
	Short: "Write a groove as a MIDI or WAV file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGroove(cmd, args)
		if err != nil {
			return err
		}
		format := strings.ToLower(strings.TrimPrefix(exportFormat, "."))
		if format != "mid" && format != "wav" {
			return fmt.Errorf("invalid --format %q (expected mid|wav)", exportFormat)
		}
		path := exportOut
		if path == "" {
			path = "groove-" + uuid.NewString()[:8] + "." + format
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		if format == "mid" {
			err = writeMIDI(w, g, path)
		} else {
			err = writeWAV(w, g)
		}
		if err == nil {
			err = w.Flush()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"file": path, "cycles": exportCycles}).Info("exported")
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func groovePatterns(g config.Groove) ([]notation.Pattern, error) {
	upper, lower := g.Voices()
	return notation.ParseAll(append(upper, lower...))
}

func writeMIDI(w *bufio.Writer, g config.Groove, name string) error {
	voices, err := groovePatterns(g)
	if err != nil {
		return err
	}
	return midiexport.Export(w, voices, midiexport.Options{BPM: g.Tempo, Cycles: exportCycles, Name: name})
}

func writeWAV(w *bufio.Writer, g config.Groove) error {
	voices, err := groovePatterns(g)
	if err != nil {
		return err
	}
	k, err := g.Library().Get(g.Kit)
	if err != nil {
		return err
	}
	hits, length, err := drumgen.Timeline(voices, k.CueMap(), g.Tempo, exportCycles)
	if err != nil {
		return err
	}
	samples := drumgen.RenderSamples(hits, k, audio.DefaultSampleRate, length+exportTail,
		drumsynth.WithBus(g.Bus), drumsynth.WithLogger(log))
	return drumgen.WriteWAV(w, samples, audio.DefaultSampleRate, 2)
}
