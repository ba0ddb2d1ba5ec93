package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/christianjuth/drum-music-generator/internal/aligner"
	"github.com/christianjuth/drum-music-generator/internal/config"
	"github.com/christianjuth/drum-music-generator/internal/notation"
)

var checkFile string

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "validate a groove file instead of voices")
	rootCmd.AddCommand(checkCmd)
}

var errInvalidVoices = errors.New("invalid voices")

var checkCmd = &cobra.Command{
	Use:   "check [voice...]",
	Short: "Validate voices or a groove file",
	Example: `  drumgen check "K/q, K/q, K/q, K/q" "/q, S/q, /q, S/q"
  drumgen check -f groove.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if checkFile != "" {
			g, err := config.Load(checkFile)
			if err != nil {
				return err
			}
			upper, lower := g.Voices()
			args = append(upper, lower...)
		}
		if len(args) == 0 {
			return errors.New("nothing to check")
		}
		var patterns []notation.Pattern
		failed := false
		for i, v := range args {
			p, err := notation.Parse(v)
			if err != nil {
				fmt.Fprintf(out, "voice %d: %v\n", i, err)
				failed = true
				continue
			}
			patterns = append(patterns, p)
			fmt.Fprintf(out, "voice %d: %s (%d sixteenths, %g wholes)\n", i, p, p.Ticks(), p.Duration())
		}
		if failed {
			return errInvalidVoices
		}
		a, err := aligner.New(patterns)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pass: %g wholes\n", a.CycleLength())
		return nil
	},
}
