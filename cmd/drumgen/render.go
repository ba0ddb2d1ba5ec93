package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	drumgen "github.com/christianjuth/drum-music-generator"
	"github.com/christianjuth/drum-music-generator/internal/notation"
	"github.com/christianjuth/drum-music-generator/internal/termview"
)

var (
	renderContrast  bool
	renderHighlight float64
	renderJSON      bool
	renderPlain     bool
	renderPerLine   int
)

func init() {
	f := renderCmd.Flags()
	f.BoolVar(&renderContrast, "contrast", false, "dim every note that is not highlighted")
	f.Float64Var(&renderHighlight, "highlight", -1, "position in whole notes to highlight")
	f.BoolVar(&renderJSON, "json", false, "print bars as JSON")
	f.BoolVar(&renderPlain, "plain", false, "no colors")
	f.IntVar(&renderPerLine, "bars-per-line", 4, "bars per output line (0 = all)")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [groove.yml]",
	Short: "Print the score of one pass",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGroove(cmd, args)
		if err != nil {
			return err
		}
		upperVoices, lowerVoices := g.Voices()
		upper, err := notation.ParseAll(upperVoices)
		if err != nil {
			return err
		}
		lower, err := notation.ParseAll(lowerVoices)
		if err != nil {
			return err
		}
		bars, err := drumgen.RenderBars(upper, lower, renderHighlight, renderContrast)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if renderJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(bars)
		}
		styles := termview.DefaultStyles()
		if renderPlain {
			styles = termview.PlainStyles()
		}
		fmt.Fprintln(out, termview.Render(bars, termview.Options{Styles: styles, BarsPerLine: renderPerLine}))
		return nil
	},
}
