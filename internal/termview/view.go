// Package termview draws bars as a two-line drum tab for terminals.
package termview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/christianjuth/drum-music-generator/internal/measure"
)

// CellWidth is the number of columns per sixteenth.
const CellWidth = 2

var glyphs = map[string]string{
	measure.KeyKick:        "K",
	measure.KeySnareAccent: "S",
	measure.KeySnareQuiet:  "s",
	measure.KeyHiHat:       "x",
}

type Styles struct {
	Normal      lipgloss.Style
	Highlighted lipgloss.Style
	Dimmed      lipgloss.Style
	Rule        lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Normal:      lipgloss.NewStyle(),
		Highlighted: lipgloss.NewStyle().Background(lipgloss.Color("#7D56F4")).Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		Dimmed:      lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		Rule:        lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"}),
	}
}

// PlainStyles renders without any escape sequences.
func PlainStyles() Styles {
	return Styles{
		Normal:      lipgloss.NewStyle(),
		Highlighted: lipgloss.NewStyle(),
		Dimmed:      lipgloss.NewStyle(),
		Rule:        lipgloss.NewStyle(),
	}
}

type Options struct {
	Styles      Styles
	BarsPerLine int // 0 puts every bar on one line
}

// Render lays bars out left to right, upper staff above lower staff.
func Render(bars []measure.Bar, opts Options) string {
	if len(bars) == 0 {
		return ""
	}
	per := opts.BarsPerLine
	if per <= 0 {
		per = len(bars)
	}
	var systems []string
	for start := 0; start < len(bars); start += per {
		end := min(start+per, len(bars))
		systems = append(systems, system(bars[start:end], opts.Styles))
	}
	return strings.Join(systems, "\n")
}

func system(bars []measure.Bar, st Styles) string {
	var upper, lower strings.Builder
	open := st.Rule.Render("|")
	upper.WriteString(open)
	lower.WriteString(open)
	for _, b := range bars {
		barline := "|"
		if b.RepeatEnd {
			barline = ":|"
		}
		upper.WriteString(staff(b.Upper, st))
		upper.WriteString(st.Rule.Render(barline))
		lower.WriteString(staff(b.Lower, st))
		lower.WriteString(st.Rule.Render(barline))
	}
	return lipgloss.JoinVertical(lipgloss.Left, upper.String(), lower.String())
}

func staff(m measure.Measure, st Styles) string {
	var sb strings.Builder
	for _, n := range m {
		style := st.Normal
		switch n.Highlight {
		case measure.Highlighted:
			style = st.Highlighted
		case measure.Dimmed:
			style = st.Dimmed
		}
		sb.WriteString(style.Render(cell(n)))
	}
	return sb.String()
}

// cell draws a note as its glyphs followed by a sustain fill.
func cell(n measure.Note) string {
	width := n.Ticks * CellWidth
	head := "-"
	if !n.Rest {
		var g strings.Builder
		for _, k := range n.Keys {
			g.WriteString(glyphs[k])
		}
		head = g.String()
	}
	if len(head) > width {
		head = head[:width]
	}
	fill := "-"
	if !n.Rest {
		fill = " "
	}
	return head + strings.Repeat(fill, width-len(head))
}
