package tui

import "github.com/charmbracelet/lipgloss"

// palette holds the styles of one colour scheme.
type palette struct {
	background lipgloss.Color
	title      lipgloss.Style
	text       lipgloss.Style
	muted      lipgloss.Style
	selected   lipgloss.Style
	notice     lipgloss.Style
	err        lipgloss.Style
	modal      lipgloss.Style
}

var (
	dayPalette   = newPalette("", "#F0F0F0", "#B8B8B8", "#6E6E6E", "#C89A3A")
	nightPalette = newPalette("#1E1E1E", "#D8D8D8", "#9A9A9A", "#5A5A5A", "#8FB3FF")
)

func newPalette(background, title, text, muted, accent string) palette {
	base := lipgloss.NewStyle()
	if background != "" {
		base = base.Background(lipgloss.Color(background))
	}
	return palette{
		background: lipgloss.Color(background),
		title:      base.Foreground(lipgloss.Color(title)).Bold(true),
		text:       base.Foreground(lipgloss.Color(text)),
		muted:      base.Foreground(lipgloss.Color(muted)),
		selected:   base.Foreground(lipgloss.Color(accent)).Bold(true),
		notice:     base.Foreground(lipgloss.Color("#52C41A")),
		err:        base.Foreground(lipgloss.Color("#FF4D4F")),
		modal: base.
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color(accent)).
			Padding(1, 2),
	}
}

func paletteFor(night bool) palette {
	if night {
		return nightPalette
	}
	return dayPalette
}

func (p palette) whitespace() []lipgloss.WhitespaceOption {
	if p.background == "" {
		return nil
	}
	return []lipgloss.WhitespaceOption{lipgloss.WithWhitespaceBackground(p.background)}
}
