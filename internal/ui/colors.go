package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Scarlet accent matching the Last.fm brand, neutral greys elsewhere.
var styles = NewPalette("#D51007", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet of named [lipgloss.Style] fields,
// one per message kind the views render
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(title, ok, err, warn, help string) *Palette {
	return &Palette{
		title: NewBold(title).MarginBottom(1),
		ok:    NewBold(ok),
		err:   NewBold(err),
		warn:  NewStyle(warn),
		help:  NewEm(help),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
