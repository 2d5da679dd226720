package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Shared stylesheet for the fetch progress and cache browse views.
var styles = newPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// palette groups the [lipgloss.Style] values the views render with: the
// fetch header, delivery outcome (ok/err), phase notes and key hints.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette(title, ok, err, warn, help string) *palette {
	return &palette{
		title: boldStyle(title).MarginBottom(1),
		ok:    boldStyle(ok),
		err:   boldStyle(err),
		warn:  fgStyle(warn),
		help:  emStyle(help),
	}
}

func fgStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func boldStyle(fg string) lipgloss.Style {
	return fgStyle(fg).Bold(true)
}

func emStyle(fg string) lipgloss.Style {
	return fgStyle(fg).Italic(true)
}
