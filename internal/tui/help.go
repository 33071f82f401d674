package tui

import (
	_ "embed"

	"github.com/charmbracelet/glamour"
)

//go:embed help.md
var helpMarkdown string

// renderHelp renders the help page for width. It falls back to the raw
// markdown when rendering fails.
func renderHelp(width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
