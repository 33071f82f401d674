package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Truncate cuts s to width cells, marking the cut with an ellipsis. Styled
// text keeps its escape sequences.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// oneLine collapses newlines so a cell fits a table row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
