package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/beequen/beequen/internal/core"
)

// Base styles
var (
	// HeaderStyle is the style for the project bar.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorBackground).
			Padding(0, 1)

	// FooterStyle is the style for the key help line.
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// TabStyle is an inactive editor tab.
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	// ActiveTabStyle is the current editor tab.
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorHighlight).
			Bold(true).
			Padding(0, 1)

	// PaneStyle frames the editor and the results.
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	// FocusedPaneStyle frames the pane that receives keys.
	FocusedPaneStyle = PaneStyle.
				BorderForeground(ColorPrimary)

	RunningStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	CompletedStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	CanceledStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// ErrorStyle is for query and backend errors.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// SubtleStyle is for hints.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// StatusStyle returns the style for a query status.
func StatusStyle(status core.QueryStatus) lipgloss.Style {
	switch status {
	case core.StatusRunning:
		return RunningStyle
	case core.StatusCompleted:
		return CompletedStyle
	case core.StatusCanceled:
		return CanceledStyle
	case core.StatusError:
		return ErrorStyle
	default:
		return SubtleStyle
	}
}
