// Package tui is the terminal client: editor tabs, a results table and a
// status line over the same workspace the IPC server drives.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light and a dark terminal variant.
var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#1A73E8", Dark: "#8AB4F8"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"}

	// Query states
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#188038", Dark: "#81C995"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06000", Dark: "#FDD663"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#C5221F", Dark: "#F28B82"}

	ColorText       = lipgloss.AdaptiveColor{Light: "#202124", Dark: "#E8EAED"}
	ColorTextMuted  = lipgloss.AdaptiveColor{Light: "#5F6368", Dark: "#9AA0A6"}
	ColorBorder     = lipgloss.AdaptiveColor{Light: "#DADCE0", Dark: "#3C4043"}
	ColorBackground = lipgloss.AdaptiveColor{Light: "#F1F3F4", Dark: "#202124"}
	ColorHighlight  = lipgloss.AdaptiveColor{Light: "#E8F0FE", Dark: "#394457"}
)
