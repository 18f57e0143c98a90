// Package ui holds terminal output helpers for the command line.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Accent marks file paths and titles.
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted is used for hints and secondary counts.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis.
	Bold = lipgloss.NewStyle().Bold(true)

	// Failure marks error messages.
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true)
)

// Hint renders secondary text such as prompt choices.
func Hint(s string) string {
	return Muted.Render(s)
}

// Path renders a file path.
func Path(s string) string {
	return Accent.Render(s)
}

// Error renders an error line.
func Error(err error) string {
	return Failure.Render("✗ " + err.Error())
}
