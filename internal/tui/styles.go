package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskui/internal/scheduler"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Status styles
var (
	StyleStatusRunning = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow")).
				Bold(true)

	StyleStatusSuccess = lipgloss.NewStyle().
				Foreground(lipgloss.Color("green")).
				Bold(true)

	StyleStatusFailure = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleStatusWaiting = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	StyleSelected = lipgloss.NewStyle().
			Reverse(true)
)

// statusStyle maps a derived status to its style.
func statusStyle(s scheduler.TaskStatus) lipgloss.Style {
	switch s {
	case scheduler.StatusRunning:
		return StyleStatusRunning
	case scheduler.StatusSuccess:
		return StyleStatusSuccess
	case scheduler.StatusFailure:
		return StyleStatusFailure
	default:
		return StyleStatusWaiting
	}
}

// statusGlyph maps a derived status to its list glyph.
func statusGlyph(s scheduler.TaskStatus) string {
	switch s {
	case scheduler.StatusRunning:
		return "▶"
	case scheduler.StatusSuccess:
		return "✓"
	case scheduler.StatusFailure:
		return "✗"
	default:
		return "·"
	}
}
