package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"mod-updater/classify"
)

var (
	Header  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Danger  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Colorize applies the given color to the text using lipgloss.
// color is the integer representation from Modrinth; 0 leaves text plain.
func Colorize(text string, color int) string {
	if color == 0 {
		return text
	}
	hexColor := fmt.Sprintf("#%06x", color)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// StatusStyle colours a version status.
func StatusStyle(s classify.Status) lipgloss.Style {
	switch s {
	case classify.Updated:
		return Warning
	case classify.Installed:
		return Success
	case classify.Outdated:
		return Danger
	default:
		return Muted
	}
}

// StatusLabel is the column text for a status.
func StatusLabel(s classify.Status) string {
	switch s {
	case classify.Updated:
		return "update-available"
	case classify.Installed:
		return "up-to-date"
	case classify.Outdated:
		return "older"
	default:
		return "unknown"
	}
}
