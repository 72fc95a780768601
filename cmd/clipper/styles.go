package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/use-agent/clipper/models"
)

var (
	colorSuccess = lipgloss.Color("42")  // Green
	colorError   = lipgloss.Color("196") // Red
	colorInfo    = lipgloss.Color("39")  // Cyan
	colorMuted   = lipgloss.Color("240") // Dark gray

	phaseStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	statusStyle  = lipgloss.NewStyle().Foreground(colorInfo)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

// renderStatus formats one status line for the terminal.
func renderStatus(phase models.Phase, status string) string {
	style := statusStyle
	switch phase {
	case models.PhaseDone:
		style = successStyle
	case models.PhaseFailed:
		style = errorStyle
	}
	return phaseStyle.Render("["+string(phase)+"]") + " " + style.Render(status)
}
