package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#0F766E")
	colorSuccess = lipgloss.Color("#16A34A")
	colorWarning = lipgloss.Color("#D97706")
	colorDanger  = lipgloss.Color("#DC2626")
	colorInfo    = lipgloss.Color("#2563EB")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#F3F4F6")
	colorBorder  = lipgloss.Color("#4B5563")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true).
				PaddingLeft(2)

	unselectedItemStyle = lipgloss.NewStyle().
				Foreground(colorText).
				PaddingLeft(4)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)

	activeButtonStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Background(colorPrimary).
				Padding(0, 3).
				Bold(true)

	inactiveButtonStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Background(lipgloss.Color("#1F2937")).
				Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().Foreground(colorPrimary)
)

// FormatStatus returns a styled migration status.
func FormatStatus(status string) string {
	switch status {
	case "applied":
		return successStyle.Render("✓ " + status)
	case "pending":
		return warningStyle.Render("○ " + status)
	case "failed":
		return dangerStyle.Render("✗ " + status)
	default:
		return mutedStyle.Render(status)
	}
}

// FormatProgressBar renders current/total as a bar of the given width.
func FormatProgressBar(current, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width*current/total, width)
	}
	bar := infoStyle.Render(strings.Repeat("━", filled)) +
		mutedStyle.Render(strings.Repeat("━", width-filled))
	return bar + " " + infoStyle.Render(fmt.Sprintf("%d/%d", current, total))
}

// FormatKey formats a help key.
func FormatKey(key, description string) string {
	return helpKeyStyle.Render(key) + " " + mutedStyle.Render(description)
}
