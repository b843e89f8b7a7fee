// Package output prints styled CLI messages.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#16A34A")
	colorWarning = lipgloss.Color("#D97706")
	colorError   = lipgloss.Color("#DC2626")
	colorInfo    = lipgloss.Color("#2563EB")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#0F766E")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

func Success(format string, args ...any) {
	fmt.Print(successStyle.Render("✓ "))
	fmt.Printf(format+"\n", args...)
}

func Warning(format string, args ...any) {
	fmt.Print(warningStyle.Render("⚠ "))
	fmt.Printf(format+"\n", args...)
}

func Error(format string, args ...any) {
	fmt.Print(errorStyle.Render("✗ "))
	fmt.Printf(format+"\n", args...)
}

func Info(format string, args ...any) {
	fmt.Print(infoStyle.Render("ℹ "))
	fmt.Printf(format+"\n", args...)
}

// Section prints an underlined header.
func Section(title string) {
	fmt.Println()
	fmt.Println(primaryStyle.Render(title))
	fmt.Println(mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
	fmt.Println()
}

// StatusIcon returns the icon of a migration status.
func StatusIcon(status string) string {
	switch status {
	case "applied":
		return successStyle.Render("✓")
	case "pending":
		return warningStyle.Render("○")
	case "failed":
		return errorStyle.Render("✗")
	default:
		return mutedStyle.Render("•")
	}
}
