package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Choice is the outcome of a confirmation key press.
type Choice int

const (
	Undecided Choice = iota
	Confirmed
	Cancelled
)

// ConfirmationDialog is a yes/no prompt. No is selected initially.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
}

func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

// Update moves the selection and reports a decision on enter.
func (d *ConfirmationDialog) Update(msg tea.KeyMsg) Choice {
	switch msg.String() {
	case "left", "h", "y":
		d.YesSelected = true
	case "right", "l", "n":
		d.YesSelected = false
	case "esc", "q":
		return Cancelled
	case "enter":
		if d.YesSelected {
			return Confirmed
		}
		return Cancelled
	}
	return Undecided
}

func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yes, no := inactiveButtonStyle.Render("Yes"), activeButtonStyle.Render("No")
	if d.YesSelected {
		yes, no = activeButtonStyle.Render("Yes"), inactiveButtonStyle.Render("No")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yes, "  ", no))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(FormatKey("←/→", "choose") + " • " + FormatKey("enter", "confirm") + " • " + FormatKey("esc", "cancel")))

	return boxStyle.Render(b.String())
}

// MigrationItem is one row of the migration list.
type MigrationItem struct {
	Version   string
	Name      string
	Status    string
	AppliedAt string
}

func (i MigrationItem) FilterValue() string { return i.Name }

func (i MigrationItem) Title() string {
	return fmt.Sprintf("%s %s - %s", FormatStatus(i.Status), i.Version, i.Name)
}

func (i MigrationItem) Description() string {
	if i.AppliedAt != "" {
		return mutedStyle.Render("Applied: " + i.AppliedAt)
	}
	return mutedStyle.Render("Not applied")
}

type migrationItemDelegate struct{}

func (migrationItemDelegate) Height() int                             { return 2 }
func (migrationItemDelegate) Spacing() int                            { return 1 }
func (migrationItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (migrationItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(MigrationItem)
	if !ok {
		return
	}
	if index == m.Index() {
		_, _ = fmt.Fprint(w, selectedItemStyle.Render("▸ "+i.Title()+"\n  "+i.Description()))
		return
	}
	_, _ = fmt.Fprint(w, unselectedItemStyle.Render("  "+i.Title()+"\n  "+i.Description()))
}

// LogView keeps the last MaxLen log lines.
type LogView struct {
	Logs   []string
	MaxLen int
}

func NewLogView(maxLen int) LogView {
	return LogView{MaxLen: maxLen}
}

func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[len(l.Logs)-l.MaxLen:]
	}
}

func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("No logs")
	}
	var b strings.Builder
	for _, entry := range l.Logs {
		b.WriteString(mutedStyle.Render("• "))
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return boxStyle.Render(b.String())
}
