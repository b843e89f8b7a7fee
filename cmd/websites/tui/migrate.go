// Package tui is the interactive migration runner.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sited-io/websites/internal/migrations"
	"github.com/sited-io/websites/pkg/migration"
)

// Action is the direction migrations run in.
type Action string

const (
	ActionUp   Action = "up"
	ActionDown Action = "down"
)

type mode int

const (
	modeLoading mode = iota
	modeList
	modeConfirm
	modeExecuting
	modeComplete
	modeError
)

// MigrateModel lists the embedded migrations. Selecting one runs every
// migration needed to reach it: pending ones up to and including it for up,
// applied ones from the newest back to it for down.
type MigrateModel struct {
	mode         mode
	action       Action
	dbURL        string
	list         list.Model
	spinner      spinner.Model
	confirmation ConfirmationDialog
	logs         LogView
	err          error
	width        int
	height       int

	migrations []migration.Migration
	status     []migration.MigrationRecord
	pool       *pgxpool.Pool
	executor   *migration.Executor

	plan []migration.Migration
	done int
}

func NewMigrateModel(action Action, dbURL string) MigrateModel {
	l := list.New(nil, migrationItemDelegate{}, 0, 0)
	l.Title = "Database Migrations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	return MigrateModel{
		mode:    modeLoading,
		action:  action,
		dbURL:   dbURL,
		list:    l,
		spinner: sp,
		logs:    NewLogView(10),
	}
}

type loadedMsg struct {
	migrations []migration.Migration
	status     []migration.MigrationRecord
	pool       *pgxpool.Pool
	executor   *migration.Executor
}

type executedMsg struct {
	migration migration.Migration
	err       error
}

type errorMsg struct {
	err error
}

func (m MigrateModel) Init() tea.Cmd {
	return tea.Batch(loadCmd(m.dbURL), m.spinner.Tick, tea.EnterAltScreen)
}

func loadCmd(dbURL string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		all, err := migrations.All()
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load migrations: %w", err)}
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to connect to database: %w", err)}
		}
		executor := migration.NewExecutor(pool)
		if err := executor.Initialize(ctx); err != nil {
			pool.Close()
			return errorMsg{err: fmt.Errorf("failed to initialize migrations: %w", err)}
		}
		status, err := executor.GetStatus(ctx, all)
		if err != nil {
			pool.Close()
			return errorMsg{err: fmt.Errorf("failed to get migration status: %w", err)}
		}
		return loadedMsg{migrations: all, status: status, pool: pool, executor: executor}
	}
}

func executeCmd(executor *migration.Executor, mig migration.Migration, action Action) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if action == ActionUp {
			err = executor.Apply(ctx, mig)
		} else {
			err = executor.Rollback(ctx, mig)
		}
		return executedMsg{migration: mig, err: err}
	}
}

// Plan returns the migrations to run, in execution order, for selecting the
// migration at index. status[i] describes migrations[i].
func Plan(action Action, migs []migration.Migration, status []migration.MigrationRecord, index int) []migration.Migration {
	if index < 0 || index >= len(migs) || len(status) != len(migs) {
		return nil
	}

	var plan []migration.Migration
	switch action {
	case ActionUp:
		if status[index].Status == migration.StatusApplied {
			return nil
		}
		for i := 0; i <= index; i++ {
			if status[i].Status != migration.StatusApplied {
				plan = append(plan, migs[i])
			}
		}
	case ActionDown:
		if status[index].Status != migration.StatusApplied {
			return nil
		}
		for i := len(migs) - 1; i >= index; i-- {
			if status[i].Status == migration.StatusApplied {
				plan = append(plan, migs[i])
			}
		}
	}
	return plan
}

func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		if m.mode != modeLoading && m.mode != modeExecuting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.migrations, m.status = msg.migrations, msg.status
		m.pool, m.executor = msg.pool, msg.executor
		items := make([]list.Item, len(msg.status))
		for i, s := range msg.status {
			item := MigrationItem{Version: s.Version, Name: s.Name, Status: string(s.Status)}
			if s.AppliedAt != nil {
				item.AppliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			items[i] = item
		}
		m.list.SetItems(items)
		m.mode = modeList
		return m, nil

	case executedMsg:
		if msg.err != nil {
			m.mode = modeError
			m.err = fmt.Errorf("%s - %s: %w", msg.migration.Version, msg.migration.Name, msg.err)
			m.logs.AddLog(dangerStyle.Render("✗ Failed: " + msg.migration.Version))
			return m, nil
		}
		m.logs.AddLog(successStyle.Render("✓ Completed: " + msg.migration.Version))
		m.done++
		if m.done >= len(m.plan) {
			m.mode = modeComplete
			return m, nil
		}
		return m, executeCmd(m.executor, m.plan[m.done], m.action)

	case errorMsg:
		m.mode = modeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m MigrateModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeLoading:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case modeList:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m.quit()
		case "enter", " ":
			plan := Plan(m.action, m.migrations, m.status, m.selectedIndex())
			if len(plan) == 0 {
				return m, nil
			}
			m.plan = plan
			m.confirmation = NewConfirmationDialog(
				"Confirm Migration "+strings.ToUpper(string(m.action)),
				describePlan(m.action, plan),
			)
			m.mode = modeConfirm
			return m, nil
		}

	case modeConfirm:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.confirmation.Update(msg) {
		case Confirmed:
			m.mode = modeExecuting
			m.done = 0
			return m, tea.Batch(executeCmd(m.executor, m.plan[0], m.action), m.spinner.Tick)
		case Cancelled:
			m.mode = modeList
			m.plan = nil
		}
		return m, nil

	case modeComplete, modeError:
		switch msg.String() {
		case "ctrl+c", "q", "enter":
			return m.quit()
		}
		return m, nil

	case modeExecuting:
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selectedIndex maps the list cursor back to the migration slice, which
// differs from m.list.Index() while a filter is applied.
func (m MigrateModel) selectedIndex() int {
	item, ok := m.list.SelectedItem().(MigrationItem)
	if !ok {
		return -1
	}
	for i, mig := range m.migrations {
		if mig.Version == item.Version {
			return i
		}
	}
	return -1
}

func (m MigrateModel) quit() (tea.Model, tea.Cmd) {
	if m.pool != nil {
		m.pool.Close()
	}
	return m, tea.Quit
}

func describePlan(action Action, plan []migration.Migration) string {
	verb := "apply"
	if action == ActionDown {
		verb = "roll back"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Are you sure you want to %s %d migration(s)?\n", verb, len(plan))
	for _, mig := range plan {
		fmt.Fprintf(&b, "\n  %s - %s", mig.Version, mig.Name)
	}
	return b.String()
}

func (m MigrateModel) View() string {
	center := func(s string) string {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
	}

	switch m.mode {
	case modeLoading:
		return center(m.spinner.View() + " " + mutedStyle.Render("Loading migrations..."))

	case modeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("enter", string(m.action)+" to here") + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case modeConfirm:
		return center(m.confirmation.View())

	case modeExecuting:
		progress := titleStyle.Render("Migration Progress") + "\n\n"
		if m.done < len(m.plan) {
			progress += m.spinner.View() + " " + infoStyle.Render(fmt.Sprintf("Executing: %s - %s", m.plan[m.done].Version, m.plan[m.done].Name)) + "\n\n"
		}
		progress += FormatProgressBar(m.done, len(m.plan), 40)
		return center(lipgloss.JoinVertical(lipgloss.Left, boxStyle.Render(progress), "", m.logs.View()))

	case modeComplete:
		return center(boxStyle.Render(
			titleStyle.Render("Migration Complete") + "\n\n" +
				successStyle.Render(fmt.Sprintf("Successfully executed %d migration(s)", len(m.plan))) + "\n\n" +
				helpStyle.Render(FormatKey("enter/q", "exit")),
		))

	case modeError:
		return center(boxStyle.Render(
			titleStyle.Render("Migration Failed") + "\n\n" +
				dangerStyle.Render(m.err.Error()) + "\n\n" +
				helpStyle.Render(FormatKey("enter/q", "exit")),
		))
	}
	return ""
}

// RunMigrateUI runs the interactive migration UI until the user quits.
func RunMigrateUI(action Action, dbURL string) error {
	_, err := tea.NewProgram(NewMigrateModel(action, dbURL)).Run()
	return err
}
