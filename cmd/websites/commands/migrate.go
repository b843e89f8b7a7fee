package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sited-io/websites/cmd/websites/output"
	"github.com/sited-io/websites/cmd/websites/tui"
	"github.com/sited-io/websites/internal/migrations"
	"github.com/sited-io/websites/pkg/migration"
)

var (
	// Migrate flags
	dryRun      bool
	upSteps     int
	downSteps   int
	interactive bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run the migrations embedded in the binary.

Subcommands:
  up      - Apply pending migrations
  down    - Roll back applied migrations
  status  - Show migration status

--db skips loading the rest of the configuration.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations.

Examples:
  websites migrate up                  # Apply all pending migrations
  websites migrate up --steps 1        # Apply the next migration
  websites migrate up --dry-run        # Preview without applying
  websites migrate up -i               # Pick migrations in the TUI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp(cmd.Context())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `Roll back the most recently applied migrations.

Examples:
  websites migrate down                # Roll back the last migration
  websites migrate down --steps 2      # Roll back the last two
  websites migrate down --dry-run      # Preview without executing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateDown(cmd.Context())
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show the status of every embedded migration (pending, applied, failed).

Examples:
  websites migrate status              # Table output
  websites migrate status --json       # JSON output`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateUpCmd.Flags().IntVar(&upSteps, "steps", 0, "Number of migrations to apply (0 applies all)")

	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to roll back")
}

func databaseURL() (string, error) {
	if dbURL != "" {
		return dbURL, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Database.URL, nil
}

// session is an open pool, an initialized executor and the embedded
// migrations with their status.
type session struct {
	pool       *pgxpool.Pool
	executor   *migration.Executor
	migrations []migration.Migration
	status     []migration.MigrationRecord
}

func openSession(ctx context.Context) (*session, error) {
	url, err := databaseURL()
	if err != nil {
		return nil, err
	}
	all, err := migrations.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	executor := migration.NewExecutor(pool)
	if err := executor.Initialize(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	status, err := executor.GetStatus(ctx, all)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}
	return &session{pool: pool, executor: executor, migrations: all, status: status}, nil
}

func runMigrateUp(ctx context.Context) error {
	if interactive {
		url, err := databaseURL()
		if err != nil {
			return err
		}
		return tui.RunMigrateUI(tui.ActionUp, url)
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Close()

	toApply := migration.Pending(s.migrations, s.status)
	if upSteps > 0 && upSteps < len(toApply) {
		toApply = toApply[:upSteps]
	}
	if len(toApply) == 0 {
		output.Info("No pending migrations")
		return nil
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
		output.Info("The following migrations would be applied:")
		for _, mig := range toApply {
			fmt.Printf("  %s %s - %s\n", output.StatusIcon("pending"), mig.Version, mig.Name)
		}
		return nil
	}

	output.Section("Applying Migrations")
	for _, mig := range toApply {
		output.Info("Applying %s - %s...", mig.Version, mig.Name)
		if err := s.executor.Apply(ctx, mig); err != nil {
			output.Error("Failed to apply migration %s: %v", mig.Version, err)
			return err
		}
		output.Success("Applied %s", mig.Version)
	}

	fmt.Println()
	output.Success("Successfully applied %d migration(s)", len(toApply))
	return nil
}

func runMigrateDown(ctx context.Context) error {
	if interactive {
		url, err := databaseURL()
		if err != nil {
			return err
		}
		return tui.RunMigrateUI(tui.ActionDown, url)
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Close()

	var applied []migration.MigrationRecord
	for _, r := range s.status {
		if r.Status == migration.StatusApplied {
			applied = append(applied, r)
		}
	}
	if len(applied) == 0 {
		output.Info("No migrations to roll back")
		return nil
	}
	count := min(max(downSteps, 1), len(applied))

	if dryRun {
		output.Section("DRY RUN - Preview")
		output.Info("The following migrations would be rolled back:")
		for i := len(applied) - 1; i >= len(applied)-count; i-- {
			fmt.Printf("  %s %s - %s\n", output.StatusIcon("applied"), applied[i].Version, applied[i].Name)
		}
		return nil
	}

	output.Section("Rolling Back Migrations")
	for range count {
		mig, err := s.executor.RollbackLast(ctx, s.migrations)
		if err != nil {
			output.Error("Rollback failed: %v", err)
			return err
		}
		if mig == nil {
			break
		}
		output.Success("Rolled back %s - %s", mig.Version, mig.Name)
	}

	fmt.Println()
	output.Success("Successfully rolled back %d migration(s)", count)
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Close()

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s.status)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	_, _ = fmt.Fprintln(w, "-------\t----\t------\t----------")

	var pending, applied, failed int
	for _, record := range s.status {
		appliedAt := "N/A"
		if record.AppliedAt != nil {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
			record.Version,
			record.Name,
			output.StatusIcon(string(record.Status)),
			record.Status,
			appliedAt,
		)

		switch record.Status {
		case migration.StatusPending:
			pending++
		case migration.StatusApplied:
			applied++
		case migration.StatusFailed:
			failed++
		}
	}
	_ = w.Flush()

	fmt.Printf("\nSummary: %d applied, %d pending\n", applied, pending)
	if failed > 0 {
		output.Warning("%d migration(s) failed; fix them and run migrate up again", failed)
	}
	return nil
}
