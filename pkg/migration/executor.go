package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLockID is the advisory lock key held while migrations run.
const DefaultLockID int64 = 7_241_120_031

// Executor executes and tracks database migrations.
type Executor struct {
	pool   *pgxpool.Pool
	lockID int64
}

// NewExecutor creates a new migration executor.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{
		pool:   pool,
		lockID: DefaultLockID,
	}
}

// WithLockID sets a custom advisory lock ID.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(32) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := e.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// withLock runs fn on a dedicated connection holding the advisory lock, so
// concurrent replicas starting up apply migrations one at a time.
func (e *Executor) withLock(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", e.lockID)
	}()

	return fn(conn)
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return queryRecords(ctx, e.pool)
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRecords(ctx context.Context, q rowQuerier) ([]MigrationRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.Status, &record.AppliedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Apply executes a migration's up SQL in one transaction. A failure is
// recorded in schema_migrations after the transaction rolls back.
func (e *Executor) Apply(ctx context.Context, migration Migration) error {
	return e.withLock(ctx, func(conn *pgxpool.Conn) error {
		return e.apply(ctx, conn, migration)
	})
}

func (e *Executor) apply(ctx context.Context, conn *pgxpool.Conn, migration Migration) error {
	var applied bool
	err := conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1 AND status = 'applied')",
		migration.Version,
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if applied {
		return fmt.Errorf("migration %s is already applied", migration.Version)
	}

	runErr := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for i, stmt := range splitSQL(migration.UpSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d failed: %w", i+1, err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO schema_migrations (version, name, status, applied_at, error)
			VALUES ($1, $2, 'applied', $3, NULL)
			ON CONFLICT (version) DO UPDATE SET status = 'applied', applied_at = $3, error = NULL
		`, migration.Version, migration.Name, time.Now())
		return err
	})
	if runErr == nil {
		return nil
	}

	_, recErr := conn.Exec(ctx, `
		INSERT INTO schema_migrations (version, name, status, applied_at, error)
		VALUES ($1, $2, 'failed', $3, $4)
		ON CONFLICT (version) DO UPDATE SET status = 'failed', applied_at = $3, error = $4
	`, migration.Version, migration.Name, time.Now(), runErr.Error())

	return errors.Join(
		fmt.Errorf("migration %s_%s failed: %w", migration.Version, migration.Name, runErr),
		recErr,
	)
}

// Rollback executes a migration's down SQL and removes its record.
func (e *Executor) Rollback(ctx context.Context, migration Migration) error {
	return e.withLock(ctx, func(conn *pgxpool.Conn) error {
		return e.rollback(ctx, conn, migration)
	})
}

func (e *Executor) rollback(ctx context.Context, conn *pgxpool.Conn, migration Migration) error {
	if migration.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", migration.Version)
	}

	var applied bool
	err := conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1 AND status = 'applied')",
		migration.Version,
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if !applied {
		return fmt.Errorf("migration %s is not applied", migration.Version)
	}

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for i, stmt := range splitSQL(migration.DownSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rollback failed at statement %d: %w", i+1, err)
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to delete migration record: %w", err)
		}
		return nil
	})
}

// ApplyAll applies all pending migrations in order and returns the ones it
// applied.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration) ([]Migration, error) {
	var done []Migration
	err := e.withLock(ctx, func(conn *pgxpool.Conn) error {
		records, err := queryRecords(ctx, conn)
		if err != nil {
			return err
		}

		for _, migration := range Pending(migrations, records) {
			if err := e.apply(ctx, conn, migration); err != nil {
				return err
			}
			done = append(done, migration)
		}
		return nil
	})
	return done, err
}

// RollbackLast rolls back the most recently applied migration. It returns
// nil when nothing is applied.
func (e *Executor) RollbackLast(ctx context.Context, migrations []Migration) (*Migration, error) {
	var rolledBack *Migration
	err := e.withLock(ctx, func(conn *pgxpool.Conn) error {
		records, err := queryRecords(ctx, conn)
		if err != nil {
			return err
		}

		byVersion := make(map[string]Migration, len(migrations))
		for _, m := range migrations {
			byVersion[m.Version] = m
		}

		for i := len(records) - 1; i >= 0; i-- {
			if records[i].Status != StatusApplied {
				continue
			}
			migration, ok := byVersion[records[i].Version]
			if !ok {
				return fmt.Errorf("migration file not found for version %s", records[i].Version)
			}
			if err := e.rollback(ctx, conn, migration); err != nil {
				return err
			}
			rolledBack = &migration
			return nil
		}
		return nil
	})
	return rolledBack, err
}

// GetStatus returns the status of every known migration.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	all, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return mergeStatus(migrations, all), nil
}

func mergeStatus(migrations []Migration, all []MigrationRecord) []MigrationRecord {
	byVersion := make(map[string]MigrationRecord, len(all))
	for _, r := range all {
		byVersion[r.Version] = r
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, migration := range migrations {
		if record, ok := byVersion[migration.Version]; ok {
			records = append(records, record)
			continue
		}
		records = append(records, MigrationRecord{
			Version: migration.Version,
			Name:    migration.Name,
			Status:  StatusPending,
		})
	}
	return records
}
