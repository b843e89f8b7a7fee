// Package migration applies versioned SQL migrations and tracks them in a
// schema_migrations table.
package migration

import (
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version string // Version prefix of the file name (e.g., "0001")
	Name    string // Migration name (e.g., "init")
	UpSQL   string // SQL for applying the migration
	DownSQL string // SQL for rolling back the migration
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusPending means the migration has not been applied.
	StatusPending MigrationStatus = "pending"
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the migration failed to apply.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a migration in the tracking table.
type MigrationRecord struct {
	Version   string          // Migration version
	Name      string          // Migration name
	Status    MigrationStatus // Current status
	AppliedAt *time.Time      // When applied (nil if not applied)
	Error     *string         // Error message if failed
}

// Pending returns the migrations that have no applied record, in order.
func Pending(migrations []Migration, records []MigrationRecord) []Migration {
	applied := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == StatusApplied {
			applied[r.Version] = true
		}
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}
