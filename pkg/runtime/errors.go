// Package runtime provides the connection pool, transactions and driver error
// classification used by the query builder and repositories.
package runtime

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key value")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrCheckViolation is returned when a check constraint is violated.
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrInvalidModel is returned when a model cannot be mapped to a table.
	ErrInvalidModel = errors.New("invalid model")
)

// PostgreSQL SQLSTATE codes that get a sentinel.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// QueryError represents a query execution error.
type QueryError struct {
	Query string
	Kind  error
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("query error (%v): %v\nQuery: %s", e.Kind, e.Err, e.Query)
	}
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap exposes both the classification sentinel and the driver error, so
// errors.Is(err, ErrDuplicateKey) and errors.As(err, **pgconn.PgError) both work.
func (e *QueryError) Unwrap() []error {
	if e.Kind != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Err}
}

func newQueryError(sql string, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Query: sql, Kind: Classify(err), Err: err}
}

// Classify maps a driver error onto one of the package sentinels, or nil
// when the error has no specific classification.
func Classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return ErrDuplicateKey
	case codeForeignKeyViolation:
		return ErrForeignKeyViolation
	case codeCheckViolation:
		return ErrCheckViolation
	default:
		return nil
	}
}

// MigrationError represents a migration error.
type MigrationError struct {
	Version string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration error (version %s): %s: %v", e.Version, e.Message, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
