package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the statement surface shared by DB and Tx, so query builders
// run the same way on the pool and inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB represents a database connection.
type DB struct {
	pool   *pgxpool.Pool
	config *Config
}

// Config represents database configuration.
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// NewDB creates a new DB instance from a connection pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{
		pool:   pool,
		config: &Config{},
	}
}

// Connect creates a new DB instance by connecting to PostgreSQL.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		pool:   pool,
		config: config,
	}, nil
}

// ConnectWithURL creates a new DB instance using a connection URL.
func ConnectWithURL(ctx context.Context, url string) (*DB, error) {
	return Connect(ctx, &Config{URL: url})
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Exec executes a query without returning any rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, newQueryError(sql, err)
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	r, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, newQueryError(sql, err)
	}
	return rows{Rows: r, sql: sql}, nil
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return row{Row: db.pool.QueryRow(ctx, sql, args...), sql: sql}
}

// Begin starts a new transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, pgx.TxOptions{})
}

// BeginTx starts a new transaction with options.
func (db *DB) BeginTx(ctx context.Context, opts pgx.TxOptions) (*Tx, error) {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, newQueryError("BEGIN", err)
	}
	return &Tx{tx: tx}, nil
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (db *DB) InTx(ctx context.Context, opts pgx.TxOptions, fn func(tx *Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReadOnlySnapshot is the option set used for list+count reads.
var ReadOnlySnapshot = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// Tx wraps a pgx.Tx with the same error classification as DB.
type Tx struct {
	tx pgx.Tx
}

// Exec executes a query without returning any rows.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, newQueryError(sql, err)
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	r, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, newQueryError(sql, err)
	}
	return rows{Rows: r, sql: sql}, nil
}

// QueryRow executes a query that returns at most one row.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return row{Row: t.tx.QueryRow(ctx, sql, args...), sql: sql}
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return newQueryError("COMMIT", err)
	}
	return nil
}

// Rollback rolls the transaction back. Rolling back a finished transaction
// is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return newQueryError("ROLLBACK", err)
	}
	return nil
}

// row classifies the error surfaced by Scan.
type row struct {
	pgx.Row
	sql string
}

func (r row) Scan(dest ...any) error {
	if err := r.Row.Scan(dest...); err != nil {
		return newQueryError(r.sql, err)
	}
	return nil
}

// rows classifies errors surfaced while iterating. Statement errors such as
// unique violations on INSERT ... RETURNING arrive here, not from Query.
type rows struct {
	pgx.Rows
	sql string
}

func (r rows) Err() error {
	if err := r.Rows.Err(); err != nil {
		return newQueryError(r.sql, err)
	}
	return nil
}
