// Package repository implements typed storage for the website aggregate on
// top of the query builder. Driver errors are translated into the status
// taxonomy here and nowhere else.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/pkg/builder"
	"github.com/sited-io/websites/pkg/composite"
	"github.com/sited-io/websites/pkg/runtime"
)

// conn is what every repository runs on: the pool, or the transaction it
// was bound to by Store.InTx.
type conn struct {
	db  *runtime.DB
	tx  *runtime.Tx
	dec *composite.Decoder
	log *zap.Logger
}

func (c conn) querier() runtime.Querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c conn) builder() *builder.DB {
	return builder.New(c.querier())
}

// inTx runs fn in a transaction, joining the bound one if there is one.
func (c conn) inTx(ctx context.Context, opts pgx.TxOptions, fn func(c conn) error) error {
	if c.tx != nil {
		return fn(c)
	}
	return c.db.InTx(ctx, opts, func(tx *runtime.Tx) error {
		bound := c
		bound.tx = tx
		return fn(bound)
	})
}

var pgxDefault = pgx.TxOptions{}

// Store groups the repositories over one connection.
type Store struct {
	conn conn

	Websites       *WebsiteRepository
	Domains        *DomainRepository
	Pages          *PageRepository
	StaticPages    *StaticPageRepository
	Customizations *CustomizationRepository
}

// NewStore creates a Store on the pool.
func NewStore(db *runtime.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newStore(conn{db: db, dec: composite.NewDecoder(), log: logger})
}

func newStore(c conn) *Store {
	return &Store{
		conn:           c,
		Websites:       &WebsiteRepository{conn: c},
		Domains:        &DomainRepository{conn: c},
		Pages:          &PageRepository{conn: c},
		StaticPages:    &StaticPageRepository{conn: c},
		Customizations: &CustomizationRepository{conn: c},
	}
}

// InTx runs fn with a Store bound to one transaction. The transaction
// commits when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	err := s.conn.inTx(ctx, pgx.TxOptions{}, func(c conn) error {
		return fn(newStore(c))
	})
	return status.FromStorage(err)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.db.Ping(ctx)
}

func first[T any](rows []T) (*T, error) {
	if len(rows) == 0 {
		return nil, runtime.ErrNotFound
	}
	return &rows[0], nil
}

// affected turns a zero-row write into NotFound.
func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return runtime.ErrNotFound
	}
	return nil
}
