package builder

import (
	"github.com/sited-io/websites/pkg/registry"
	"github.com/sited-io/websites/pkg/runtime"
)

// DB binds query builders to a runtime.Querier: the pool or an open
// transaction.
type DB struct {
	q runtime.Querier
}

// New creates a new query builder DB.
func New(q runtime.Querier) *DB {
	return &DB{q: q}
}

// Querier returns the underlying querier.
func (d *DB) Querier() runtime.Querier {
	return d.q
}

// Select creates a new type-safe SELECT query.
// Usage: builder.Select[Page](db).Where(...).All(ctx)
func Select[T any](d *DB) *SelectQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &SelectQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Insert creates a new type-safe INSERT query.
// Usage: builder.Insert[Page](db).Values(page).ExecReturning(ctx)
func Insert[T any](d *DB) *InsertQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &InsertQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Update creates a new type-safe UPDATE query.
// Usage: builder.Update[Page](db).Set("title", "About").Where(...).Exec(ctx)
func Update[T any](d *DB) *UpdateQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &UpdateQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Delete creates a new type-safe DELETE query.
// Usage: builder.Delete[Page](db).Where(...).Exec(ctx)
func Delete[T any](d *DB) *DeleteQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &DeleteQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}
