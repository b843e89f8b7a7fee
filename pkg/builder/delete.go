package builder

import (
	"context"
	"fmt"
	"strings"
)

// Where adds a WHERE condition to the DELETE query.
func (q *DeleteQuery[T]) Where(condition Condition) *DeleteQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition.
func (q *DeleteQuery[T]) And(condition Condition) *DeleteQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Returning specifies columns to return after delete.
func (q *DeleteQuery[T]) Returning(columns ...string) *DeleteQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the DELETE SQL and arguments. A DELETE without conditions
// is rejected.
func (q *DeleteQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, fmt.Errorf("table metadata not available: %w", q.err)
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.where) == 0 {
		return "", nil, fmt.Errorf("refusing to DELETE from %s without a WHERE clause", q.table.Name)
	}

	var sql strings.Builder

	sql.WriteString("DELETE FROM ")
	sql.WriteString(q.table.Name)

	whereSQL, args, err := NewWhereBuilder(q.where...).Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	sql.WriteString(" ")
	sql.WriteString(whereSQL)

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the DELETE query and returns the number of affected rows.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	q.returning = nil
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	return q.db.q.Exec(ctx, sql, args...)
}

// ExecReturning executes the DELETE and returns the deleted rows.
func (q *DeleteQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}

	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := q.db.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectRows[T](rows, q.table)
}
