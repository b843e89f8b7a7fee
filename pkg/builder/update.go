package builder

import (
	"context"
	"fmt"
	"strings"
)

// Set sets a column value for the UPDATE.
func (q *UpdateQuery[T]) Set(column string, value any) *UpdateQuery[T] {
	q.sets = append(q.sets, setClause{column: column, value: value})
	return q
}

// SetRaw sets a column to a SQL expression, e.g. SetRaw("updated_at", "NOW()").
func (q *UpdateQuery[T]) SetRaw(column string, expr string) *UpdateQuery[T] {
	q.sets = append(q.sets, setClause{column: column, value: expr, raw: true})
	return q
}

// Where adds a WHERE condition.
func (q *UpdateQuery[T]) Where(condition Condition) *UpdateQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition.
func (q *UpdateQuery[T]) And(condition Condition) *UpdateQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Returning specifies columns to return after update.
func (q *UpdateQuery[T]) Returning(columns ...string) *UpdateQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the UPDATE SQL and arguments.
func (q *UpdateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, fmt.Errorf("table metadata not available: %w", q.err)
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.sets) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}
	if len(q.where) == 0 {
		return "", nil, fmt.Errorf("refusing to UPDATE %s without a WHERE clause", q.table.Name)
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("UPDATE ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" SET ")

	setClauses := make([]string, 0, len(q.sets))
	for _, set := range q.sets {
		if set.raw {
			setClauses = append(setClauses, fmt.Sprintf("%s = %s", set.column, set.value))
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", set.column, paramNum))
		args = append(args, set.value)
		paramNum++
	}
	sql.WriteString(strings.Join(setClauses, ", "))

	whereSQL, whereArgs, err := NewWhereBuilderWithStart(paramNum, q.where...).Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	sql.WriteString(" ")
	sql.WriteString(whereSQL)
	args = append(args, whereArgs...)

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the UPDATE query and returns the number of affected rows.
func (q *UpdateQuery[T]) Exec(ctx context.Context) (int64, error) {
	q.returning = nil
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	return q.db.q.Exec(ctx, sql, args...)
}

// ExecReturning executes the UPDATE and returns the updated rows.
func (q *UpdateQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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
