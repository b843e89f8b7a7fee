package builder

import (
	"context"
	"fmt"
	"strings"
)

// Values sets the values to insert (single or multiple rows).
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// OnConflictDoNothing adds ON CONFLICT DO NOTHING clause.
func (q *InsertQuery[T]) OnConflictDoNothing(columns ...string) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns, Action: DoNothing}
	return q
}

// ToSQL generates the INSERT SQL and arguments.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, fmt.Errorf("table metadata not available: %w", q.err)
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("no values to insert")
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table.Name)

	// The first row decides the column list; later rows must produce the same one.
	columns, _, err := structToValues(q.values[0], q.table)
	if err != nil {
		return "", nil, fmt.Errorf("failed to extract values: %w", err)
	}

	sql.WriteString(" (")
	sql.WriteString(strings.Join(columns, ", "))
	sql.WriteString(") VALUES ")

	valueClauses := make([]string, len(q.values))
	for i, val := range q.values {
		rowColumns, rowValues, err := structToValues(val, q.table)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
		}
		if strings.Join(rowColumns, ",") != strings.Join(columns, ",") {
			return "", nil, fmt.Errorf("row %d inserts columns %v, expected %v", i, rowColumns, columns)
		}

		placeholders := make([]string, len(rowValues))
		for j := range rowValues {
			placeholders[j] = fmt.Sprintf("$%d", paramNum)
			paramNum++
		}
		args = append(args, rowValues...)
		valueClauses[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	sql.WriteString(strings.Join(valueClauses, ", "))

	if q.onConflict != nil {
		sql.WriteString(" ON CONFLICT")
		if len(q.onConflict.Columns) > 0 {
			sql.WriteString(" (")
			sql.WriteString(strings.Join(q.onConflict.Columns, ", "))
			sql.WriteString(")")
		}
		sql.WriteString(" ")
		sql.WriteString(string(q.onConflict.Action))
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the INSERT query and returns the number of inserted rows.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
	q.returning = nil
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	return q.db.q.Exec(ctx, sql, args...)
}

// ExecReturning executes the INSERT and returns the inserted rows.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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
