package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/sited-io/websites/pkg/runtime"
)

// Columns specifies which columns to select.
func (q *SelectQuery[T]) Columns(cols ...string) *SelectQuery[T] {
	q.columns = cols
	return q
}

// Where adds a WHERE condition.
func (q *SelectQuery[T]) Where(condition Condition) *SelectQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition (alias for Where).
func (q *SelectQuery[T]) And(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *SelectQuery[T]) Or(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// OrderBy adds an ORDER BY clause.
func (q *SelectQuery[T]) OrderBy(column string, direction OrderDirection) *SelectQuery[T] {
	q.orderBy = append(q.orderBy, OrderBy{Column: column, Direction: direction})
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *SelectQuery[T]) OrderByAsc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Asc)
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *SelectQuery[T]) OrderByDesc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Desc)
}

// Limit sets the LIMIT clause.
func (q *SelectQuery[T]) Limit(limit int) *SelectQuery[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *SelectQuery[T]) Offset(offset int) *SelectQuery[T] {
	q.offset = &offset
	return q
}

// Paginate sets LIMIT and OFFSET from a 1-based page number.
func (q *SelectQuery[T]) Paginate(page, size int) *SelectQuery[T] {
	return q.Limit(size).Offset((page - 1) * size)
}

// ForUpdate adds FOR UPDATE lock.
func (q *SelectQuery[T]) ForUpdate() *SelectQuery[T] {
	q.forUpdate = true
	return q
}

// LeftJoin adds a LEFT JOIN.
func (q *SelectQuery[T]) LeftJoin(table string, condition string) *SelectQuery[T] {
	q.joins = append(q.joins, Join{Type: LeftJoin, Table: table, Condition: condition})
	return q
}

// Aggregate adds a pre-aggregated child collection, selected as a record[]
// column named after the join alias.
func (q *SelectQuery[T]) Aggregate(agg AggregateJoin) *SelectQuery[T] {
	q.aggregates = append(q.aggregates, agg)
	return q
}

func (q *SelectQuery[T]) check() error {
	if q.err != nil {
		return fmt.Errorf("table metadata not available: %w", q.err)
	}
	if q.table == nil {
		return fmt.Errorf("table metadata not available")
	}
	return nil
}

func (q *SelectQuery[T]) selectList() string {
	cols := q.columns
	if len(cols) == 0 || (len(cols) == 1 && cols[0] == "*") {
		if len(q.joins) == 0 && len(q.aggregates) == 0 {
			cols = []string{"*"}
		} else {
			cols = []string{q.table.Name + ".*"}
		}
	}

	list := make([]string, 0, len(cols)+len(q.aggregates))
	list = append(list, cols...)
	for _, agg := range q.aggregates {
		list = append(list, agg.column())
	}
	return strings.Join(list, ", ")
}

func (q *SelectQuery[T]) whereClause(sql *strings.Builder) ([]any, error) {
	if len(q.where) == 0 {
		return nil, nil
	}

	whereSQL, whereArgs, err := NewWhereBuilder(q.where...).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	if whereSQL != "" {
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
	}
	return whereArgs, nil
}

// ToSQL generates the SQL query and arguments.
func (q *SelectQuery[T]) ToSQL() (string, []any, error) {
	if err := q.check(); err != nil {
		return "", nil, err
	}

	var sql strings.Builder

	sql.WriteString("SELECT ")
	sql.WriteString(q.selectList())
	sql.WriteString(" FROM ")
	sql.WriteString(q.table.Name)

	for _, join := range q.joins {
		sql.WriteString(" ")
		sql.WriteString(string(join.Type))
		sql.WriteString(" ")
		sql.WriteString(join.Table)
		sql.WriteString(" ON ")
		sql.WriteString(join.Condition)
	}

	for _, agg := range q.aggregates {
		if err := agg.validate(); err != nil {
			return "", nil, err
		}
		sql.WriteString(" ")
		sql.WriteString(agg.clause())
	}

	args, err := q.whereClause(&sql)
	if err != nil {
		return "", nil, err
	}

	if len(q.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		orderParts := make([]string, len(q.orderBy))
		for i, order := range q.orderBy {
			orderParts[i] = order.Column + " " + string(order.Direction)
		}
		sql.WriteString(strings.Join(orderParts, ", "))
	}

	if q.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *q.limit)
	}
	if q.offset != nil {
		fmt.Fprintf(&sql, " OFFSET %d", *q.offset)
	}

	if q.forUpdate {
		sql.WriteString(" FOR UPDATE")
	}

	return sql.String(), args, nil
}

// CountSQL generates a COUNT(*) over the same table and WHERE predicate as
// the data query, ignoring joins, ordering and pagination.
func (q *SelectQuery[T]) CountSQL() (string, []any, error) {
	if err := q.check(); err != nil {
		return "", nil, err
	}

	var sql strings.Builder
	sql.WriteString("SELECT COUNT(*) FROM ")
	sql.WriteString(q.table.Name)

	args, err := q.whereClause(&sql)
	if err != nil {
		return "", nil, err
	}
	return sql.String(), args, nil
}

// All executes the query and returns all results.
func (q *SelectQuery[T]) All(ctx context.Context) ([]T, error) {
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

// First executes the query and returns the first result, or
// runtime.ErrNotFound.
func (q *SelectQuery[T]) First(ctx context.Context) (*T, error) {
	q.Limit(1)

	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, runtime.ErrNotFound
	}

	return &results[0], nil
}

// Count executes a COUNT query.
func (q *SelectQuery[T]) Count(ctx context.Context) (int64, error) {
	sql, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := q.db.q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
