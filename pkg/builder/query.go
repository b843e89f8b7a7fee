// Package builder provides a type-safe query builder for PostgreSQL that
// runs on a connection pool or inside a transaction.
package builder

import (
	"github.com/sited-io/websites/pkg/schema"
)

// Query represents a generic database query.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// SelectQuery represents a SELECT query with type safety.
type SelectQuery[T any] struct {
	db         *DB
	table      *schema.TableMetadata
	err        error
	columns    []string
	where      []Condition
	joins      []Join
	aggregates []AggregateJoin
	orderBy    []OrderBy
	limit      *int
	offset     *int
	forUpdate  bool
}

// InsertQuery represents an INSERT query.
type InsertQuery[T any] struct {
	db         *DB
	table      *schema.TableMetadata
	err        error
	values     []T
	returning  []string
	onConflict *OnConflict
}

// UpdateQuery represents an UPDATE query. SET clauses keep the order they
// were added in so the generated SQL is stable.
type UpdateQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	sets      []setClause
	where     []Condition
	returning []string
}

// DeleteQuery represents a DELETE query.
type DeleteQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	where     []Condition
	returning []string
}

type setClause struct {
	column string
	value  any
	raw    bool
}

// Condition represents a WHERE condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Not      bool
	Group    []Condition
}

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Table     string
	Condition string
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Column    string
	Direction OrderDirection
}

// OnConflict represents an ON CONFLICT clause.
type OnConflict struct {
	Columns []string
	Action  ConflictAction
}

// Operator represents a comparison operator.
type Operator string

const (
	// OpEqual represents the = operator.
	OpEqual Operator = "="
	// OpNotEqual represents the != operator.
	OpNotEqual Operator = "!="
	// OpGreaterThan represents the > operator.
	OpGreaterThan Operator = ">"
	// OpLessThan represents the < operator.
	OpLessThan Operator = "<"
	// OpIn represents the IN operator.
	OpIn Operator = "IN"
	// OpIsNull represents the IS NULL operator.
	OpIsNull Operator = "IS NULL"
	// OpIsNotNull represents the IS NOT NULL operator.
	OpIsNotNull Operator = "IS NOT NULL"
)

// LogicOperator represents a logical operator (AND/OR).
type LogicOperator string

const (
	// LogicAnd represents the AND operator.
	LogicAnd LogicOperator = "AND"
	// LogicOr represents the OR operator.
	LogicOr LogicOperator = "OR"
)

// JoinType represents a type of JOIN.
type JoinType string

const (
	// LeftJoin represents a LEFT JOIN.
	LeftJoin JoinType = "LEFT JOIN"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	// Asc represents ascending order.
	Asc OrderDirection = "ASC"
	// Desc represents descending order.
	Desc OrderDirection = "DESC"
)

// ConflictAction represents the action for ON CONFLICT.
type ConflictAction string

const (
	// DoNothing does nothing on conflict.
	DoNothing ConflictAction = "DO NOTHING"
)
