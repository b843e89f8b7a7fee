package builder

import (
	"fmt"
	"strings"
)

// WhereBuilder renders conditions into a parameterised WHERE clause.
type WhereBuilder struct {
	conditions []Condition
	paramStart int
}

// NewWhereBuilder creates a WhereBuilder whose placeholders start at $1.
func NewWhereBuilder(conditions ...Condition) *WhereBuilder {
	return NewWhereBuilderWithStart(1, conditions...)
}

// NewWhereBuilderWithStart creates a WhereBuilder whose placeholders start at
// $paramStart, for statements that already bound parameters (UPDATE ... SET).
func NewWhereBuilderWithStart(paramStart int, conditions ...Condition) *WhereBuilder {
	return &WhereBuilder{
		conditions: conditions,
		paramStart: paramStart,
	}
}

// Add adds a condition to the WHERE clause.
func (w *WhereBuilder) Add(condition Condition) {
	w.conditions = append(w.conditions, condition)
}

// Build generates the WHERE clause SQL and arguments.
func (w *WhereBuilder) Build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}

	sql, args, err := buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql, args, nil
}

func buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var parts []string
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		var condSQL string
		var condArgs []any
		var err error

		if len(cond.Group) > 0 {
			condSQL, condArgs, err = buildConditions(cond.Group, paramNum)
			condSQL = "(" + condSQL + ")"
		} else {
			condSQL, condArgs, err = buildCondition(cond, paramNum)
		}
		if err != nil {
			return "", nil, err
		}

		if cond.Not {
			condSQL = "NOT (" + condSQL + ")"
		}

		if i > 0 {
			logic := cond.Logic
			if logic == "" {
				logic = LogicAnd
			}
			parts = append(parts, string(logic))
		}

		parts = append(parts, condSQL)
		args = append(args, condArgs...)
		paramNum += len(condArgs)
	}

	return strings.Join(parts, " "), args, nil
}

func buildCondition(cond Condition, paramNum int) (string, []any, error) {
	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLessThan:
		return fmt.Sprintf("%s %s $%d", cond.Column, cond.Operator, paramNum), []any{cond.Value}, nil

	case OpIn:
		values, ok := cond.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("IN operator on %s requires at least one value", cond.Column)
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s IN (%s)", cond.Column, strings.Join(placeholders, ", ")), values, nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", cond.Column, cond.Operator), nil, nil

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqual, Value: value, Logic: LogicAnd}
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpNotEqual, Value: value, Logic: LogicAnd}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThan, Value: value, Logic: LogicAnd}
}

// Lt creates a less-than condition.
func Lt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThan, Value: value, Logic: LogicAnd}
}

// In creates an IN condition.
func In[V any](column string, values ...V) Condition {
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	return Condition{Column: column, Operator: OpIn, Value: anyValues, Logic: LogicAnd}
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNull, Logic: LogicAnd}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNotNull, Logic: LogicAnd}
}

// Or sets the logic operator to OR for the condition.
func Or(cond Condition) Condition {
	cond.Logic = LogicOr
	return cond
}

// Not negates a condition.
func Not(cond Condition) Condition {
	cond.Not = true
	return cond
}

// Group creates a parenthesised group of conditions.
func Group(conditions ...Condition) Condition {
	return Condition{Group: conditions, Logic: LogicAnd}
}
