package builder

import (
	"fmt"
	"strings"

	"github.com/sited-io/websites/pkg/composite"
)

// AggregateJoin pre-aggregates a child table into one record[] column per
// parent row:
//
//	LEFT JOIN (SELECT fk, ARRAY_AGG(ROW(cols...) ORDER BY ...) AS alias
//	           FROM table GROUP BY fk) alias_agg ON alias_agg.fk = parent_key
//
// Parents without children get a NULL column.
type AggregateJoin struct {
	Alias      string
	Table      string
	ForeignKey string
	ParentKey  string
	Columns    []string
	OrderBy    string
}

// AggregateOf builds an AggregateJoin whose ROW(...) columns come from shape,
// so the SQL and the decoder agree on field order.
func AggregateOf[C any](alias, table, foreignKey, parentKey string, shape composite.Shape[C]) AggregateJoin {
	orderBy := ""
	if len(shape.Columns) > 0 {
		orderBy = shape.Columns[0]
	}
	return AggregateJoin{
		Alias:      alias,
		Table:      table,
		ForeignKey: foreignKey,
		ParentKey:  parentKey,
		Columns:    shape.Columns,
		OrderBy:    orderBy,
	}
}

func (a AggregateJoin) validate() error {
	switch {
	case a.Alias == "":
		return fmt.Errorf("aggregate join requires an alias")
	case a.Table == "" || a.ForeignKey == "" || a.ParentKey == "":
		return fmt.Errorf("aggregate join %s requires table, foreign key and parent key", a.Alias)
	case len(a.Columns) == 0:
		return fmt.Errorf("aggregate join %s requires at least one column", a.Alias)
	}
	return nil
}

func (a AggregateJoin) subqueryAlias() string {
	return a.Alias + "_agg"
}

// column is the qualified select-list entry; it scans under the name Alias.
func (a AggregateJoin) column() string {
	return a.subqueryAlias() + "." + a.Alias
}

func (a AggregateJoin) clause() string {
	var sql strings.Builder
	sql.WriteString("LEFT JOIN (SELECT ")
	sql.WriteString(a.ForeignKey)
	sql.WriteString(", ARRAY_AGG(ROW(")
	sql.WriteString(strings.Join(a.Columns, ", "))
	sql.WriteString(")")
	if a.OrderBy != "" {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(a.OrderBy)
	}
	sql.WriteString(") AS ")
	sql.WriteString(a.Alias)
	sql.WriteString(" FROM ")
	sql.WriteString(a.Table)
	sql.WriteString(" GROUP BY ")
	sql.WriteString(a.ForeignKey)
	sql.WriteString(") ")
	sql.WriteString(a.subqueryAlias())
	sql.WriteString(" ON ")
	sql.WriteString(a.subqueryAlias())
	sql.WriteString(".")
	sql.WriteString(a.ForeignKey)
	sql.WriteString(" = ")
	sql.WriteString(a.ParentKey)
	return sql.String()
}
