package builder

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/sited-io/websites/pkg/schema"
)

// collectRows scans every row into a T and closes rows.
func collectRows[T any](rows pgx.Rows, table *schema.TableMetadata) ([]T, error) {
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// scanIntoStruct scans the current row into dest, matching result columns to
// `po` column names. Result columns without a field are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.TableMetadata) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Pointer || destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}
	destValue = destValue.Elem()

	fieldDescriptions := rows.FieldDescriptions()
	scanTargets := make([]any, len(fieldDescriptions))

	columnMap := make(map[string]int, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columnMap[fd.Name] = i
	}

	for _, col := range table.Columns {
		idx, ok := columnMap[col.Name]
		if !ok {
			continue
		}

		field := destValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		scanTargets[idx] = field.Addr().Interface()
	}

	for i := range scanTargets {
		if scanTargets[i] == nil {
			var discard any
			scanTargets[i] = &discard
		}
	}

	if err := rows.Scan(scanTargets...); err != nil {
		return fmt.Errorf("failed to scan row: %w", err)
	}
	return nil
}

// structToValues converts a struct to its insertable column names and values.
// Read-only columns (aggregate, joined) are never written, and zero-valued
// fields backed by a database default or identity are left to the database.
func structToValues(model any, table *schema.TableMetadata) ([]string, []any, error) {
	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Pointer {
		modelValue = modelValue.Elem()
	}
	if modelValue.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct")
	}

	var columns []string
	var values []any

	for _, col := range table.Columns {
		if !col.Writable() {
			continue
		}

		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}

		if (col.Default != nil || col.Identity) && field.IsZero() {
			continue
		}

		columns = append(columns, col.Name)
		values = append(values, field.Interface())
	}

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("model %s has no writable columns", table.Name)
	}

	return columns, values, nil
}
