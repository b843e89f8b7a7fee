// Package schema maps `po`-tagged structs onto table metadata.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `po:"..."`).
	StructTagKey = "po"
)

// TableNamer lets a model name its own table.
type TableNamer interface {
	TableName() string
}

// Parser parses struct definitions to extract table metadata.
type Parser struct {
	mu    sync.Mutex
	cache map[reflect.Type]*TableMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		cache: make(map[reflect.Type]*TableMetadata),
	}
}

var (
	tableNamesMu     sync.RWMutex
	customTableNames = make(map[string]string)
)

// RegisterTableName registers a table name for a struct type name, for models
// that cannot implement TableNamer.
func RegisterTableName(structName, tableName string) {
	tableNamesMu.Lock()
	defer tableNamesMu.Unlock()
	customTableNames[structName] = tableName
}

// Parse extracts TableMetadata from a Go struct type.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &TableMetadata{
		Name:    extractTableName(modelType),
		GoType:  modelType,
		Columns: make([]ColumnMetadata, 0, modelType.NumField()),
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}

		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		tagOpts, err := parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}

		column := createColumnMetadata(field, tagOpts, i)
		if tagOpts.Has("primaryKey") {
			if table.PrimaryKey == nil {
				table.PrimaryKey = &PrimaryKeyMetadata{
					Columns: []string{column.Name},
					Name:    table.Name + "_pkey",
				}
			} else {
				table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column.Name)
			}
		}

		table.Columns = append(table.Columns, column)
	}

	p.cache[modelType] = table
	return table, nil
}

// extractTableName resolves the table name: TableNamer first, then the
// RegisterTableName registry, then snake_case of the struct name.
func extractTableName(modelType reflect.Type) string {
	if namer, ok := reflect.New(modelType).Interface().(TableNamer); ok {
		return namer.TableName()
	}

	tableNamesMu.RLock()
	name, ok := customTableNames[modelType.Name()]
	tableNamesMu.RUnlock()
	if ok {
		return name
	}

	return toSnakeCase(modelType.Name())
}

func createColumnMetadata(field reflect.StructField, opts *TagOptions, position int) ColumnMetadata {
	column := ColumnMetadata{
		Name:      opts.Name,
		GoField:   field.Name,
		GoType:    field.Type,
		Position:  position,
		Identity:  opts.Has("identity"),
		JSONB:     opts.Has("jsonb"),
		Aggregate: opts.Has("aggregate"),
		Joined:    opts.Has("joined"),
	}

	column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")
	if field.Type.Kind() == reflect.Pointer {
		column.Nullable = true
	}

	if defaultVal := opts.Get("default"); defaultVal != "" {
		column.Default = &defaultVal
	}

	return column
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string
	Options map[string]string
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3"
func parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty tag value")
	}

	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}

	for _, opt := range parts[1:] {
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
			continue
		}
		opts.Options[opt] = ""
	}

	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts a string from PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && ch >= 'A' && ch <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}
