package schema

import "reflect"

// TableMetadata describes a table mapped from a Go struct.
type TableMetadata struct {
	Name       string
	GoType     reflect.Type
	Columns    []ColumnMetadata
	PrimaryKey *PrimaryKeyMetadata
}

// ColumnMetadata describes one mapped struct field.
type ColumnMetadata struct {
	Name     string
	GoField  string
	GoType   reflect.Type
	Position int
	Nullable bool
	Default  *string
	Identity bool
	JSONB    bool

	// Aggregate columns hold a record[] produced by a join; they are only
	// ever read.
	Aggregate bool

	// Joined columns come from another table in a join and are only ever read.
	Joined bool
}

// Writable reports whether the column takes part in INSERT statements.
func (c *ColumnMetadata) Writable() bool {
	return !c.Aggregate && !c.Joined
}

// PrimaryKeyMetadata describes a primary key.
type PrimaryKeyMetadata struct {
	Name    string
	Columns []string
}

// GetColumnByName returns the column with the given name, or nil.
func (t *TableMetadata) GetColumnByName(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableMetadata) IsPrimaryKey(column string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, c := range t.PrimaryKey.Columns {
		if c == column {
			return true
		}
	}
	return false
}
