// Package composite decodes PostgreSQL binary composite values, in particular
// the record[] columns produced by array_agg(ROW(...)).
package composite

import (
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
)

var (
	// ErrTypeMismatch is returned when a field's wire type is unknown or does
	// not match the type expected at that position.
	ErrTypeMismatch = errors.New("composite: type mismatch")

	// ErrUnsupportedShape is returned for arrays that are not one-dimensional,
	// records with an unexpected arity, and truncated input.
	ErrUnsupportedShape = errors.New("composite: unsupported shape")
)

// Field binds one record position to a scan destination.
type Field struct {
	Name string
	OIDs []uint32
	Dest any
}

func (f Field) accepts(oid uint32) bool {
	for _, o := range f.OIDs {
		if o == oid {
			return true
		}
	}
	return false
}

// Int8 expects a bigint.
func Int8(name string, dst *int64) Field {
	return Field{Name: name, OIDs: []uint32{pgtype.Int8OID}, Dest: dst}
}

// Text expects a non-null text or varchar.
func Text(name string, dst *string) Field {
	return Field{Name: name, OIDs: []uint32{pgtype.TextOID, pgtype.VarcharOID}, Dest: dst}
}

// NullableText expects a text or varchar that may be NULL.
func NullableText(name string, dst **string) Field {
	return Field{Name: name, OIDs: []uint32{pgtype.TextOID, pgtype.VarcharOID}, Dest: dst}
}

// Bool expects a boolean.
func Bool(name string, dst *bool) Field {
	return Field{Name: name, OIDs: []uint32{pgtype.BoolOID}, Dest: dst}
}

// Timestamptz expects a timestamp with time zone.
func Timestamptz(name string, dst any) Field {
	return Field{Name: name, OIDs: []uint32{pgtype.TimestamptzOID}, Dest: dst}
}

// Shape describes the ordered columns aggregated into a ROW(...) and how
// each position maps onto a T. Columns and Fields must stay in the same
// order; the SQL builder renders Columns and the decoder walks Fields.
type Shape[T any] struct {
	Columns []string
	Fields  func(*T) []Field
}
