package composite

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
)

// Decoder decodes binary records and record arrays. It is safe for
// concurrent use; pgtype.Map is not, so each call borrows its own.
type Decoder struct {
	maps sync.Pool
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	d := &Decoder{}
	d.maps.New = func() any { return pgtype.NewMap() }
	return d
}

// DecodeRecord decodes one binary record into fields, in order.
func (d *Decoder) DecodeRecord(src []byte, fields []Field) error {
	m := d.maps.Get().(*pgtype.Map)
	defer d.maps.Put(m)

	r := &reader{buf: src}

	count, err := r.int32()
	if err != nil {
		return err
	}
	if int(count) != len(fields) {
		return fmt.Errorf("%w: record has %d fields, expected %d", ErrUnsupportedShape, count, len(fields))
	}

	for _, f := range fields {
		oid, err := r.uint32()
		if err != nil {
			return err
		}
		if _, ok := m.TypeForOID(oid); !ok {
			return fmt.Errorf("%w: field %s has unknown oid %d", ErrTypeMismatch, f.Name, oid)
		}
		if !f.accepts(oid) {
			return fmt.Errorf("%w: field %s has oid %d", ErrTypeMismatch, f.Name, oid)
		}

		value, err := r.value()
		if err != nil {
			return err
		}

		if err := m.Scan(oid, pgtype.BinaryFormatCode, value, f.Dest); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}

	return nil
}

// DecodeArray decodes a one-dimensional record[] into a slice of T.
//
// Decoding is lossy: NULL elements and elements that fail to decode are
// skipped and counted in the second return value. A nil src, which is what a
// LEFT JOIN yields for a parent without children, decodes to an empty slice.
func DecodeArray[T any](d *Decoder, src []byte, shape Shape[T]) ([]T, int, error) {
	items := make([]T, 0)
	dropped := 0
	err := walkArray(src, func(elem []byte) error {
		if elem == nil {
			dropped++
			return nil
		}
		var item T
		if err := d.DecodeRecord(elem, shape.Fields(&item)); err != nil {
			dropped++
			return nil
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, dropped, nil
}

// DecodeArrayStrict is DecodeArray without the skipping: the first NULL or
// undecodable element fails the whole array.
func DecodeArrayStrict[T any](d *Decoder, src []byte, shape Shape[T]) ([]T, error) {
	items := make([]T, 0)
	index := 0
	err := walkArray(src, func(elem []byte) error {
		defer func() { index++ }()
		if elem == nil {
			return fmt.Errorf("%w: element %d is NULL", ErrTypeMismatch, index)
		}
		var item T
		if err := d.DecodeRecord(elem, shape.Fields(&item)); err != nil {
			return fmt.Errorf("element %d: %w", index, err)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// walkArray validates the array header and calls fn for every element. A
// NULL element is passed as nil.
func walkArray(src []byte, fn func(elem []byte) error) error {
	if src == nil {
		return nil
	}

	r := &reader{buf: src}

	ndims, err := r.int32()
	if err != nil {
		return err
	}
	if ndims == 0 {
		return nil
	}
	if ndims != 1 {
		return fmt.Errorf("%w: %d dimensions", ErrUnsupportedShape, ndims)
	}

	// has-null flag; NULL elements are detected per element
	if _, err := r.int32(); err != nil {
		return err
	}

	elemOID, err := r.uint32()
	if err != nil {
		return err
	}
	if elemOID != pgtype.RecordOID {
		return fmt.Errorf("%w: array element oid %d is not record", ErrTypeMismatch, elemOID)
	}

	length, err := r.int32()
	if err != nil {
		return err
	}
	if length < 0 {
		return fmt.Errorf("%w: negative dimension length %d", ErrUnsupportedShape, length)
	}
	// lower bound
	if _, err := r.int32(); err != nil {
		return err
	}

	for i := int32(0); i < length; i++ {
		elem, err := r.value()
		if err != nil {
			return err
		}
		if err := fn(elem); err != nil {
			return err
		}
	}

	return nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: truncated input at byte %d", ErrUnsupportedShape, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

// value reads a length-prefixed value. A length of -1 is SQL NULL and yields nil.
func (r *reader) value() ([]byte, error) {
	length, err := r.int32()
	if err != nil {
		return nil, err
	}
	if length == -1 {
		return nil, nil
	}
	return r.next(int(length))
}
