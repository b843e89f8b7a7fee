package models

import "errors"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	// ErrInvalidPage is returned for a page number below 1.
	ErrInvalidPage = errors.New("page must be at least 1")
	// ErrInvalidPageSize is returned for a page size below 1.
	ErrInvalidPageSize = errors.New("size must be at least 1")
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page int
	Size int
}

// NewPagination validates a page request and caps its size at MaxPageSize.
// Callers substitute DefaultPage and DefaultPageSize for absent values.
func NewPagination(page, size int) (Pagination, error) {
	if page < 1 {
		return Pagination{}, ErrInvalidPage
	}
	if size < 1 {
		return Pagination{}, ErrInvalidPageSize
	}
	return Pagination{Page: page, Size: min(size, MaxPageSize)}, nil
}

// Paged is one page of results plus the total across all pages.
type Paged[T any] struct {
	Items         []T
	Pagination    Pagination
	TotalElements int64
}
