// Package status is the application error taxonomy shared by services and
// the HTTP layer.
package status

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sited-io/websites/pkg/runtime"
)

// Code classifies an application error.
type Code int

const (
	// Internal is an unexpected failure; its message is never shown to callers.
	Internal Code = iota
	InvalidArgument
	NotFound
	AlreadyExists
	FailedPrecondition
	ResourceExhausted
	Unauthenticated
)

var codeNames = map[Code]string{
	Internal:           "internal",
	InvalidArgument:    "invalid_argument",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	FailedPrecondition: "failed_precondition",
	ResourceExhausted:  "resource_exhausted",
	Unauthenticated:    "unauthenticated",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// HTTPStatus maps the code to an HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case FailedPrecondition:
		return http.StatusPreconditionFailed
	case ResourceExhausted:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error. Err is the cause and is only logged.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func InvalidArgumentf(format string, args ...any) *Error {
	return New(InvalidArgument, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, format, args...)
}

func AlreadyExistsf(format string, args ...any) *Error {
	return New(AlreadyExists, format, args...)
}

func FailedPreconditionf(format string, args ...any) *Error {
	return New(FailedPrecondition, format, args...)
}

func ResourceExhaustedf(format string, args ...any) *Error {
	return New(ResourceExhausted, format, args...)
}

func Unauthenticatedf(format string, args ...any) *Error {
	return New(Unauthenticated, format, args...)
}

// Internalf wraps an unexpected cause.
func Internalf(err error, format string, args ...any) *Error {
	return Wrap(Internal, err, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first *Error in err's chain, or Internal.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Internal
}

// FromStorage translates a storage error into the taxonomy. An error that
// already carries a code passes through unchanged.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, runtime.ErrNotFound):
		return Wrap(NotFound, err, "not found")
	case errors.Is(err, runtime.ErrDuplicateKey):
		return Wrap(AlreadyExists, err, "already exists")
	case errors.Is(err, runtime.ErrForeignKeyViolation):
		return Wrap(FailedPrecondition, err, "referenced resource does not exist")
	case errors.Is(err, runtime.ErrCheckViolation):
		return Wrap(InvalidArgument, err, "value not allowed")
	default:
		return Wrap(Internal, err, "storage failure")
	}
}
