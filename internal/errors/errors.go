// Package errors defines the error types shared by the store, the index
// engine and the query layer.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrStoreUnavailable marks errors returned by the underlying storage
	// when a request could not be served. Such requests are safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWrongType is returned when an operation targets a key
	// holding the wrong kind of value.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

	// ErrInvalidArgument is returned when a caller passes an unusable parameter.
	ErrInvalidArgument = errors.New("invalid argument")
)

// AlreadyExistsError is returned when creating an index
// with a name that is already used.
type AlreadyExistsError struct {
	Name string
}

func (a AlreadyExistsError) Error() string {
	return fmt.Sprintf("%q already exists", a.Name)
}

func IsAlreadyExistsError(err error) bool {
	return errors.HasType(err, AlreadyExistsError{})
}

// NotFoundError is returned when the requested key, field or index
// doesn't exist.
type NotFoundError struct {
	Name string
}

func (a NotFoundError) Error() string {
	return fmt.Sprintf("%q not found", a.Name)
}

func IsNotFoundError(err error) bool {
	return errors.HasType(err, NotFoundError{})
}

// MalformedFieldError is returned when a field holds a value
// that cannot be interpreted as the expected type.
type MalformedFieldError struct {
	Key   string
	Field string
	Value string
}

func (m MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %q of %q: %q", m.Field, m.Key, m.Value)
}

func IsMalformedFieldError(err error) bool {
	return errors.HasType(err, MalformedFieldError{})
}

// Unavailable marks err as a retryable storage failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WithStack(err), ErrStoreUnavailable)
}

// IsRetryable reports whether err was produced by a storage failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// InvalidArgumentf returns an error marked as ErrInvalidArgument.
func InvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}
