// Package res defines the success-or-failure wrapper that flows through
// every record pipeline in estuary.
//
// A Res[T] is either a valid record of type T, or a captured Failure
// describing what went wrong and in which source. Failures are data, not
// control flow: one broken record never aborts a multi-source query. Any
// transformation over a Res sequence must preserve Err entries positionally
// unless the caller explicitly asked for error-free output.
package res

import (
	"fmt"

	"github.com/veldt/estuary/errors"
)

// Failure describes a record that could not be produced or transformed.
// It carries a human-readable message, the originating source identifier,
// and optionally a structured cause chain.
type Failure struct {
	Msg    string
	Source string
	Cause  error
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.Source != "" {
		return fmt.Sprintf("%s: %s", f.Source, f.Msg)
	}
	return f.Msg
}

// Unwrap exposes the cause chain to errors.Is / errors.As
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Res is a tagged union: either Ok(value) or Err(failure).
// The zero value is Ok(zero T); construct with Ok or Err.
// Immutable once produced.
type Res[T any] struct {
	value T
	fail  *Failure
}

// Ok wraps a valid record
func Ok[T any](v T) Res[T] {
	return Res[T]{value: v}
}

// Err wraps a failure attributed to the given source
func Err[T any](source string, cause error) Res[T] {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	return Res[T]{fail: &Failure{Msg: msg, Source: source, Cause: cause}}
}

// Errf wraps a failure with a formatted message and no separate cause
func Errf[T any](source, format string, args ...any) Res[T] {
	msg := fmt.Sprintf(format, args...)
	return Res[T]{fail: &Failure{Msg: msg, Source: source, Cause: errors.New(msg)}}
}

// FromFailure re-wraps an existing Failure, preserving its attribution.
// Used when an Err entry crosses a type boundary (e.g. decode from cache).
func FromFailure[T any](f *Failure) Res[T] {
	return Res[T]{fail: f}
}

// IsErr reports whether the Res holds a failure
func (r Res[T]) IsErr() bool {
	return r.fail != nil
}

// Value returns the wrapped record. Only meaningful when !IsErr();
// returns the zero value for failures.
func (r Res[T]) Value() T {
	return r.value
}

// Failure returns the captured failure, or nil for Ok values
func (r Res[T]) Failure() *Failure {
	return r.fail
}

// Unwrap splits the Res into Go's usual (value, error) shape
func (r Res[T]) Unwrap() (T, error) {
	if r.fail != nil {
		var zero T
		return zero, r.fail
	}
	return r.value, nil
}

// Map applies fn to an Ok value, converting a failed or panicking fn into
// an Err in place rather than letting it escape the pipeline. Err inputs
// pass through untouched. This is the boundary for user-supplied
// functions: extraction and mapping failures become data.
func Map[T, U any](r Res[T], source string, fn func(T) (U, error)) (out Res[U]) {
	if r.fail != nil {
		return FromFailure[U](r.fail)
	}
	defer func() {
		if p := recover(); p != nil {
			out = Err[U](source, errors.Newf("panic in record transform: %v", p))
		}
	}()
	v, err := fn(r.value)
	if err != nil {
		return Err[U](source, err)
	}
	return Ok(v)
}
