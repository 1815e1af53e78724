// Package apperrors defines the error taxonomy the orchestrator and its
// downstream stores use to signal failures: BadRequest, NotFound,
// Unavailable, Cancelled, Internal. Callers classify an error with the
// Is* helpers rather than comparing error strings.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors. Wrap with fmt.Errorf("%w: ...") to attach context
// without losing classification via errors.Is.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrCancelled   = errors.New("cancelled")
	ErrInternal    = errors.New("internal error")
)

// BadRequest wraps ErrBadRequest with context, e.g. a malformed obj_filters
// string or an out-of-range page/size.
func BadRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with context, e.g. an unknown imgid.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Unavailable wraps ErrUnavailable with context, e.g. a downstream store
// that could not be reached.
func Unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// Internal wraps ErrInternal with context. Internal errors represent
// invariant violations (e.g. a store returning an unrequested key) and
// must be logged with full context by the caller before propagating.
func Internal(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// IsBadRequest reports whether err is or wraps ErrBadRequest.
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err is or wraps ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsInternal reports whether err is or wraps ErrInternal.
func IsInternal(err error) bool { return errors.Is(err, ErrInternal) }

// IsCancelled reports whether err represents request cancellation, either
// our own sentinel or a context cancellation/deadline propagated from a
// downstream call.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// FromContext converts a context error into ErrCancelled, preserving the
// original error as the wrapped cause.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}
