package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-checkable error classification surfaced to
// API clients. New kinds need a mapping in internal/http/response.
type Kind string

const (
	KindPrerequisiteMissing Kind = "prerequisite_missing"
	KindAlreadyStarted      Kind = "already_started"
	KindAlreadyReviewed     Kind = "already_reviewed"
	KindDayMismatch         Kind = "day_mismatch"
	KindCapReached          Kind = "cap_reached"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamInvalid     Kind = "upstream_invalid"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidArgument     Kind = "invalid_argument"
	KindInternal            Kind = "internal_error"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
