package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error kinds. Every error leaving the search pipeline is marked with exactly one of them;
// check with errors.Is.
var (
	// ErrValidation signals a malformed or unknown filter (client fault).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized signals a missing, invalid, replayed or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals a valid credential lacking the required scope.
	ErrForbidden = errors.New("forbidden")
	// ErrBackendUnavailable signals a transport or timeout failure after exhausting retries.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendQuery signals that the backend rejected a structurally invalid query.
	ErrBackendQuery = errors.New("backend rejected query")
	// ErrSerialization signals a response shaping failure.
	ErrSerialization = errors.New("serialization failed")
)

// Kind names used in error reports.
const (
	KindValidation         = "ValidationError"
	KindAuth               = "AuthError"
	KindBackendUnavailable = "BackendUnavailable"
	KindBackendQuery       = "BackendQueryError"
	KindSerialization      = "SerializationError"
	KindInternal           = "InternalError"
)

// ValidationError is a client-fault error bound to a single filter field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a field-level ValidationError.
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NewUnauthorized creates an AuthError surfaced as 401.
func NewUnauthorized(reason string) error {
	return errors.Mark(errors.New(reason), ErrUnauthorized)
}

// NewForbidden creates an AuthError surfaced as 403.
func NewForbidden(reason string) error {
	return errors.Mark(errors.New(reason), ErrForbidden)
}

// BackendQueryError is a non-retryable backend rejection (4xx-equivalent).
type BackendQueryError struct {
	Status int
	Reason string
}

func (e *BackendQueryError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrBackendQuery.Error(), e.Status, e.Reason)
}

func (e *BackendQueryError) Unwrap() error { return ErrBackendQuery }

// MarkUnavailable marks err as BackendUnavailable, keeping the cause chain.
func MarkUnavailable(err error) error {
	return errors.Mark(errors.Wrap(err, "backend unavailable"), ErrBackendUnavailable)
}

// MarkSerialization marks err as SerializationError.
func MarkSerialization(err error) error {
	return errors.Mark(err, ErrSerialization)
}

// Kind returns the report kind of err.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return KindAuth
	case errors.Is(err, ErrBackendUnavailable):
		return KindBackendUnavailable
	case errors.Is(err, ErrBackendQuery):
		return KindBackendQuery
	case errors.Is(err, ErrSerialization):
		return KindSerialization
	default:
		return KindInternal
	}
}

// IsClientFault reports whether err is caused by the caller and must not be reported.
func IsClientFault(err error) bool {
	k := Kind(err)
	return k == KindValidation || k == KindAuth
}
