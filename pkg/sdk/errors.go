package talentsearch

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by *APIError. Use errors.Is() to check.
var (
	ErrValidation   = errors.New("talentsearch: invalid search request")
	ErrUnauthorized = errors.New("talentsearch: unauthorized")
	ErrForbidden    = errors.New("talentsearch: forbidden")
	ErrUnavailable  = errors.New("talentsearch: backend unavailable")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("talentsearch: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches the sentinel for the error code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Code == "validation_failed" || e.Code == "bad_request"
	case ErrUnauthorized:
		return e.StatusCode == 401
	case ErrForbidden:
		return e.StatusCode == 403
	case ErrUnavailable:
		return e.StatusCode == 503
	}
	return false
}
