package auth

import (
	"context"
	"time"

	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
)

// Grant is a verified credential.
type Grant struct {
	Subject string
	Scopes  scope.Set
	// ID identifies this credential presentation for replay tracking. Empty skips it.
	ID string
	// Expires is when the credential stops being accepted.
	Expires time.Time
}

// Verifier checks a credential at a given time.
// Errors are AuthErrors (domain.ErrUnauthorized).
type Verifier interface {
	Verify(credential string, now time.Time) (Grant, error)
}

// ReplayGuard records used credentials.
type ReplayGuard interface {
	// Claim returns false when id was already claimed and has not expired.
	Claim(ctx context.Context, id string, expires time.Time) (bool, error)
}
