package auth

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
	"github.com/kailas-cloud/talentsearch/internal/metrics"
)

// GateConfig configures the gate.
type GateConfig struct {
	// RequiredScope must be present in the grant. Empty disables the check.
	RequiredScope string
	// Anonymous accepts an empty credential (local mode only).
	Anonymous bool
}

// Gate authenticates a caller credential and attaches its scopes to the context.
type Gate struct {
	verifier Verifier
	replay   ReplayGuard
	cfg      GateConfig
	now      func() time.Time
}

// NewGate creates a gate. replay may be nil to accept repeated credentials.
func NewGate(v Verifier, replay ReplayGuard, cfg GateConfig) *Gate {
	return &Gate{verifier: v, replay: replay, cfg: cfg, now: time.Now}
}

// Authorize verifies credential, rejects replays and checks the required scope.
// On success the returned context carries the granted scopes.
func (g *Gate) Authorize(ctx context.Context, credential string) (context.Context, error) {
	if credential == "" && !g.cfg.Anonymous {
		metrics.AuthRejectionsTotal.WithLabelValues("missing").Inc()
		return ctx, domain.NewUnauthorized("missing credential")
	}

	grant, err := g.verifier.Verify(credential, g.now())
	if err != nil {
		metrics.AuthRejectionsTotal.WithLabelValues("invalid").Inc()
		return ctx, err
	}

	if g.replay != nil && grant.ID != "" {
		fresh, err := g.replay.Claim(ctx, grant.ID, grant.Expires)
		if err != nil {
			return ctx, errors.Wrap(err, "replay check")
		}
		if !fresh {
			metrics.AuthRejectionsTotal.WithLabelValues("replayed").Inc()
			return ctx, domain.NewUnauthorized("credential already used")
		}
	}

	if g.cfg.RequiredScope != "" && !grant.Scopes.Has(g.cfg.RequiredScope) {
		metrics.AuthRejectionsTotal.WithLabelValues("scope").Inc()
		return ctx, domain.NewForbidden("missing scope " + g.cfg.RequiredScope)
	}

	return scope.ContextWithScopes(ctx, grant.Scopes), nil
}
