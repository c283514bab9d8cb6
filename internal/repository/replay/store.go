package replay

import (
	"context"
	"fmt"
	"time"
)

// minTTL keeps a claim alive for at least one second.
const minTTL = time.Second

// store is the consumer interface for replay tracking (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// Store implements usecase/auth.ReplayGuard on top of SET NX with TTL.
type Store struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a replay store. Keys are prefix + credential id.
func New(s store, prefix string) *Store {
	return &Store{store: s, prefix: prefix, now: time.Now}
}

// Claim records id as used until expires. Returns false when id was already claimed.
func (s *Store) Claim(ctx context.Context, id string, expires time.Time) (bool, error) {
	ttl := expires.Sub(s.now())
	if ttl < minTTL {
		ttl = minTTL
	}
	key := s.prefix + id
	ok, err := s.store.SetNX(ctx, key, []byte("1"), ttl.Round(time.Second))
	if err != nil {
		return false, fmt.Errorf("replay SETNX %s: %w", key, err)
	}
	return ok, nil
}
