package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/talentsearch/internal/db"
)

// Compile-time check: KV implements db.ReplayStore.
var _ db.ReplayStore = (*KV)(nil)

type entry struct {
	value   []byte
	expires time.Time
}

// KV is an in-process key-value store with per-key expiry. Expired keys are
// evicted lazily on access and on every write.
type KV struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

// NewKV creates an empty store.
func NewKV() *KV {
	return &KV{data: make(map[string]entry), now: time.Now}
}

// Ping always succeeds.
func (k *KV) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (k *KV) Close() {}

// WaitForReady returns immediately.
func (k *KV) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get returns the value of a live key.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.data[key]
	if !ok || !k.now().Before(e.expires) {
		delete(k.data, key)
		return nil, db.ErrKeyNotFound
	}
	return e.value, nil
}

// SetNX stores value until ttl elapses unless a live key exists.
func (k *KV) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	for key, e := range k.data {
		if !now.Before(e.expires) {
			delete(k.data, key)
		}
	}
	if _, ok := k.data[key]; ok {
		return false, nil
	}
	k.data[key] = entry{value: append([]byte(nil), value...), expires: now.Add(ttl)}
	return true, nil
}

// Del removes a key.
func (k *KV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}
