package session

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// Mutator applies an atomic read-modify-write to one session.
type Mutator func(*domain.Session) error

// Store owns Session records. Keys are independent, so no cross-user
// locking is needed; callers serialize per user via Locks.
type Store interface {
	// GetOrCreate returns the session for userID, creating an IDLE one on
	// first contact. A session inactive past the TTL is reset on access.
	GetOrCreate(ctx context.Context, userID string) (*domain.Session, error)
	// Update applies mutator atomically to the session for userID.
	Update(ctx context.Context, userID string, mutator Mutator) error
	// ExpireSweep resets sessions inactive beyond the TTL to IDLE with
	// cleared memory and returns the affected user IDs so the caller can
	// discard any DRAFT tickets tied to them. Applying it twice in a row is
	// idempotent.
	ExpireSweep(ctx context.Context, now time.Time) ([]string, error)
}

// KeyedLocks serializes processing per user ID. Two in-flight messages from
// the same user never interleave their session mutations; the second waits
// for the first to commit. The lock must be released before suspending on
// model-provider I/O and reacquired to commit the result.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocks constructs an empty lock registry.
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until the per-key lock is held or ctx is done. The returned
// release function must be called exactly once.
func (k *KeyedLocks) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			k.release(key, entry, true)
		})
	}, nil
}

func (k *KeyedLocks) release(key string, entry *lockEntry, held bool) {
	if held {
		<-entry.ch
	}
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
