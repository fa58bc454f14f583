package session

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// MemoryStore is a process-local Store, used in tests and when no Redis is
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	ttl      time.Duration
	now      func() time.Time
	onExpire func(userID string)
}

// NewMemoryStore constructs a MemoryStore with the given inactivity TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetExpiryHook registers fn to run whenever GetOrCreate resets a session
// because its TTL lapsed. The owner uses it to discard the DRAFT ticket tied
// to the expired session; sweeps report expired users to their caller
// instead. Must be called before the store serves traffic.
func (s *MemoryStore) SetExpiryHook(fn func(userID string)) {
	s.onExpire = fn
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(_ context.Context, userID string) (*domain.Session, error) {
	s.mu.Lock()

	now := s.now()
	existing, ok := s.sessions[userID]
	if !ok {
		created := &domain.Session{
			UserID:     userID,
			State:      domain.SessionStateIdle,
			LastActive: now,
		}
		s.sessions[userID] = created
		s.mu.Unlock()
		return created.Clone(), nil
	}
	expired := existing.Expired(now, s.ttl)
	if expired {
		existing.Reset()
		existing.LastActive = now
	}
	clone := existing.Clone()
	s.mu.Unlock()

	if expired && s.onExpire != nil {
		s.onExpire(userID)
	}
	return clone, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, userID string, mutator Mutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[userID]
	if !ok {
		existing = &domain.Session{
			UserID:     userID,
			State:      domain.SessionStateIdle,
			LastActive: s.now(),
		}
	}
	working := existing.Clone()
	if err := mutator(working); err != nil {
		return err
	}
	s.sessions[userID] = working
	return nil
}

// ExpireSweep implements Store.
func (s *MemoryStore) ExpireSweep(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for userID, sess := range s.sessions {
		if sess.State == domain.SessionStateIdle && len(sess.Memory) == 0 {
			continue
		}
		if sess.Expired(now, s.ttl) {
			sess.Reset()
			expired = append(expired, userID)
		}
	}
	return expired, nil
}
