package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

const keyPrefix = "session:"

// RedisStore is a Redis-backed Store. Atomicity of Update relies on the
// single-writer-per-key discipline enforced by KeyedLocks; keys are retained
// for twice the inactivity TTL so the sweeper can still observe and reset
// expired sessions before Redis garbage-collects them.
type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	now      func() time.Time
	onExpire func(userID string)
}

// NewRedisStore constructs a RedisStore with the given inactivity TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// SetExpiryHook registers fn to run whenever GetOrCreate resets a session
// because its TTL lapsed. The owner uses it to discard the DRAFT ticket tied
// to the expired session; sweeps report expired users to their caller
// instead. Must be called before the store serves traffic.
func (s *RedisStore) SetExpiryHook(fn func(userID string)) {
	s.onExpire = fn
}

// GetOrCreate implements Store.
func (s *RedisStore) GetOrCreate(ctx context.Context, userID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		created := &domain.Session{
			UserID:     userID,
			State:      domain.SessionStateIdle,
			LastActive: s.now(),
		}
		if err := s.write(ctx, created); err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreUnavailable(fmt.Errorf("session get: %w", err))
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	if sess.Expired(s.now(), s.ttl) {
		sess.Reset()
		sess.LastActive = s.now()
		if err := s.write(ctx, &sess); err != nil {
			return nil, err
		}
		if s.onExpire != nil {
			s.onExpire(sess.UserID)
		}
	}
	return &sess, nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, userID string, mutator Mutator) error {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	working := sess.Clone()
	if err := mutator(working); err != nil {
		return err
	}
	return s.write(ctx, working)
}

// ExpireSweep implements Store.
func (s *RedisStore) ExpireSweep(ctx context.Context, now time.Time) ([]string, error) {
	var expired []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return expired, fmt.Errorf("sweep get %s: %w", key, err)
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			continue
		}
		if sess.State == domain.SessionStateIdle && len(sess.Memory) == 0 {
			continue
		}
		if !sess.Expired(now, s.ttl) {
			continue
		}
		sess.Reset()
		if err := s.write(ctx, &sess); err != nil {
			return expired, err
		}
		expired = append(expired, sess.UserID)
	}
	if err := iter.Err(); err != nil {
		return expired, fmt.Errorf("sweep scan: %w", err)
	}
	return expired, nil
}

func (s *RedisStore) write(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	retention := 2 * s.ttl
	if retention <= 0 {
		retention = 0
	}
	if err := s.client.Set(ctx, keyPrefix+sess.UserID, raw, retention).Err(); err != nil {
		return apperrors.NewSessionStoreUnavailable(fmt.Errorf("session set: %w", err))
	}
	return nil
}
