package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glyph-id/glyph/pkg/database"
	"github.com/redis/go-redis/v9"
)

// ErrChallengeNotFound is returned when a ceremony state is missing,
// already consumed or expired.
var ErrChallengeNotFound = errors.New("challenge not found or expired")

// ChallengeStore keeps short-lived, single-use ceremony state (WebAuthn
// challenges, OAuth state nonces) in Redis. Take consumes atomically,
// so a challenge can never be replayed, even across server instances.
type ChallengeStore struct {
	redis *database.Redis
}

// NewChallengeStore creates a new challenge store
func NewChallengeStore(redis *database.Redis) *ChallengeStore {
	return &ChallengeStore{redis: redis}
}

// Put stores ceremony state under an opaque id with a bounded TTL
func (s *ChallengeStore) Put(ctx context.Context, id, value string, ttl time.Duration) error {
	key := fmt.Sprintf("ceremony:%s", id)
	if err := s.redis.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Take retrieves and invalidates ceremony state in one step
func (s *ChallengeStore) Take(ctx context.Context, id string) (string, error) {
	key := fmt.Sprintf("ceremony:%s", id)
	value, err := s.redis.Client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("failed to take challenge: %w", err)
	}
	return value, nil
}
