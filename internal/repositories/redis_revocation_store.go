package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RedisRevocationStore keeps the session denylist in Redis. Entries carry a TTL
// equal to the token's remaining lifetime, so no sweep is needed.
type RedisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func (s *RedisRevocationStore) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	value := fmt.Sprintf("%s|%s", userID, reason)
	if err := s.client.Set(ctx, revokedKeyPrefix+jti, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.client.Get(ctx, revokedKeyPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
}

// CleanupExpiredTokens is a no-op; Redis expires entries itself.
func (s *RedisRevocationStore) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *RedisRevocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
