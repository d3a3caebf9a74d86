package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTokenStore holds single-use password reset tokens.
type ResetTokenStore interface {
	Store(ctx context.Context, token string, userID uint, ttl time.Duration) error
	// Consume returns the user the token belongs to and deletes it. A token
	// can be consumed exactly once.
	Consume(ctx context.Context, token string) (uint, error)
}

// redisTokenStore keeps reset tokens in Redis under a TTL, so expiry needs no
// sweeper.
type redisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) ResetTokenStore {
	return &redisTokenStore{client: client}
}

func resetTokenKey(token string) string {
	return "reset_token:" + token
}

func (s *redisTokenStore) Store(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("token store not available")
	}
	return s.client.Set(ctx, resetTokenKey(token), strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

func (s *redisTokenStore) Consume(ctx context.Context, token string) (uint, error) {
	if s.client == nil {
		return 0, errors.New("token store not available")
	}

	val, err := s.client.GetDel(ctx, resetTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidResetToken
		}
		return 0, fmt.Errorf("failed to consume reset token: %w", err)
	}

	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, ErrInvalidResetToken
	}
	return uint(userID), nil
}
