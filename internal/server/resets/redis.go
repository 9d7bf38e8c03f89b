package resets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fras:reset:"

var ErrRedisUnavailable = errors.New("reset redis unavailable")

type RedisStore struct {
	redis  *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client, prefix: keyPrefix}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

func (s *RedisStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Consume uses GETDEL so two concurrent confirmations cannot both succeed.
func (s *RedisStore) Consume(ctx context.Context, token string) (int64, error) {
	id, err := s.redis.GetDel(ctx, s.key(token)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return id, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
