package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis stores sessions as plain keys with a TTL.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedis returns a Redis store. Keys are "kanboard:session:<token>".
// A ttl of zero or less never expires sessions.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: "kanboard:session:"}
}

func (s *Redis) key(token string) string { return s.prefix + token }

func (s *Redis) Get(ctx context.Context, token string) (string, bool, error) {
	user, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis get: %w", err)
	}
	return user, true, nil
}

func (s *Redis) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUser
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("session: redis set: %w", err)
	}
	return token, nil
}

func (s *Redis) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
