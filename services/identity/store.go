package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courtwise/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "identity:session:"

// SessionStore keeps the identity session bound to each client session key.
type SessionStore interface {
	Save(ctx context.Context, key string, session *models.IdentitySession) error
	// Load returns nil when key has no identity session.
	Load(ctx context.Context, key string) (*models.IdentitySession, error)
	Delete(ctx context.Context, key string) error
}

// RedisSessionStore stores sessions as JSON under identity:session:<key>.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore keeps each entry for ttl after its last save. A zero
// ttl keeps entries until they are deleted.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Save(ctx context.Context, key string, session *models.IdentitySession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode identity session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store identity session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, key string) (*models.IdentitySession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity session: %w", err)
	}
	var session models.IdentitySession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode identity session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete identity session: %w", err)
	}
	return nil
}
