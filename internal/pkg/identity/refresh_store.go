package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

// RefreshStore keeps issued refresh tokens. Consume removes the token so each
// one can be exchanged only once.
type RefreshStore interface {
	Save(ctx context.Context, token, profileID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

const refreshKeyPrefix = "refresh:"

// RedisRefreshStore keeps refresh tokens as expiring Redis keys.
type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func (s *RedisRefreshStore) Save(ctx context.Context, token, profileID string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKeyPrefix+token, profileID, ttl).Err()
}

func (s *RedisRefreshStore) Consume(ctx context.Context, token string) (string, error) {
	id, err := s.client.GetDel(ctx, refreshKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRefreshNotFound
	}
	return id, err
}

func (s *RedisRefreshStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKeyPrefix+token).Err()
}

type memoryEntry struct {
	profileID string
	expires   time.Time
}

// MemoryRefreshStore is a process-local RefreshStore for tests and single-node development.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: map[string]memoryEntry{}}
}

func (s *MemoryRefreshStore) Save(_ context.Context, token, profileID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryEntry{profileID: profileID, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryRefreshStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[token]
	delete(s.tokens, token)
	if !ok || time.Now().After(e.expires) {
		return "", ErrRefreshNotFound
	}
	return e.profileID, nil
}

func (s *MemoryRefreshStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
