package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore marca qué usuarios tienen un canal en vivo abierto.
// Cada Touch renueva la marca por ttl; sin renovación el usuario expira solo.
type PresenceStore interface {
	Touch(ctx context.Context, userID string) error
	Online(ctx context.Context, userID string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

type memoryPresenceStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]time.Time
	now   func() time.Time
}

func NewMemoryPresenceStore(ttl time.Duration) PresenceStore {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &memoryPresenceStore{
		ttl:   ttl,
		items: make(map[string]time.Time),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryPresenceStore) Touch(_ context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = s.now().Add(s.ttl)
	return nil
}

func (s *memoryPresenceStore) Online(_ context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[userID]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.items, userID)
		return false, nil
	}
	return true, nil
}

func (s *memoryPresenceStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, strings.TrimSpace(userID))
	return nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisPresenceStore struct {
	client redisKV
	ttl    time.Duration
	prefix string
}

func NewRedisPresenceStore(client *redis.Client, ttl time.Duration) PresenceStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &redisPresenceStore{
		client: client,
		ttl:    ttl,
		prefix: "chat:presence:",
	}
}

func (s *redisPresenceStore) Touch(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+userID, "1", s.ttl).Err()
}

func (s *redisPresenceStore) Online(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisPresenceStore) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+userID).Err()
}
