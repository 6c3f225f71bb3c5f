// Package session persists small per-user session state, currently the
// active operating context chosen through the mode resolver. Values are
// opaque strings; the resolver owns their encoding.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the persistence interface for per-user session values.
// Get returns "" with a nil error when no value is stored.
type Store interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, value string) error
	Delete(ctx context.Context, userID string) error
}

const keyPrefix = "mediq:scope:"

// RedisStore keeps session values in redis with a TTL, so the chosen
// context survives server restarts and is shared across instances.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (string, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session value: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, userID, value string) error {
	if err := s.rdb.Set(ctx, keyPrefix+userID, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session value: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("delete session value: %w", err)
	}
	return nil
}

// Close releases the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// MemoryStore is a process-local Store for tests and deployments without
// redis configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[userID], nil
}

func (s *MemoryStore) Set(_ context.Context, userID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[userID] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, userID)
	return nil
}
