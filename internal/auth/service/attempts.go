package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	MaxLoginAttempts   = 5
	LoginAttemptWindow = 15 * time.Minute
)

// AttemptStore counts failed logins per key inside a fixed window that starts at the first failure.
type AttemptStore interface {
	Failures(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type memoryEntry struct {
	count int
	first time.Time
}

type MemoryStore struct {
	Window time.Duration
	Now    func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	return &MemoryStore{Window: window, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// live returns the entry for key, dropping it once its window has passed. Caller holds mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().Sub(e.first) >= s.Window {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Failures(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.live(key)
	return e.count, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		e = memoryEntry{first: s.now()}
	}
	e.count++
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

type RedisStore struct {
	Client *redis.Client
	Window time.Duration
	Prefix string
}

func NewRedisStore(client *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{Client: client, Window: window, Prefix: "login_attempts:"}
}

func (s *RedisStore) key(k string) string { return s.Prefix + k }

func (s *RedisStore) Failures(ctx context.Context, key string) (int, error) {
	n, err := s.Client.Get(ctx, s.key(key)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get attempts: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter. Only the first failure sets the TTL, so the window does not slide.
func (s *RedisStore) RecordFailure(ctx context.Context, key string) error {
	n, err := s.Client.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}
	if n == 1 {
		if err := s.Client.Expire(ctx, s.key(key), s.Window).Err(); err != nil {
			return fmt.Errorf("redis expire attempts: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis reset attempts: %w", err)
	}
	return nil
}
