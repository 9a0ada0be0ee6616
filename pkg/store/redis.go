package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store. Job hashes live at key "job:<id>";
// locks live in the separate "lock:job:<id>" namespace (spec §6).
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore builds a RedisStore from connection options.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewRedisStoreFromClient wraps an already-constructed client, useful
// when the caller needs TLS or cluster options this package doesn't expose.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(jobID string) string {
	return "job:" + jobID
}

func (s *RedisStore) SetJobFields(ctx context.Context, jobID string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	if err := s.client.HSet(ctx, jobKey(jobID), values...).Err(); err != nil {
		return fmt.Errorf("redis store: set job fields: %w", err)
	}
	return nil
}

func (s *RedisStore) GetJobFields(ctx context.Context, jobID string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: get job fields: %w", err)
	}
	return fields, nil
}

func (s *RedisStore) SetTTL(ctx context.Context, jobID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, jobKey(jobID), ttl).Err(); err != nil {
		return fmt.Errorf("redis store: set ttl: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, jobID string) (bool, error) {
	n, err := s.client.Exists(ctx, jobKey(jobID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis store: exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, jobKey(jobID)).Err(); err != nil {
		return fmt.Errorf("redis store: delete: %w", err)
	}
	return nil
}

func (s *RedisStore) AcquireLock(ctx context.Context, jobID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, lockKey(jobID), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("redis store: acquire lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, lockKey(jobID)).Err(); err != nil {
		return fmt.Errorf("redis store: release lock: %w", err)
	}
	return nil
}

// Close closes the underlying client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
