package redis

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/guestquota/internal/storage"
	"github.com/redis/go-redis/v9"
)

type usageStore struct {
	client *redis.Client
	prefix string
}

// Get returns the raw usage record stored under key
func (s *usageStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores the usage record. A positive ttl becomes the key's expiry so a
// guest that goes quiet for a full window leaves nothing behind.
func (s *usageStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Delete removes the usage record
func (s *usageStore) Delete(ctx context.Context, key string) error {
	deleted, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}
