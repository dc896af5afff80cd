package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Usage() UsageStore
}

// UsageStore persists guest usage records as opaque values under a single key.
//
// Implementations do not offer an atomic read-modify-write. Two writers
// sharing a key can interleave; the last Put wins.
type UsageStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key. A positive ttl asks the backend to expire
	// the key; backends without native expiry ignore it.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
