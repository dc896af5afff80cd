// Package memory provides an in-process storage backend. Records live for
// the lifetime of the Store and are lost on exit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/guestquota/internal/storage"
)

// Store implements the storage.Store interface with a map.
type Store struct {
	usage *usageStore
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{usage: &usageStore{values: make(map[string][]byte)}}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Usage returns the usage store.
func (s *Store) Usage() storage.UsageStore { return s.usage }

type usageStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func (s *usageStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *usageStore) Put(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *usageStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.values, key)
	return nil
}
