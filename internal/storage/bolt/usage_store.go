package bolt

import (
	"context"
	"time"

	"github.com/goodtune/guestquota/internal/storage"
	"go.etcd.io/bbolt"
)

// usageStore keeps one value per key. Bolt has no key expiry, so ttl is
// ignored and stale records are pruned by the reader.
type usageStore struct {
	db *bbolt.DB
}

func (s *usageStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := inBucket(ctx, s.db, false, func(b *bbolt.Bucket) error {
		stored := b.Get([]byte(key))
		if stored == nil {
			return storage.ErrNotFound
		}
		// Bolt memory is only valid for the life of the transaction.
		value = append([]byte(nil), stored...)
		return nil
	})
	return value, err
}

func (s *usageStore) Put(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return inBucket(ctx, s.db, true, func(b *bbolt.Bucket) error {
		return b.Put([]byte(key), value)
	})
}

func (s *usageStore) Delete(ctx context.Context, key string) error {
	return inBucket(ctx, s.db, true, func(b *bbolt.Bucket) error {
		if b.Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}
