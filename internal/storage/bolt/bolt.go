// Package bolt persists guest usage in a single-file bbolt database, one
// key per guest profile in the guest_usage bucket.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/guestquota/internal/storage"
	"go.etcd.io/bbolt"
)

var bucketGuestUsage = []byte("guest_usage")

// Store implements storage.Store on a bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path. Another process holding the
// file lock makes Open fail after a short wait.
func Open(path string) (*Store, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGuestUsage)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucketGuestUsage, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Usage returns the guest usage store.
func (s *Store) Usage() storage.UsageStore { return &usageStore{db: s.db} }

// inBucket runs fn against the usage bucket in a read or write transaction.
// The context is only checked on entry; bbolt transactions cannot be
// interrupted.
func inBucket(ctx context.Context, db *bbolt.DB, writable bool, fn func(*bbolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	run := db.View
	if writable {
		run = db.Update
	}
	return run(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketGuestUsage)
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketGuestUsage)
		}
		return fn(b)
	})
}
