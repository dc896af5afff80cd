// Package redis shares guest usage across processes through Redis. Records
// expire one window after their last write.
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/goodtune/guestquota/internal/config"
	"github.com/goodtune/guestquota/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements storage.Store on a Redis client.
type Store struct {
	client *redis.Client
	usage  *usageStore
}

// Open connects to Redis and verifies the connection with PING.
func Open(cfg config.RedisConfig) (*Store, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &Store{
		client: client,
		usage:  &usageStore{client: client, prefix: cfg.KeyPrefix},
	}, nil
}

func clientOptions(cfg config.RedisConfig) (*redis.Options, error) {
	timeouts := map[string]string{
		"dial_timeout":  cfg.DialTimeout,
		"read_timeout":  cfg.ReadTimeout,
		"write_timeout": cfg.WriteTimeout,
	}
	parsed := make(map[string]time.Duration, len(timeouts))
	for name, raw := range timeouts {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		parsed[name] = d
	}

	// Host may already carry the port (miniredis hands out "host:port")
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	return &redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  parsed["dial_timeout"],
		ReadTimeout:  parsed["read_timeout"],
		WriteTimeout: parsed["write_timeout"],
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Usage returns the guest usage store.
func (s *Store) Usage() storage.UsageStore {
	return s.usage
}
