package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goodtune/guestquota/internal/config"
	"github.com/goodtune/guestquota/internal/storage"
	"github.com/goodtune/guestquota/internal/storage/bolt"
	"github.com/goodtune/guestquota/internal/storage/memory"
	"github.com/goodtune/guestquota/internal/storage/redis"
	"github.com/goodtune/guestquota/internal/usage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app bundles everything a command needs
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    storage.Store
	registry *usage.Registry
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	log.Logger = logger

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("type", cfg.Storage.Type).
		Str("version", version).
		Msg("Storage opened")

	registry, err := usage.NewRegistry(store.Usage(), trackerConfig(cfg), usage.RealClock{}, cfg.Quota.ProfileCacheSize, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
	}, nil
}

// tracker returns the tracker for the --profile flag
func (a *app) tracker() *usage.Tracker {
	return a.registry.Tracker(profileName)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// openStorage opens the configured storage backend
func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "bolt":
		store, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt storage: %w", err)
		}
		return store, nil
	case "redis":
		store, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func trackerConfig(cfg *config.Config) usage.Config {
	return usage.Config{
		MaxMessages:         cfg.Quota.MaxMessages,
		Window:              cfg.Quota.WindowDuration(),
		StorageKey:          cfg.Quota.StorageKey,
		RunningLowThreshold: cfg.Quota.RunningLowThreshold,
		StorageTimeout:      parseDuration(cfg.Storage.Timeout, 0),
	}
}

// setupLogger configures the logger based on configuration. Command output
// owns stdout, so logs go to w.
func setupLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(w).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
