package usage

import (
	"fmt"
	"strings"

	"github.com/goodtune/guestquota/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// DefaultProfileCacheSize is the number of trackers a Registry keeps
const DefaultProfileCacheSize = 128

// Registry hands out one Tracker per guest profile, each scoped to its own
// storage key. Trackers keep no state between calls, so evicting one from
// the cache loses nothing.
type Registry struct {
	store    storage.UsageStore
	config   Config
	clock    Clock
	logger   zerolog.Logger
	trackers *lru.Cache[string, *Tracker]
}

// NewRegistry creates a registry sharing store, config and clock across
// profiles. A non-positive size selects DefaultProfileCacheSize.
func NewRegistry(store storage.UsageStore, config Config, clock Clock, size int, logger zerolog.Logger) (*Registry, error) {
	if size <= 0 {
		size = DefaultProfileCacheSize
	}

	trackers, err := lru.New[string, *Tracker](size)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}

	return &Registry{
		store:    store,
		config:   config.withDefaults(),
		clock:    clock,
		logger:   logger,
		trackers: trackers,
	}, nil
}

// Tracker returns the tracker for profile. The empty profile is the default
// guest and uses the configured storage key unchanged.
func (r *Registry) Tracker(profile string) *Tracker {
	key := ProfileKey(r.config.StorageKey, profile)
	if tracker, ok := r.trackers.Get(key); ok {
		return tracker
	}

	cfg := r.config
	cfg.StorageKey = key
	tracker := NewTracker(r.store, cfg, r.clock, r.logger)
	r.trackers.Add(key, tracker)
	return tracker
}

// Len returns the number of cached trackers.
func (r *Registry) Len() int {
	return r.trackers.Len()
}

// ProfileKey derives the storage key for a profile from the base key.
func ProfileKey(base, profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return base
	}
	return base + ":" + profile
}
