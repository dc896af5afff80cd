package usage

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/goodtune/guestquota/internal/metrics"
	"github.com/goodtune/guestquota/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxMessages is the number of guest messages admitted per window
	DefaultMaxMessages = 7

	// DefaultWindow is the sliding window each message counts against
	DefaultWindow = 6 * time.Hour

	// DefaultStorageKey is the storage key of the default guest profile
	DefaultStorageKey = "guest-usage"

	// DefaultRunningLowThreshold is the remaining count at or below which a
	// guest is warned
	DefaultRunningLowThreshold = 2
)

// Config holds tracker configuration. Zero values select the defaults.
type Config struct {
	MaxMessages         int
	Window              time.Duration
	StorageKey          string
	RunningLowThreshold int
	// StorageTimeout bounds each storage call; zero leaves the caller's
	// context untouched.
	StorageTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.RunningLowThreshold <= 0 {
		c.RunningLowThreshold = DefaultRunningLowThreshold
	}
	return c
}

// Tracker enforces a sliding-window message quota for one guest profile.
//
// Every message counts against the quota until exactly Window after it was
// recorded, so slots free up one at a time rather than all at once. Expired
// messages are pruned lazily on each read.
//
// The tracker never reports storage failures to its caller. An unreadable
// record is treated as no prior usage and a failed write is dropped; both
// are logged and counted. This is a soft limit for guests, so it fails open.
//
// A Tracker holds no state of its own and is not synchronized. Callers must
// not interleave operations on the same key from several goroutines or
// processes: read-prune-write cycles can race and lose a recorded message.
type Tracker struct {
	store       storage.UsageStore
	clock       Clock
	key         string
	maxMessages int
	window      time.Duration
	runningLow  int
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewTracker creates a new quota tracker. A nil clock uses the system time.
func NewTracker(store storage.UsageStore, config Config, clock Clock, logger zerolog.Logger) *Tracker {
	config = config.withDefaults()
	if clock == nil {
		clock = RealClock{}
	}

	return &Tracker{
		store:       store,
		clock:       clock,
		key:         config.StorageKey,
		maxMessages: config.MaxMessages,
		window:      config.Window,
		runningLow:  config.RunningLowThreshold,
		timeout:     config.StorageTimeout,
		logger: logger.With().
			Str("component", "guest-quota").
			Str("key", config.StorageKey).
			Logger(),
	}
}

// Key returns the storage key the tracker owns.
func (t *Tracker) Key() string {
	return t.key
}

// Total returns the number of messages admitted per window.
func (t *Tracker) Total() int {
	return t.maxMessages
}

// CanSendMessage reports whether the guest has a free slot. The pruned
// record is written back so storage stays bounded.
func (t *Tracker) CanSendMessage(ctx context.Context) bool {
	record := t.loadPruned(ctx, t.clock.Now())
	t.save(ctx, record)

	allowed := len(record.Messages) < t.maxMessages
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	metrics.AdmissionChecks.WithLabelValues(result).Inc()

	t.logger.Debug().
		Int("used", len(record.Messages)).
		Int("limit", t.maxMessages).
		Bool("allowed", allowed).
		Msg("Admission checked")

	return allowed
}

// RecordMessage counts one message at the current time. It does not check
// admission; callers are expected to call CanSendMessage first.
func (t *Tracker) RecordMessage(ctx context.Context) {
	now := t.clock.Now()
	record := t.loadPruned(ctx, now)
	record.Messages = append(record.Messages, now.UnixMilli())
	t.save(ctx, record)

	metrics.MessagesRecorded.Inc()

	t.logger.Debug().
		Int("used", len(record.Messages)).
		Int("limit", t.maxMessages).
		Msg("Message recorded")
}

// RemainingMessages returns how many messages the guest may still send.
func (t *Tracker) RemainingMessages(ctx context.Context) int {
	record := t.loadPruned(ctx, t.clock.Now())
	t.save(ctx, record)
	return t.remaining(record)
}

// TimeUntilReset returns the time until the oldest counted message expires
// and frees a slot. It returns false when nothing is pending.
func (t *Tracker) TimeUntilReset(ctx context.Context) (time.Duration, bool) {
	now := t.clock.Now()
	return t.timeUntilReset(t.loadPruned(ctx, now), now)
}

// FormattedTimeUntilReset is TimeUntilReset rendered by FormatDuration.
func (t *Tracker) FormattedTimeUntilReset(ctx context.Context) (string, bool) {
	d, ok := t.TimeUntilReset(ctx)
	if !ok {
		return "", false
	}
	return FormatDuration(d), true
}

// UsageStats returns the guest's current stats from a single snapshot.
func (t *Tracker) UsageStats(ctx context.Context) Stats {
	now := t.clock.Now()
	record := t.loadPruned(ctx, now)
	t.save(ctx, record)

	remaining := t.remaining(record)
	stats := Stats{
		Remaining:      remaining,
		Total:          t.maxMessages,
		IsLimitReached: remaining == 0,
		IsRunningLow:   remaining > 0 && remaining <= t.runningLow,
	}
	if d, ok := t.timeUntilReset(record, now); ok {
		formatted := FormatDuration(d)
		stats.TimeUntilReset = &formatted
	}
	return stats
}

// ClearUsage deletes the guest's record outright, e.g. once the guest signs
// in and the quota no longer applies.
func (t *Tracker) ClearUsage(ctx context.Context) {
	ctx, cancel := t.storageContext(ctx)
	defer cancel()

	if err := t.store.Delete(ctx, t.key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.logger.Warn().Err(err).Msg("Failed to clear guest usage")
		metrics.StorageErrors.WithLabelValues("delete").Inc()
		return
	}

	metrics.UsageCleared.Inc()
	t.logger.Info().Msg("Guest usage cleared")
}

func (t *Tracker) remaining(record Record) int {
	return max(0, t.maxMessages-len(record.Messages))
}

func (t *Tracker) timeUntilReset(record Record, now time.Time) (time.Duration, bool) {
	if len(record.Messages) == 0 {
		return 0, false
	}

	resetAt := slices.Min(record.Messages) + t.window.Milliseconds()
	delta := resetAt - now.UnixMilli()
	if delta < 0 {
		return 0, false
	}
	// At exactly resetAt the oldest message still counts; its slot frees on
	// the next millisecond.
	if delta == 0 {
		delta = 1
	}
	return time.Duration(delta) * time.Millisecond, true
}

func (t *Tracker) loadPruned(ctx context.Context, now time.Time) Record {
	return prune(t.load(ctx), now, t.window)
}

// load reads the stored record, falling back to an empty one on any failure
func (t *Tracker) load(ctx context.Context) Record {
	ctx, cancel := t.storageContext(ctx)
	defer cancel()

	data, err := t.store.Get(ctx, t.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Warn().Err(err).Msg("Failed to read guest usage, assuming no prior usage")
			metrics.StorageErrors.WithLabelValues("read").Inc()
		}
		return Record{}
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		t.logger.Warn().Err(err).Msg("Stored guest usage is malformed, assuming no prior usage")
		metrics.StorageErrors.WithLabelValues("decode").Inc()
		return Record{}
	}
	return record
}

// save writes the record best-effort
func (t *Tracker) save(ctx context.Context, record Record) {
	if record.Messages == nil {
		record.Messages = []int64{}
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to encode guest usage")
		metrics.StorageErrors.WithLabelValues("encode").Inc()
		return
	}

	ctx, cancel := t.storageContext(ctx)
	defer cancel()

	if err := t.store.Put(ctx, t.key, data, t.window); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to save guest usage")
		metrics.StorageErrors.WithLabelValues("write").Inc()
	}
}

func (t *Tracker) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// prune drops messages older than window. Messages dated after now (a clock
// that stepped backwards) are kept and count until they age out.
func prune(record Record, now time.Time, window time.Duration) Record {
	cutoff := now.UnixMilli() - window.Milliseconds()

	kept := make([]int64, 0, len(record.Messages))
	for _, ts := range record.Messages {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	return Record{Messages: kept}
}
