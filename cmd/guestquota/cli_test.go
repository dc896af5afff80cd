package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/guestquota/internal/config"
	"github.com/goodtune/guestquota/internal/storage/memory"
	"github.com/goodtune/guestquota/internal/usage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func newTestTracker(cfg usage.Config) (*usage.Tracker, *usage.TestClock) {
	clock := &usage.TestClock{CurrentTime: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	return usage.NewTracker(memory.New().Usage(), cfg, clock, zerolog.Nop()), clock
}

func TestSendMessageStopsAtLimit(t *testing.T) {
	tracker, _ := newTestTracker(usage.Config{MaxMessages: 2})
	ctx := context.Background()

	stats, err := sendMessage(ctx, tracker)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Remaining)

	stats, err = sendMessage(ctx, tracker)
	require.NoError(t, err)
	assert.True(t, stats.IsLimitReached)

	stats, err = sendMessage(ctx, tracker)
	require.ErrorIs(t, err, errLimitReached)
	assert.Equal(t, 0, stats.Remaining)
	assert.Equal(t, 0, tracker.RemainingMessages(ctx))
}

func TestBannerText(t *testing.T) {
	reset := "1h 30m"

	tests := []struct {
		name  string
		stats usage.Stats
		want  string
	}{
		{
			name:  "available",
			stats: usage.Stats{Remaining: 5, Total: 7},
			want:  "5 of 7 guest messages available. Sign in for more.",
		},
		{
			name:  "running low",
			stats: usage.Stats{Remaining: 2, Total: 7, IsRunningLow: true},
			want:  "You have 2 messages left as a guest. Sign in for unlimited.",
		},
		{
			name:  "last message",
			stats: usage.Stats{Remaining: 1, Total: 7, IsRunningLow: true},
			want:  "You have 1 message left as a guest. Sign in for unlimited.",
		},
		{
			name:  "limit reached",
			stats: usage.Stats{Total: 7, IsLimitReached: true, TimeUntilReset: &reset},
			want:  "Let's take a pause. You can continue in 1h 30m, or sign in to keep going.",
		},
		{
			name:  "limit reached without countdown",
			stats: usage.Stats{Total: 7, IsLimitReached: true},
			want:  "Let's take a pause. You can continue in a few hours, or sign in to keep going.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bannerText(tt.stats))
		})
	}
}

func TestRenderStats(t *testing.T) {
	reset := "5m"
	var buf bytes.Buffer

	renderStats(&buf, "guest-usage", usage.Stats{Remaining: 2, Total: 7, IsRunningLow: true, TimeUntilReset: &reset})

	out := buf.String()
	assert.Contains(t, out, "[guest-usage]")
	assert.Contains(t, out, "remaining = 2 of 7")
	assert.Contains(t, out, "next slot = in 5m")
	assert.Contains(t, out, "You have 2 messages left")
}

func TestWriteStatsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatsJSON(&buf, usage.Stats{Remaining: 7, Total: 7}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(7), got["remaining"])
	assert.Nil(t, got["timeUntilReset"])
	assert.Equal(t, "available", got["state"])
}

func TestChatLoop(t *testing.T) {
	tracker, _ := newTestTracker(usage.Config{MaxMessages: 2})
	in := strings.NewReader("hello\n\nagain\none more\n/stats\n/login\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), tracker, in, &out))

	text := out.String()
	assert.Contains(t, text, "sent (1 of 2 left)")
	assert.Contains(t, text, "You have 1 message left as a guest.")
	assert.Contains(t, text, "sent (0 of 2 left)")
	assert.Contains(t, text, "You can continue in 6h 0m")
	assert.Equal(t, 2, strings.Count(text, "sent ("))
	assert.Contains(t, text, "Signed in.")

	assert.Equal(t, 2, tracker.RemainingMessages(context.Background()))
}

func TestChatLoopEndsOnEOF(t *testing.T) {
	tracker, _ := newTestTracker(usage.Config{})
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), tracker, strings.NewReader("hi"), &out))
	assert.Equal(t, 6, tracker.RemainingMessages(context.Background()))
}

func TestChatLoopQuit(t *testing.T) {
	tracker, _ := newTestTracker(usage.Config{})
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), tracker, strings.NewReader("/quit\nhi\n"), &out))
	assert.Equal(t, 7, tracker.RemainingMessages(context.Background()))
}

func TestChatLoopStopsWhileWaitingForInput(t *testing.T) {
	tracker, _ := newTestTracker(usage.Config{})
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- chatLoop(ctx, tracker, pr, io.Discard) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("chat session kept waiting for input after cancellation")
	}
	assert.Equal(t, 7, tracker.RemainingMessages(context.Background()))
}

func TestOpenStorage(t *testing.T) {
	store, err := openStorage(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = openStorage(config.StorageConfig{Type: "bolt", Path: filepath.Join(t.TempDir(), "nested", "quota.bolt")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = openStorage(config.StorageConfig{Type: "sqlite"})
	assert.Error(t, err)
}

func TestTrackerConfig(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Timeout: "250ms"},
		Quota: config.QuotaConfig{
			MaxMessages:         3,
			Window:              "90m",
			StorageKey:          "trial",
			RunningLowThreshold: 1,
		},
	}

	assert.Equal(t, usage.Config{
		MaxMessages:         3,
		Window:              90 * time.Minute,
		StorageKey:          "trial",
		RunningLowThreshold: 1,
		StorageTimeout:      250 * time.Millisecond,
	}, trackerConfig(cfg))
}

func TestFindUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  type: memory
  redis:
    hostname: typo
quota:
  max_messages: 3
  windw: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	unknown, err := findUnknownKeys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"quota.windw", "storage.redis.hostname"}, unknown)
}

func TestRedactPassword(t *testing.T) {
	assert.Equal(t, "", redactPassword(""))
	assert.Equal(t, "***REDACTED***", redactPassword("hunter2"))
}
