package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Quota.MaxMessages)
	assert.Equal(t, 6*time.Hour, cfg.Quota.WindowDuration())
	assert.Equal(t, int64(21_600_000), cfg.Quota.WindowDuration().Milliseconds())
	assert.Equal(t, "guest-usage", cfg.Quota.StorageKey)
	assert.Equal(t, 2, cfg.Quota.RunningLowThreshold)
	assert.Equal(t, "bolt", cfg.Storage.Type)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.Equal(t, "guestquota:", cfg.Storage.Redis.KeyPrefix)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  type: memory
logging:
  level: debug
  format: json
quota:
  max_messages: 3
  window: 90m
  storage_key: journal-guest
metrics:
  enabled: true
  address: 127.0.0.1:9191
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 3, cfg.Quota.MaxMessages)
	assert.Equal(t, 90*time.Minute, cfg.Quota.WindowDuration())
	assert.Equal(t, "journal-guest", cfg.Quota.StorageKey)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Address)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2, cfg.Quota.RunningLowThreshold)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("GUESTQUOTA_QUOTA_MAX_MESSAGES", "4")
	t.Setenv("GUESTQUOTA_STORAGE_TYPE", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Quota.MaxMessages)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero max messages", map[string]string{"GUESTQUOTA_QUOTA_MAX_MESSAGES": "0"}},
		{"unparseable window", map[string]string{"GUESTQUOTA_QUOTA_WINDOW": "six hours"}},
		{"negative threshold", map[string]string{"GUESTQUOTA_QUOTA_RUNNING_LOW_THRESHOLD": "-1"}},
		{"unknown storage", map[string]string{"GUESTQUOTA_STORAGE_TYPE": "sqlite"}},
		{"unknown log level", map[string]string{"GUESTQUOTA_LOGGING_LEVEL": "loud"}},
		{"misspelled log format", map[string]string{"GUESTQUOTA_LOGGING_FORMAT": "jsn"}},
		{"bad storage timeout", map[string]string{"GUESTQUOTA_STORAGE_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
