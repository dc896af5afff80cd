package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type    string      `mapstructure:"type"` // "memory", "bolt" or "redis"
	Path    string      `mapstructure:"path"` // bolt database file
	Timeout string      `mapstructure:"timeout"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QuotaConfig defines the guest quota
type QuotaConfig struct {
	MaxMessages         int    `mapstructure:"max_messages"`
	Window              string `mapstructure:"window"`
	StorageKey          string `mapstructure:"storage_key"`
	RunningLowThreshold int    `mapstructure:"running_low_threshold"`
	ProfileCacheSize    int    `mapstructure:"profile_cache_size"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load loads configuration from file and environment variables.
// An empty configPath skips the file and uses defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	v.SetEnvPrefix("GUESTQUOTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("storage.timeout", "2s")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "guestquota:")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Quota defaults: 7 messages every 6 hours
	v.SetDefault("quota.max_messages", 7)
	v.SetDefault("quota.window", "6h")
	v.SetDefault("quota.storage_key", "guest-usage")
	v.SetDefault("quota.running_low_threshold", 2)
	v.SetDefault("quota.profile_cache_size", 128)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9090")
}

// WindowDuration returns the parsed quota window.
func (q QuotaConfig) WindowDuration() time.Duration {
	d, err := time.ParseDuration(q.Window)
	if err != nil {
		return 0
	}
	return d
}

func defaultStoragePath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), "guestquota", "guestquota.bolt")
	}
	return filepath.Join(dir, "guestquota", "guestquota.bolt")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Quota.MaxMessages <= 0 {
		return fmt.Errorf("quota.max_messages must be positive, got %d", cfg.Quota.MaxMessages)
	}

	window, err := time.ParseDuration(cfg.Quota.Window)
	if err != nil {
		return fmt.Errorf("invalid quota.window %q: %w", cfg.Quota.Window, err)
	}
	if window < time.Millisecond {
		return fmt.Errorf("quota.window must be at least 1ms, got %s", cfg.Quota.Window)
	}

	if cfg.Quota.RunningLowThreshold < 0 {
		return fmt.Errorf("quota.running_low_threshold must not be negative, got %d", cfg.Quota.RunningLowThreshold)
	}

	if strings.TrimSpace(cfg.Quota.StorageKey) == "" {
		return fmt.Errorf("quota.storage_key is required")
	}

	if cfg.Storage.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Storage.Timeout); err != nil {
			return fmt.Errorf("invalid storage.timeout %q: %w", cfg.Storage.Timeout, err)
		}
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}

	switch cfg.Storage.Type {
	case "memory", "redis":
	case "bolt":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for bolt storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s (must be memory, bolt or redis)", cfg.Storage.Type)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", cfg.Logging.Format)
	}

	return nil
}
