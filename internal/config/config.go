// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	AllowedOrigin string
	SharedSecret  string // empty disables the shared-secret check
	DBPath        string
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Redis         RedisConfig
	FriendSync    FriendSyncConfig
}

// RedisConfig controls the optional directory change-watcher feed.
type RedisConfig struct {
	Addr           string // empty disables the watcher
	ProfileChannel string
}

// FriendSyncConfig controls outbound friend-sync notifications.
type FriendSyncConfig struct {
	URL     string // empty disables friend-sync calls
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", ""),
		SharedSecret:  getEnv("SHARED_SECRET", ""),
		DBPath:        getEnv("DB_PATH", "./data/lobby.db"),
		DefaultTTL:    time.Duration(getEnvInt("DEFAULT_TTL_MS", 30000)) * time.Millisecond,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_MS", 10000)) * time.Millisecond,
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			ProfileChannel: getEnv("PROFILE_CHANNEL", "profiles.changed"),
		},
		FriendSync: FriendSyncConfig{
			URL:     getEnv("FRIEND_SYNC_URL", ""),
			Timeout: time.Duration(getEnvInt("FRIEND_SYNC_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("DEFAULT_TTL_MS must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MS must be > 0")
	}
	if c.Redis.Addr != "" && c.Redis.ProfileChannel == "" {
		return fmt.Errorf("PROFILE_CHANNEL cannot be empty when REDIS_ADDR is set")
	}
	if c.FriendSync.URL != "" && c.FriendSync.Timeout <= 0 {
		return fmt.Errorf("FRIEND_SYNC_TIMEOUT_MS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AllowedOrigin == "" ||
		strings.Contains(c.AllowedOrigin, "localhost") ||
		strings.Contains(c.AllowedOrigin, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
