package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingDatabaseURL is returned when no database DSN is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Playlist import defaults, overridable via PLAYLIST_* env vars.
const (
	DefaultMaxRedirects = 2
	DefaultTimeout      = 20 * time.Second
	DefaultMaxBytes     = 5_000_000
	DefaultMaxChannels  = 20_000
	DefaultUserAgent    = "VLC/3.0.0-git"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL string
	RedisURL    string
	ServerPort  string
	Playlist    PlaylistConfig
}

// PlaylistConfig bounds the playlist import pipeline.
type PlaylistConfig struct {
	// Allowlist of hostnames imports may fetch from. Empty means any
	// public host; private/reserved IPs are always blocked either way.
	Allowlist    []string
	MaxRedirects int
	Timeout      time.Duration
	MaxBytes     int64
	MaxChannels  int
	UserAgent    string
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env
// from the current directory first. DATABASE_URL is required;
// everything else has a default. Numeric values that fail to parse
// fall back to their defaults instead of aborting startup.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		ServerPort:  os.Getenv("SERVER_PORT"),
		Playlist:    loadPlaylistEnv(),
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func loadPlaylistEnv() PlaylistConfig {
	timeoutMs := envInt("PLAYLIST_TIMEOUT_MS", int(DefaultTimeout/time.Millisecond))
	return PlaylistConfig{
		Allowlist:    SplitAllowlist(os.Getenv("PLAYLIST_ALLOWLIST")),
		MaxRedirects: envInt("PLAYLIST_MAX_REDIRECTS", DefaultMaxRedirects),
		Timeout:      time.Duration(timeoutMs) * time.Millisecond,
		MaxBytes:     envInt64("PLAYLIST_MAX_BYTES", DefaultMaxBytes),
		MaxChannels:  envInt("PLAYLIST_MAX_CHANNELS", DefaultMaxChannels),
		UserAgent:    envString("PLAYLIST_USER_AGENT", DefaultUserAgent),
	}
}

// SplitAllowlist parses a comma-separated hostname list, dropping blanks.
func SplitAllowlist(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
