package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	ServerPort  string `yaml:"server_port"`
	Playlist    struct {
		Allowlist    []string `yaml:"allowlist"`
		MaxRedirects *int     `yaml:"max_redirects"`
		TimeoutMs    *int     `yaml:"timeout_ms"`
		MaxBytes     *int64   `yaml:"max_bytes"`
		MaxChannels  *int     `yaml:"max_channels"`
		UserAgent    string   `yaml:"user_agent"`
	} `yaml:"playlist"`
}

// LoadFromFile loads config from a YAML file. database_url is required;
// unset playlist fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	c := &Config{
		DatabaseURL: f.DatabaseURL,
		RedisURL:    f.RedisURL,
		ServerPort:  f.ServerPort,
		Playlist: PlaylistConfig{
			Allowlist:    f.Playlist.Allowlist,
			MaxRedirects: DefaultMaxRedirects,
			Timeout:      DefaultTimeout,
			MaxBytes:     DefaultMaxBytes,
			MaxChannels:  DefaultMaxChannels,
			UserAgent:    DefaultUserAgent,
		},
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if f.Playlist.MaxRedirects != nil {
		c.Playlist.MaxRedirects = *f.Playlist.MaxRedirects
	}
	if f.Playlist.TimeoutMs != nil {
		c.Playlist.Timeout = time.Duration(*f.Playlist.TimeoutMs) * time.Millisecond
	}
	if f.Playlist.MaxBytes != nil {
		c.Playlist.MaxBytes = *f.Playlist.MaxBytes
	}
	if f.Playlist.MaxChannels != nil {
		c.Playlist.MaxChannels = *f.Playlist.MaxChannels
	}
	if f.Playlist.UserAgent != "" {
		c.Playlist.UserAgent = f.Playlist.UserAgent
	}
	return c, nil
}
