package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://panel:panel@db/panel")
	for _, key := range []string{
		"PLAYLIST_ALLOWLIST", "PLAYLIST_MAX_REDIRECTS", "PLAYLIST_TIMEOUT_MS",
		"PLAYLIST_MAX_BYTES", "PLAYLIST_MAX_CHANNELS", "PLAYLIST_USER_AGENT",
	} {
		t.Setenv(key, "")
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", c.ServerPort)
	}
	p := c.Playlist
	if p.MaxRedirects != 2 || p.Timeout != 20*time.Second || p.MaxBytes != 5_000_000 ||
		p.MaxChannels != 20_000 || p.UserAgent != "VLC/3.0.0-git" || p.Allowlist != nil {
		t.Errorf("playlist defaults wrong: %+v", p)
	}
}

func TestLoadPlaylistOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://panel:panel@db/panel")
	t.Setenv("PLAYLIST_ALLOWLIST", "cdn.example.com, lists.example.net ,")
	t.Setenv("PLAYLIST_MAX_REDIRECTS", "5")
	t.Setenv("PLAYLIST_TIMEOUT_MS", "1500")
	t.Setenv("PLAYLIST_MAX_BYTES", "1000")
	t.Setenv("PLAYLIST_MAX_CHANNELS", "50")
	t.Setenv("PLAYLIST_USER_AGENT", "CustomAgent/1.0")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := c.Playlist
	if want := []string{"cdn.example.com", "lists.example.net"}; !reflect.DeepEqual(p.Allowlist, want) {
		t.Errorf("Allowlist = %v, want %v", p.Allowlist, want)
	}
	if p.MaxRedirects != 5 || p.Timeout != 1500*time.Millisecond || p.MaxBytes != 1000 ||
		p.MaxChannels != 50 || p.UserAgent != "CustomAgent/1.0" {
		t.Errorf("overrides not applied: %+v", p)
	}
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://panel:panel@db/panel")
	t.Setenv("PLAYLIST_MAX_REDIRECTS", "not-a-number")
	t.Setenv("PLAYLIST_TIMEOUT_MS", "NaN")
	t.Setenv("PLAYLIST_MAX_BYTES", "5MB")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := c.Playlist
	if p.MaxRedirects != 2 || p.Timeout != 20*time.Second || p.MaxBytes != 5_000_000 {
		t.Errorf("bad numerics must fall back to defaults: %+v", p)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Chdir(t.TempDir()) // keep a stray .env from satisfying Load
	if _, err := Load(); err != ErrMissingDatabaseURL {
		t.Fatalf("Load = %v, want ErrMissingDatabaseURL", err)
	}
}
