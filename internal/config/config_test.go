package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":5000" {
		t.Errorf("default listen = %q, want :5000", cfg.Listen)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != ProviderRelay || cfg.Providers[1] != ProviderDirect {
		t.Errorf("default providers = %v, want [relay direct]", cfg.Providers)
	}
	if cfg.Relay.Timeout.Duration != 30*time.Second {
		t.Errorf("default relay timeout = %v, want 30s", cfg.Relay.Timeout)
	}
	if cfg.Direct.Engine != "yt-dlp" {
		t.Errorf("default engine = %q, want yt-dlp", cfg.Direct.Engine)
	}
	if !cfg.History {
		t.Error("default history should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty listen", func(c *Config) { c.Listen = "" }, true},
		{"unknown provider", func(c *Config) { c.Providers = []string{"relay", "magic"} }, true},
		{"duplicate provider", func(c *Config) { c.Providers = []string{"relay", "Relay"} }, true},
		{"no providers", func(c *Config) { c.Providers = nil }, false},
		{"scrape enabled", func(c *Config) { c.Providers = append(c.Providers, "scrape") }, false},
		{"scrape without base", func(c *Config) {
			c.Providers = []string{"scrape"}
			c.Scrape.Base = ""
		}, true},
		{"ytdown enabled", func(c *Config) { c.Providers = append(c.Providers, "ytdown") }, false},
		{"ytdown without polls", func(c *Config) {
			c.Providers = []string{"ytdown"}
			c.Ytdown.MaxPolls = 0
		}, true},
		{"zero ytdown poll interval", func(c *Config) { c.Ytdown.PollInterval = Duration{} }, true},
		{"relay without endpoint", func(c *Config) { c.Relay.Endpoint = "" }, true},
		{"relay endpoint unused", func(c *Config) {
			c.Providers = []string{"direct"}
			c.Relay.Endpoint = ""
		}, false},
		{"native engine", func(c *Config) { c.Direct.Engine = "native" }, false},
		{"bad engine", func(c *Config) { c.Direct.Engine = "ffmpeg" }, true},
		{"zero relay timeout", func(c *Config) { c.Relay.Timeout = Duration{} }, true},
		{"negative stream timeout", func(c *Config) { c.Delivery.StreamTimeout = Duration{-time.Second} }, true},
		{"zero chunk size", func(c *Config) { c.Delivery.ChunkSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	dir := filepath.Join(tmpDir, "vidrelay")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `
listen = "127.0.0.1:9000"
providers = ["direct", "relay", "scrape"]
history = false

[relay]
endpoint = "https://relay.example.com/api/proxy"
timeout = "5s"

[direct]
engine = "native"

[delivery]
chunk_size = 4096
stream_timeout = "10m"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if len(cfg.Providers) != 3 || cfg.Providers[0] != "direct" {
		t.Errorf("providers = %v", cfg.Providers)
	}
	if cfg.History {
		t.Error("history should be false")
	}
	if cfg.Relay.Endpoint != "https://relay.example.com/api/proxy" {
		t.Errorf("relay endpoint = %q", cfg.Relay.Endpoint)
	}
	if cfg.Relay.Timeout.Duration != 5*time.Second {
		t.Errorf("relay timeout = %v, want 5s", cfg.Relay.Timeout)
	}
	// Untouched fields keep their defaults.
	if cfg.Relay.Origin != "https://vidssave.com" {
		t.Errorf("relay origin = %q, want default", cfg.Relay.Origin)
	}
	if cfg.Direct.Engine != "native" {
		t.Errorf("engine = %q", cfg.Direct.Engine)
	}
	if cfg.Direct.Binary != "yt-dlp" {
		t.Errorf("binary = %q, want default", cfg.Direct.Binary)
	}
	if cfg.Delivery.ChunkSize != 4096 {
		t.Errorf("chunk size = %d", cfg.Delivery.ChunkSize)
	}
	if cfg.Delivery.StreamTimeout.Duration != 10*time.Minute {
		t.Errorf("stream timeout = %v", cfg.Delivery.StreamTimeout)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[relay]\ntimeout = \"soon\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("providers = [\"bogus\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file: %v", err)
	}
	if cfg.Listen != ":5000" {
		t.Errorf("missing file should return defaults, got listen = %q", cfg.Listen)
	}
}

func TestExpandDownloadDir(t *testing.T) {
	cfg := Default()
	cfg.DownloadDir = "/tmp/test-downloads"

	dir, err := cfg.ExpandDownloadDir()
	if err != nil {
		t.Fatalf("ExpandDownloadDir() error: %v", err)
	}
	if dir != "/tmp/test-downloads" {
		t.Errorf("got %q, want /tmp/test-downloads", dir)
	}
}

func TestHistoryPath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	got, err := HistoryPath()
	if err != nil {
		t.Fatalf("HistoryPath() error: %v", err)
	}
	if got != filepath.Join(tmp, "vidrelay", "history.db") {
		t.Errorf("got %q", got)
	}
}
