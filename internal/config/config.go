// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that reads from TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Listen      string   `toml:"listen"`
	Providers   []string `toml:"providers"`
	History     bool     `toml:"history"`
	DownloadDir string   `toml:"download_dir"`
	Debug       bool     `toml:"debug"`
	LogFile     string   `toml:"log_file"`

	Relay    RelayConfig    `toml:"relay"`
	Direct   DirectConfig   `toml:"direct"`
	Scrape   ScrapeConfig   `toml:"scrape"`
	Ytdown   YtdownConfig   `toml:"ytdown"`
	Delivery DeliveryConfig `toml:"delivery"`
}

// RelayConfig configures the third-party relay provider.
type RelayConfig struct {
	Endpoint  string   `toml:"endpoint"`
	Origin    string   `toml:"origin"`
	Referer   string   `toml:"referer"`
	UserAgent string   `toml:"user_agent"`
	Timeout   Duration `toml:"timeout"`
}

// DirectConfig configures the direct extraction provider.
type DirectConfig struct {
	Engine  string   `toml:"engine"` // "yt-dlp" or "native"
	Binary  string   `toml:"binary"`
	Timeout Duration `toml:"timeout"`
}

// ScrapeConfig configures the HTML converter-page provider.
type ScrapeConfig struct {
	Base         string   `toml:"base"`
	FrameBase    string   `toml:"frame_base"`
	DownloadBase string   `toml:"download_base"`
	Timeout      Duration `toml:"timeout"`
}

// YtdownConfig configures the form-post converter provider whose links are
// prepared by a processing job that has to be polled.
type YtdownConfig struct {
	Base         string   `toml:"base"`
	PollInterval Duration `toml:"poll_interval"`
	MaxPolls     int      `toml:"max_polls"`
	Timeout      Duration `toml:"timeout"` // covers the metadata call and all polling
}

// DeliveryConfig configures the delivery engine.
type DeliveryConfig struct {
	ChunkSize     int      `toml:"chunk_size"`
	StreamTimeout Duration `toml:"stream_timeout"` // 0 disables the overall limit
}

// Provider names accepted in Config.Providers.
const (
	ProviderRelay  = "relay"
	ProviderDirect = "direct"
	ProviderScrape = "scrape"
	ProviderYtdown = "ytdown"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:      ":5000",
		Providers:   []string{ProviderRelay, ProviderDirect},
		History:     true,
		DownloadDir: "~/Downloads/vidrelay",
		Relay: RelayConfig{
			Endpoint:  "https://vidssave.com/api/proxy",
			Origin:    "https://vidssave.com",
			Referer:   "https://vidssave.com/yt",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			Timeout:   Duration{30 * time.Second},
		},
		Direct: DirectConfig{
			Engine:  "yt-dlp",
			Binary:  "yt-dlp",
			Timeout: Duration{30 * time.Second},
		},
		Scrape: ScrapeConfig{
			Base:         "https://v6.www-y2mate.com",
			FrameBase:    "https://frame.y2meta-uk.com",
			DownloadBase: "https://load.y2meta-uk.com",
			Timeout:      Duration{30 * time.Second},
		},
		Ytdown: YtdownConfig{
			Base:         "https://ytdown.to",
			PollInterval: Duration{1500 * time.Millisecond},
			MaxPolls:     15,
			Timeout:      Duration{45 * time.Second},
		},
		Delivery: DeliveryConfig{
			ChunkSize: 32 * 1024,
		},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vidrelay"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vidrelay"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file and merges it with defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	validProviders := map[string]bool{
		ProviderRelay: true, ProviderDirect: true, ProviderScrape: true, ProviderYtdown: true,
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, name := range c.Providers {
		n := strings.ToLower(strings.TrimSpace(name))
		if !validProviders[n] {
			return fmt.Errorf("unsupported provider %q (valid: relay, direct, scrape, ytdown)", name)
		}
		if seen[n] {
			return fmt.Errorf("provider %q listed twice", name)
		}
		seen[n] = true
	}

	if seen[ProviderRelay] && c.Relay.Endpoint == "" {
		return fmt.Errorf("relay endpoint cannot be empty")
	}

	validEngines := map[string]bool{"yt-dlp": true, "native": true}
	if !validEngines[strings.ToLower(c.Direct.Engine)] {
		return fmt.Errorf("unsupported direct engine %q (valid: yt-dlp, native)", c.Direct.Engine)
	}

	if seen[ProviderScrape] && c.Scrape.Base == "" {
		return fmt.Errorf("scrape base URL cannot be empty")
	}

	if seen[ProviderYtdown] {
		if c.Ytdown.Base == "" {
			return fmt.Errorf("ytdown base URL cannot be empty")
		}
		if c.Ytdown.MaxPolls <= 0 {
			return fmt.Errorf("ytdown.max_polls must be positive")
		}
	}

	for name, d := range map[string]Duration{
		"relay.timeout":        c.Relay.Timeout,
		"direct.timeout":       c.Direct.Timeout,
		"scrape.timeout":       c.Scrape.Timeout,
		"ytdown.timeout":       c.Ytdown.Timeout,
		"ytdown.poll_interval": c.Ytdown.PollInterval,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Delivery.StreamTimeout.Duration < 0 {
		return fmt.Errorf("delivery.stream_timeout cannot be negative")
	}

	if c.Delivery.ChunkSize <= 0 {
		return fmt.Errorf("delivery.chunk_size must be positive")
	}

	return nil
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// HistoryPath returns the path to the delivery history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "vidrelay", "history.db"), nil
}
