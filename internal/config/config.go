package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source merged into the
// static event feed.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// NotifyConfig controls desktop reminder notifications.
type NotifyConfig struct {
	// Enabled toggles system-level notifications. The transient in-UI
	// alert fires regardless.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Icon is a path to the notification icon image.
	Icon string `yaml:"icon" json:"icon"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"LOCALCAL_LISTEN"`

	// Timezone is the IANA timezone used for day arithmetic (e.g. "Europe/Berlin").
	// Empty means the system local zone.
	Timezone string `yaml:"timezone" json:"timezone" env:"LOCALCAL_TIMEZONE"`

	// FeedURL is the static JSON event feed. Empty disables the JSON feed.
	FeedURL string `yaml:"feed_url" json:"feed_url" env:"LOCALCAL_FEED_URL"`

	// ICS is the list of subscribed ICS sources, also merged as static events.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// StorePath is the SQLite file holding persisted dynamic events.
	StorePath string `yaml:"store_path" json:"store_path" env:"LOCALCAL_STORE_PATH"`

	// CacheDir is where feed bodies are cached for offline fallback.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"LOCALCAL_CACHE_DIR"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic static feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how far ahead ICS recurrences are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// Notify controls desktop reminder notifications.
	Notify NotifyConfig `yaml:"notify" json:"notify"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "",
		FeedURL:     "",
		ICS:         []ICSConfig{},
		StorePath:   "./var/localcal.db",
		CacheDir:    "./var/feed-cache",
		RefreshCron: "*/15 * * * *",
		HorizonDays: 90,
		Notify: NotifyConfig{
			Enabled: true,
			Icon:    "calendar-icon.png",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.StorePath == "" {
		c.StorePath = "./var/localcal.db"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/feed-cache"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 90
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write a
//     default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
//   - In both cases, LOCALCAL_* environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, cfg.applyEnv()
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, cfg.applyEnv()
}

// applyEnv overrides config fields from LOCALCAL_* environment variables.
func (c *Config) applyEnv() error {
	return env.Parse(c)
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".localcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
