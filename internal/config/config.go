// Package config loads and persists the application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/abelbrown/wallfeed/internal/store"
)

// SourceSettings configures one wallpaper provider.
type SourceSettings struct {
	Enabled bool   `json:"enabled"`
	Batch   int    `json:"batch"`             // items requested per fetch
	Refresh string `json:"refresh,omitempty"` // minimum time between fetches, e.g. "24h"; empty = always
	APIKey  string `json:"api_key,omitempty"`
	FeedURL string `json:"feed_url,omitempty"` // rss only
	Country string `json:"country,omitempty"`  // peapix only
}

// RefreshInterval parses the Refresh field, returning zero for empty or
// malformed values (zero means no throttling).
func (s SourceSettings) RefreshInterval() time.Duration {
	if s.Refresh == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Refresh)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// RetentionConfig holds the catalog eviction caps.
type RetentionConfig struct {
	PerSourceCap int `json:"per_source_cap"`
	GlobalCap    int `json:"global_cap"`
}

// CacheConfig holds the on-disk image cache settings.
type CacheConfig struct {
	Dir      string `json:"dir,omitempty"` // empty = <data dir>/cache
	MaxBytes int64  `json:"max_bytes"`
}

// StreamConfig holds the live-stream tuning knobs.
type StreamConfig struct {
	PrefetchThreshold int `json:"prefetch_threshold"`
}

// Config is the persistent application configuration.
type Config struct {
	Sources   map[store.Source]SourceSettings `json:"sources"`
	Retention RetentionConfig                 `json:"retention"`
	Cache     CacheConfig                     `json:"cache"`
	Stream    StreamConfig                    `json:"stream"`

	// DBPath overrides the default catalog location.
	DBPath string `json:"db_path,omitempty"`
}

// Default returns sensible defaults: the keyless providers enabled, the
// keyed ones off until a key appears.
func Default() *Config {
	return &Config{
		Sources: map[store.Source]SourceSettings{
			store.SourceBing:     {Enabled: true, Batch: 8, Refresh: "24h"},
			store.SourcePeapix:   {Enabled: true, Batch: 6, Refresh: "24h", Country: "us"},
			store.SourceQihu:     {Enabled: true, Batch: 10},
			store.SourceUnsplash: {Enabled: false, Batch: 5},
			store.SourcePexels:   {Enabled: false, Batch: 10},
			store.SourceRSS:      {Enabled: false, Batch: 10},
		},
		Retention: RetentionConfig{
			PerSourceCap: 100,
			GlobalCap:    200,
		},
		Cache: CacheConfig{
			MaxBytes: 500 << 20,
		},
		Stream: StreamConfig{
			PrefetchThreshold: 5,
		},
	}
}

// DataDir returns the application data directory, ~/.wallfeed.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wallfeed")
}

// Path returns the config file location inside the data directory.
func Path() string {
	return filepath.Join(DataDir(), "config.json")
}

// DatabasePath resolves the catalog location.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(DataDir(), "wallfeed.db")
}

// CacheDir resolves the image cache directory.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(DataDir(), "cache")
}

// Load reads the config file, or returns defaults when it does not
// exist. A malformed file falls back to defaults rather than blocking
// startup. Either way API keys are auto-populated from the environment
// (including a .env file in the working directory, if present).
func Load() (*Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			cfg = Default()
		}
	}

	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes the config to disk with restrictive permissions, since it
// may hold API keys.
func (c *Config) Save() error {
	return c.saveTo(Path())
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// AutoPopulateFromEnv fills in API keys from environment variables and
// enables the corresponding sources. A key already present in the
// config wins over the environment.
func (c *Config) AutoPopulateFromEnv() {
	// Best effort: a missing .env file is the normal case.
	_ = godotenv.Load()

	c.adoptKey(store.SourceUnsplash, os.Getenv("UNSPLASH_ACCESS_KEY"))
	c.adoptKey(store.SourcePexels, os.Getenv("PEXELS_API_KEY"))
}

func (c *Config) adoptKey(src store.Source, key string) {
	if key == "" {
		return
	}
	settings := c.Sources[src]
	if settings.APIKey == "" {
		settings.APIKey = key
		settings.Enabled = true
		c.Sources[src] = settings
	}
}

// EnabledSources returns the tags of all enabled sources.
func (c *Config) EnabledSources() []store.Source {
	var out []store.Source
	for tag, s := range c.Sources {
		if s.Enabled {
			out = append(out, tag)
		}
	}
	return out
}
