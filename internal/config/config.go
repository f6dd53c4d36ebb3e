// Package config provides configuration loading and structs for the hikari server.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/hikari/internal/fragment"
)

// Text source kinds for highlighting.
const (
	SourceStored    = "stored"
	SourceStreaming = "streaming"
	SourceIndex     = "index"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" toml:"debug"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Highlight HighlightConfig `yaml:"highlight" toml:"highlight"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories" toml:"directories"`
	Extensions  []string `yaml:"extensions" toml:"extensions"`
	Recursive   *bool    `yaml:"recursive" toml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// StorageConfig holds paths for the document database and keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path" toml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path" toml:"bleve_index_path"`
}

// HighlightConfig holds fragment building settings.
type HighlightConfig struct {
	// Palette is "default" or "colored". Ignored when PreTags or PostTags are set.
	Palette  string   `yaml:"palette" toml:"palette"`
	PreTags  []string `yaml:"pre_tags" toml:"pre_tags"`
	PostTags []string `yaml:"post_tags" toml:"post_tags"`

	MaxFragments int `yaml:"max_fragments" toml:"max_fragments"`
	FragmentSize int `yaml:"fragment_size" toml:"fragment_size"`
	Margin       int `yaml:"margin" toml:"margin"`

	// Selector is "score" or "simple".
	Selector string `yaml:"selector" toml:"selector"`
	// Source is "stored", "streaming" or "index".
	Source string `yaml:"source" toml:"source"`
	// CacheSize is the number of (document, field) entries kept in memory.
	CacheSize int `yaml:"cache_size" toml:"cache_size"`
	// Retries is how many times source acquisition is retried on transient errors.
	Retries int `yaml:"retries" toml:"retries"`
}

// SearchConfig holds search paging settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" toml:"default_limit"`
	MaxLimit     int `yaml:"max_limit" toml:"max_limit"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects unknown names and negative sizes.
func (c *Config) Validate() error {
	h := c.Highlight
	if _, err := fragment.TagsFromConfig(h.Palette, h.PreTags, h.PostTags); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	if _, err := fragment.SelectorByName(h.Selector); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	switch h.Source {
	case SourceStored, SourceStreaming, SourceIndex:
	default:
		return fmt.Errorf("highlight: unknown source %q", h.Source)
	}
	if h.MaxFragments < 0 || h.FragmentSize <= 0 || h.Margin < 0 || h.Margin >= h.FragmentSize {
		return fmt.Errorf("highlight: invalid sizes max_fragments=%d fragment_size=%d margin=%d",
			h.MaxFragments, h.FragmentSize, h.Margin)
	}
	if h.CacheSize < 0 || h.Retries < 0 {
		return fmt.Errorf("highlight: cache_size and retries cannot be negative")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search: default_limit %d exceeds max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// Save writes the config to path in the format its extension names.
func Save(path string, cfg *Config) error {
	var data []byte
	var err error
	if isTOML(path) {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
