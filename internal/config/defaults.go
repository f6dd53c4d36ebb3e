package config

import (
	"github.com/hyperjump/hikari/internal/fragment"
	"github.com/hyperjump/hikari/internal/keyword"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/hikari/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/hikari/data/indices/bleve"
	}
	if cfg.Highlight.Palette == "" {
		cfg.Highlight.Palette = fragment.PaletteDefault
	}
	if cfg.Highlight.MaxFragments == 0 {
		cfg.Highlight.MaxFragments = 3
	}
	if cfg.Highlight.FragmentSize == 0 {
		cfg.Highlight.FragmentSize = keyword.DefaultFragmentSize
	}
	if cfg.Highlight.Margin == 0 {
		cfg.Highlight.Margin = keyword.DefaultMargin
	}
	if cfg.Highlight.Selector == "" {
		cfg.Highlight.Selector = fragment.SelectorScore
	}
	if cfg.Highlight.Source == "" {
		cfg.Highlight.Source = SourceStored
	}
	if cfg.Highlight.CacheSize == 0 {
		cfg.Highlight.CacheSize = 1000
	}
	if cfg.Highlight.Retries == 0 {
		cfg.Highlight.Retries = 3
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".pptx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
