package main

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hikari/internal/config"
	"github.com/hyperjump/hikari/internal/extract"
	"github.com/hyperjump/hikari/internal/fragment"
	"github.com/hyperjump/hikari/internal/indexer"
	"github.com/hyperjump/hikari/internal/keyword"
	"github.com/hyperjump/hikari/internal/search"
	"github.com/hyperjump/hikari/internal/source"
	"github.com/hyperjump/hikari/internal/storage"
	"github.com/hyperjump/hikari/pkg/utils"
)

const retryBase = 20 * time.Millisecond

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// Close releases the storage and the keyword index.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// textProvider picks where highlighted text is read from. fields is the reader
// the engine maps term locations with; it always sees the same text the provider serves.
func textProvider(cfg *config.HighlightConfig, store storage.Storage, kw *keyword.BleveIndex) (provider source.Provider, fields source.FieldReader, cache *source.CachedFieldReader) {
	switch cfg.Source {
	case config.SourceStreaming:
		return source.NewStreamingProvider(store), store, nil
	case config.SourceIndex:
		cache = source.NewCachedFieldReader(kw, cfg.CacheSize)
	default:
		cache = source.NewCachedFieldReader(store, cfg.CacheSize)
	}
	return source.NewStoredProvider(cache), cache, cache
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c := &Components{Storage: store, KeywordIndex: keywordIndex}

	provider, fields, cache := textProvider(&cfg.Highlight, store, keywordIndex)
	if cfg.Highlight.Retries > 0 {
		provider = source.NewRetryProvider(provider, uint64(cfg.Highlight.Retries), retryBase,
			source.WithPermanent(func(err error) bool { return errors.Is(err, storage.ErrNotFound) }),
			source.WithRetryLogger(utils.ComponentLogger(logger, cfg.Debug, "source")))
	}

	tags, err := fragment.TagsFromConfig(cfg.Highlight.Palette, cfg.Highlight.PreTags, cfg.Highlight.PostTags)
	if err != nil {
		c.Close()
		return nil, err
	}
	selector, err := fragment.SelectorByName(cfg.Highlight.Selector)
	if err != nil {
		c.Close()
		return nil, err
	}
	builder, err := fragment.NewBuilder(provider,
		fragment.WithTags(tags),
		fragment.WithSelector(selector),
		fragment.WithLogger(utils.ComponentLogger(logger, cfg.Debug, "fragment")))
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Engine, err = search.NewEngine(keywordIndex, fields, builder, cfg,
		search.WithLogger(utils.ComponentLogger(logger, cfg.Debug, "search")))
	if err != nil {
		c.Close()
		return nil, err
	}

	idxOpts := []indexer.IndexerOption{indexer.WithLogger(utils.ComponentLogger(logger, cfg.Debug, "indexer"))}
	if cache != nil {
		idxOpts = append(idxOpts, indexer.WithInvalidator(cache))
	}
	c.Indexer = indexer.NewIndexer(store, keywordIndex, extract.NewExtractor(), idxOpts...)

	logger.Info("components initialized",
		zap.String("source", cfg.Highlight.Source),
		zap.String("selector", cfg.Highlight.Selector),
		zap.Int("retries", cfg.Highlight.Retries))
	return c, nil
}
