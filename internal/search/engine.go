// Package search runs keyword search and renders highlighted fragments for each hit.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/hikari/internal/config"
	"github.com/hyperjump/hikari/internal/fragment"
	"github.com/hyperjump/hikari/internal/keyword"
	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
	"github.com/hyperjump/hikari/internal/storage"
)

// Engine runs keyword search and highlights the matched fields of every hit.
type Engine struct {
	keywordIndex keyword.KeywordIndex
	fields       source.FieldReader
	fragLists    *keyword.FragListBuilder
	builder      *fragment.Builder
	search       config.SearchConfig
	highlight    config.HighlightConfig
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for the engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine. fields must read the same stored text the
// builder's provider serves, since term locations are mapped onto it.
func NewEngine(
	keywordIndex keyword.KeywordIndex,
	fields source.FieldReader,
	builder *fragment.Builder,
	cfg *config.Config,
	opts ...Option,
) (*Engine, error) {
	if keywordIndex == nil || fields == nil || builder == nil || cfg == nil {
		return nil, fmt.Errorf("%w: search engine dependencies must not be nil", fragment.ErrInvalidArgument)
	}
	fragLists, err := keyword.NewFragListBuilder(cfg.Highlight.FragmentSize, cfg.Highlight.Margin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fragment.ErrInvalidArgument, err)
	}
	e := &Engine{
		keywordIndex: keywordIndex,
		fields:       fields,
		fragLists:    fragLists,
		builder:      builder,
		search:       cfg.Search,
		highlight:    cfg.Highlight,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs the query and returns one page of hits, each with up to
// MaxFragments highlighted fragments per matched field.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, &e.search); err != nil {
		return nil, fmt.Errorf("%w: %v", fragment.ErrInvalidArgument, err)
	}
	maxFragments := query.MaxFragments
	if maxFragments == 0 {
		maxFragments = e.highlight.MaxFragments
	}

	result, err := e.keywordIndex.Search(ctx, query.Query, query.Limit, &keyword.SearchOptions{
		Fields:       query.Fields,
		Offset:       query.Offset,
		FuzzyEnabled: query.FuzzyEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, len(result.Hits)),
		Total:   int(result.Total),
		Query:   query.Query,
	}
	for i, hit := range result.Hits {
		highlights, err := e.highlightHit(ctx, hit, maxFragments)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("indexed document missing from storage", zap.String("doc_id", hit.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		response.Results = append(response.Results, &models.SearchResult{
			DocumentID: hit.ID,
			Score:      hit.Score,
			Rank:       query.Offset + i + 1,
			Highlights: highlights,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	e.logger.Debug("search",
		zap.String("query", query.Query),
		zap.Int("hits", len(response.Results)),
		zap.Int64("query_time_ms", response.QueryTime))
	return response, nil
}

// highlightHit builds fragments for every field with term locations, one goroutine per field.
func (e *Engine) highlightHit(ctx context.Context, hit *keyword.Hit, maxFragments int) (map[string][]string, error) {
	var mu sync.Mutex
	highlights := make(map[string][]string, len(hit.Locations))
	g, gctx := errgroup.WithContext(ctx)
	for field, locations := range hit.Locations {
		field, locations := field, locations
		g.Go(func() error {
			stored, err := e.fields.StoredFields(gctx, hit.ID, field)
			if err != nil {
				return err
			}
			occurrences := keyword.Absolute(locations, source.JoinOffsets(stored))
			candidates := e.fragLists.Build(occurrences)
			texts, err := e.builder.Build(gctx, hit.ID, field, candidates, maxFragments)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				return nil
			}
			mu.Lock()
			highlights[field] = texts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return highlights, nil
}

// Highlight renders caller-supplied fragment descriptors for one document field.
// Without descriptors, candidates are generated from req.Query. The response is marked Empty when the field has no stored text.
func (e *Engine) Highlight(ctx context.Context, req *models.HighlightRequest) (*models.HighlightResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", fragment.ErrInvalidArgument, err)
	}
	maxFragments := e.highlight.MaxFragments
	if req.MaxFragments != nil {
		maxFragments = *req.MaxFragments
	}
	fragments := req.Fragments
	if len(fragments) == 0 && req.Query != "" {
		var err error
		if fragments, err = e.candidates(ctx, req.Query, req.DocumentID, req.Field); err != nil {
			return nil, err
		}
	}
	texts, err := e.builder.Build(ctx, req.DocumentID, req.Field, fragments, maxFragments)
	if err != nil {
		return nil, err
	}
	resp := &models.HighlightResponse{
		DocumentID: req.DocumentID,
		Field:      req.Field,
		Fragments:  texts,
		Empty:      texts == nil,
	}
	if resp.Fragments == nil {
		resp.Fragments = []string{}
	}
	return resp, nil
}

// candidates returns the candidate fragments for one document field matching query.
func (e *Engine) candidates(ctx context.Context, query, docID, field string) ([]*models.FragmentDescriptor, error) {
	result, err := e.keywordIndex.Search(ctx, query, 1, &keyword.SearchOptions{
		Fields: []string{field},
		DocIDs: []string{docID},
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}
	stored, err := e.fields.StoredFields(ctx, docID, field)
	if err != nil {
		return nil, err
	}
	return e.fragLists.Build(keyword.Absolute(result.Hits[0].Locations[field], source.JoinOffsets(stored))), nil
}
