package search

import (
	"github.com/hyperjump/hikari/internal/config"
	"github.com/hyperjump/hikari/internal/models"
)

// ProcessQuery validates the search query and applies the configured limits.
// Duplicate fields are dropped.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	if cfg != nil && query.Limit <= 0 {
		query.Limit = cfg.DefaultLimit
	}
	if err := query.Validate(); err != nil {
		return err
	}
	if cfg != nil && cfg.MaxLimit > 0 && query.Limit > cfg.MaxLimit {
		query.Limit = cfg.MaxLimit
	}
	seen := make(map[string]struct{}, len(query.Fields))
	fields := query.Fields[:0]
	for _, f := range query.Fields {
		if _, ok := seen[f]; ok || f == "" {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	query.Fields = fields
	return nil
}
