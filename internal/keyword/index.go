// Package keyword provides full-text indexing, search with term locations, and
// candidate fragment generation from those locations.
package keyword

import (
	"context"

	"github.com/hyperjump/hikari/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Fields restricts matching to these fields. Empty means the content field.
	Fields []string
	// DocIDs restricts matching to these documents when set.
	DocIDs []string
	// Offset skips this many hits for paging.
	Offset int
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) (*SearchResult, error)
	StoredFields(ctx context.Context, docID, field string) ([]models.StoredField, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// SearchResult is one page of keyword hits.
type SearchResult struct {
	Total uint64
	Hits  []*Hit
}

// Hit is a single keyword search hit with the locations of every matched term,
// keyed by field name.
type Hit struct {
	ID        string
	Score     float64
	Locations map[string][]TermLocation
}

// TermLocation is one occurrence of a matched term. Start and End are byte
// offsets into the field instance at position Instance.
type TermLocation struct {
	Term     string
	Start    int
	End      int
	Instance int
}
