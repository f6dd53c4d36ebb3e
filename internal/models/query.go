package models

import "fmt"

// DefaultField is the field searched and highlighted when a query names none.
const DefaultField = "content"

// SearchQuery represents a search request with highlighting options.
type SearchQuery struct {
	Query        string   `json:"query"`
	Fields       []string `json:"fields,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
	MaxFragments int      `json:"max_fragments,omitempty"`
	FuzzyEnabled bool     `json:"fuzzy_enabled,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty or offsets are negative.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	if q.MaxFragments < 0 {
		return fmt.Errorf("max_fragments cannot be negative")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if len(q.Fields) == 0 {
		q.Fields = []string{DefaultField}
	}
	return nil
}

// HighlightRequest asks for fragments of one document field to be rendered.
// Fragments are used as given; when there are none, candidates are generated
// from Query. A nil MaxFragments means the configured default.
type HighlightRequest struct {
	DocumentID   string                `json:"document_id"`
	Field        string                `json:"field"`
	Query        string                `json:"query,omitempty"`
	Fragments    []*FragmentDescriptor `json:"fragments"`
	MaxFragments *int                  `json:"max_fragments,omitempty"`
}

// Validate checks the request and every descriptor in it.
func (r *HighlightRequest) Validate() error {
	if r.DocumentID == "" {
		return fmt.Errorf("document_id is required")
	}
	if r.Field == "" {
		r.Field = DefaultField
	}
	for i, f := range r.Fragments {
		if f == nil {
			return fmt.Errorf("fragment %d is null", i)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("fragment %d: %w", i, err)
		}
	}
	return nil
}
