package models

// SearchResult represents a single search hit with its highlighted fragments per field.
type SearchResult struct {
	DocumentID string              `json:"document_id"`
	Score      float64             `json:"score"`
	Rank       int                 `json:"rank"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// HighlightResponse carries rendered fragments in selection order.
// Empty is true when the field has no stored text.
type HighlightResponse struct {
	DocumentID string   `json:"document_id"`
	Field      string   `json:"field"`
	Fragments  []string `json:"fragments"`
	Empty      bool     `json:"empty,omitempty"`
}
