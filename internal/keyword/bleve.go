package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/storage"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// Every field is analyzed with the standard analyzer and stored with term
// vectors, so search hits carry term locations and stored values can be read back.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so highlighted terms are the words typed.
	im.DefaultAnalyzer = standard.Name
	im.StoreDynamic = true
	im.IndexDynamic = true

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(models.DefaultField, textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	im.DefaultMapping = docMapping
	return im
}

// Index indexes every field of doc. Multivalued fields are indexed as arrays so
// term locations report the instance they fall in.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, indexable(doc))
}

func indexable(doc *models.Document) map[string]interface{} {
	out := make(map[string]interface{})
	for _, name := range doc.FieldNames() {
		instances := doc.Values(name)
		if len(instances) == 1 {
			out[name] = instances[0].Value
			continue
		}
		values := make([]string, len(instances))
		for i, f := range instances {
			values[i] = f.Value
		}
		out[name] = values
	}
	return out
}

// Search runs a match query over the requested fields and returns one page of
// hits with term locations.
// When opts.FuzzyEnabled is true, fuzzy matching is used for typo tolerance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) (*SearchResult, error) {
	fields := []string{models.DefaultField}
	var docIDs []string
	offset := 0
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		if len(opts.Fields) > 0 {
			fields = opts.Fields
		}
		docIDs = opts.DocIDs
		offset = opts.Offset
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	queries := make([]blevequery.Query, 0, len(fields))
	for _, field := range fields {
		if fuzzyEnabled {
			queries = append(queries, buildFuzzyQuery(query, fuzziness, field))
			continue
		}
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		queries = append(queries, mq)
	}

	var q blevequery.Query = bleve.NewDisjunctionQuery(queries...)
	if len(docIDs) > 0 {
		q = bleve.NewConjunctionQuery(bleve.NewDocIDQuery(docIDs), q)
	}
	req := bleve.NewSearchRequestOptions(q, limit, offset, false)
	req.IncludeLocations = true
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := &SearchResult{Total: results.Total, Hits: make([]*Hit, len(results.Hits))}
	for i, hit := range results.Hits {
		h := &Hit{ID: hit.ID, Score: hit.Score, Locations: make(map[string][]TermLocation)}
		for field, terms := range hit.Locations {
			for term, locations := range terms {
				for _, loc := range locations {
					instance := 0
					if len(loc.ArrayPositions) > 0 {
						instance = int(loc.ArrayPositions[0])
					}
					h.Locations[field] = append(h.Locations[field], TermLocation{
						Term:     term,
						Start:    int(loc.Start),
						End:      int(loc.End),
						Instance: instance,
					})
				}
			}
		}
		out.Hits[i] = h
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query on field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// StoredFields reads the stored values of field back from the index. Every
// value is reported as tokenized since the index analyzes all fields.
func (b *BleveIndex) StoredFields(ctx context.Context, docID, field string) ([]models.StoredField, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{docID}))
	req.Fields = []string{field}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve stored field lookup failed: %w", err)
	}
	if len(results.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, docID)
	}

	var out []models.StoredField
	add := func(v interface{}) {
		out = append(out, models.StoredField{Name: field, Value: fmt.Sprint(v), Tokenized: true})
	}
	switch v := results.Hits[0].Fields[field].(type) {
	case nil:
	case []interface{}:
		for _, item := range v {
			add(item)
		}
	default:
		add(v)
	}
	return out, nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
