package search

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/hikari/internal/config"
	"github.com/hyperjump/hikari/internal/fragment"
	"github.com/hyperjump/hikari/internal/indexer"
	"github.com/hyperjump/hikari/internal/keyword"
	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
	"github.com/hyperjump/hikari/internal/storage"
)

type testEnv struct {
	engine  *Engine
	indexer *indexer.Indexer
	store   *storage.SQLiteStorage
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if mutate != nil {
		mutate(cfg)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	cache := source.NewCachedFieldReader(store, cfg.Highlight.CacheSize)
	tags, err := fragment.TagsFromConfig(cfg.Highlight.Palette, cfg.Highlight.PreTags, cfg.Highlight.PostTags)
	if err != nil {
		t.Fatal(err)
	}
	builder, err := fragment.NewBuilder(source.NewStoredProvider(cache), fragment.WithTags(tags))
	if err != nil {
		t.Fatal(err)
	}
	engine, err := NewEngine(kw, cache, builder, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		engine:  engine,
		indexer: indexer.NewIndexer(store, kw, nil, indexer.WithInvalidator(cache)),
		store:   store,
	}
}

func (env *testEnv) add(t *testing.T, id string, fields ...models.FieldInput) {
	t.Helper()
	if err := env.indexer.IndexDocument(context.Background(), &models.DocumentInput{ID: id, Fields: fields}); err != nil {
		t.Fatal(err)
	}
}

func content(v string) models.FieldInput { return models.FieldInput{Name: "content", Value: v} }

func TestEngine_SearchHighlightsAcrossInstances(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "d1", content("the quick brown fox"), content("jumps over the lazy dog"))
	env.add(t, "d2", content("nothing to see"))

	resp, err := env.engine.Search(context.Background(), &models.SearchQuery{Query: "fox dog"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("total=%d results=%d", resp.Total, len(resp.Results))
	}
	r := resp.Results[0]
	if r.DocumentID != "d1" || r.Rank != 1 {
		t.Errorf("result = %+v", r)
	}
	want := []string{"brown <b>fox</b> jumps over the lazy <b>dog</b>"}
	if got := r.Highlights["content"]; !reflect.DeepEqual(got, want) {
		t.Errorf("highlights = %q, want %q", got, want)
	}
}

func TestEngine_SearchMultipleFieldsAndFragments(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Highlight.FragmentSize = 12
		c.Highlight.Margin = 0
		c.Highlight.Palette = fragment.PaletteColored
	})
	env.add(t, "d1",
		models.FieldInput{Name: "title", Value: "fox report"},
		content("a fox here and another fox there"))

	resp, err := env.engine.Search(context.Background(), &models.SearchQuery{
		Query:        "fox",
		Fields:       []string{"title", "content", "title"},
		MaxFragments: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	h := resp.Results[0].Highlights
	pre := fragment.ColoredPreTags[0]
	if got := h["title"]; len(got) != 1 || got[0] != pre+"fox</b> report" {
		t.Errorf("title = %q", got)
	}
	// Two candidates of equal weight; score order keeps the earlier one.
	if got := h["content"]; len(got) != 1 || got[0] != pre+"fox</b> here and" {
		t.Errorf("content = %q", got)
	}
}

func TestEngine_SearchInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, q := range []*models.SearchQuery{
		{Query: ""},
		{Query: "x", Offset: -1},
		{Query: "x", MaxFragments: -1},
	} {
		if _, err := env.engine.Search(context.Background(), q); !errors.Is(err, fragment.ErrInvalidArgument) {
			t.Errorf("Search(%+v) err = %v, want ErrInvalidArgument", q, err)
		}
	}
}

func TestEngine_SearchPaging(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, id := range []string{"a", "b", "c"} {
		env.add(t, id, content("shared term "+id))
	}
	resp, err := env.engine.Search(context.Background(), &models.SearchQuery{Query: "shared", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || len(resp.Results) != 1 || resp.Results[0].Rank != 3 {
		t.Errorf("paging: total=%d results=%+v", resp.Total, resp.Results)
	}
}

func intPtr(n int) *int { return &n }

func TestEngine_Highlight(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "d1", content("hello"), content("world"))
	ctx := context.Background()

	frag := &models.FragmentDescriptor{
		Start: 0, End: 11, Weight: 1,
		SubMatches: []models.SubMatch{{Seq: 0, Offsets: []models.TermOffset{{Start: 6, End: 11}}}},
	}

	tests := []struct {
		name      string
		req       *models.HighlightRequest
		want      []string
		wantEmpty bool
		wantErr   error
	}{
		{
			name: "explicit fragments",
			req:  &models.HighlightRequest{DocumentID: "d1", Fragments: []*models.FragmentDescriptor{frag}},
			want: []string{"hello <b>world</b>"},
		},
		{
			name: "generated from query",
			req:  &models.HighlightRequest{DocumentID: "d1", Query: "hello"},
			want: []string{"<b>hello</b> world"},
		},
		{
			name: "zero fragments",
			req:  &models.HighlightRequest{DocumentID: "d1", Fragments: []*models.FragmentDescriptor{frag}, MaxFragments: intPtr(0)},
			want: []string{},
		},
		{
			name:      "absent field",
			req:       &models.HighlightRequest{DocumentID: "d1", Field: "title", Fragments: []*models.FragmentDescriptor{frag}},
			want:      []string{},
			wantEmpty: true,
		},
		{
			name:    "negative max fragments",
			req:     &models.HighlightRequest{DocumentID: "d1", MaxFragments: intPtr(-1)},
			wantErr: fragment.ErrInvalidArgument,
		},
		{
			name:    "missing document id",
			req:     &models.HighlightRequest{},
			wantErr: fragment.ErrInvalidArgument,
		},
		{
			name:    "unknown document",
			req:     &models.HighlightRequest{DocumentID: "nope"},
			wantErr: storage.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.engine.Highlight(ctx, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(resp.Fragments, tt.want) || resp.Empty != tt.wantEmpty {
				t.Errorf("got %q empty=%v, want %q empty=%v", resp.Fragments, resp.Empty, tt.want, tt.wantEmpty)
			}
		})
	}
}

func TestEngine_HighlightSeesReplacedDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.add(t, "d1", content("old text"))
	req := &models.HighlightRequest{DocumentID: "d1", Query: "text"}
	if _, err := env.engine.Highlight(ctx, req); err != nil {
		t.Fatal(err)
	}

	env.add(t, "d1", content("fresh text"))
	resp, err := env.engine.Highlight(ctx, &models.HighlightRequest{DocumentID: "d1", Query: "text"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Fragments) != 1 || resp.Fragments[0] != "fresh <b>text</b>" {
		t.Errorf("fragments = %q", resp.Fragments)
	}
}

func TestProcessQuery(t *testing.T) {
	cfg := &config.SearchConfig{DefaultLimit: 5, MaxLimit: 20}
	q := &models.SearchQuery{Query: "x", Fields: []string{"a", "", "b", "a"}}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 5 {
		t.Errorf("limit = %d, want 5", q.Limit)
	}
	if !reflect.DeepEqual(q.Fields, []string{"a", "b"}) {
		t.Errorf("fields = %v", q.Fields)
	}
	q = &models.SearchQuery{Query: "x", Limit: 50}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 20 {
		t.Errorf("limit = %d, want 20", q.Limit)
	}
}
