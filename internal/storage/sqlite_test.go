package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func multiDoc(id string) *models.Document {
	return &models.Document{
		ID: id,
		Fields: []models.StoredField{
			{Name: "title", Value: "Report", Tokenized: true},
			{Name: "content", Value: "hello", Tokenized: true},
			{Name: "content", Value: "world", Tokenized: true},
			{Name: "tag", Value: "raw-value", Tokenized: false},
		},
		Metadata: map[string]interface{}{"k": "v"},
	}
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := multiDoc("doc1")
	if err := store.PutDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(got.Fields))
	}
	if got.Fields[3].Tokenized {
		t.Error("tag field should not be tokenized")
	}
	if got.Metadata["k"] != "v" {
		t.Errorf("metadata: got %v", got.Metadata)
	}

	// Replace keeps CreatedAt and drops old fields.
	created := got.CreatedAt
	doc.Fields = []models.StoredField{{Name: "content", Value: "replaced", Tokenized: true}}
	if err := store.PutDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "doc1")
	if len(got.Fields) != 1 || got.Fields[0].Value != "replaced" {
		t.Errorf("after replace: %+v", got.Fields)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, got.CreatedAt)
	}

	list, err := store.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 doc, got %d", len(list))
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	n, _ := store.CountFields(ctx)
	if n != 0 {
		t.Errorf("fields should cascade on delete, %d left", n)
	}
}

func TestSQLiteStorage_StoredFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.PutDocument(ctx, multiDoc("d1")); err != nil {
		t.Fatal(err)
	}

	fields, err := store.StoredFields(ctx, "d1", "content")
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 || fields[0].Value != "hello" || fields[1].Value != "world" {
		t.Errorf("content instances: %+v", fields)
	}

	fields, err = store.StoredFields(ctx, "d1", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 0 {
		t.Errorf("absent field should be empty, got %+v", fields)
	}

	if _, err := store.StoredFields(ctx, "nope", "content"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ProvidersAgree(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.PutDocument(ctx, multiDoc("d1")); err != nil {
		t.Fatal(err)
	}

	providers := map[string]source.Provider{
		"stored":    source.NewStoredProvider(store),
		"streaming": source.NewStreamingProvider(store),
	}
	for name, p := range providers {
		t.Run(name, func(t *testing.T) {
			src, err := p.Source(ctx, "d1", "content")
			if err != nil {
				t.Fatal(err)
			}
			defer src.Close()
			if src.IsEmpty() {
				t.Fatal("source should not be empty")
			}
			text, n, err := src.GetText(0, 11)
			if err != nil {
				t.Fatal(err)
			}
			if text != "hello world" || n != 11 {
				t.Errorf("got %q (%d)", text, n)
			}

			empty, err := p.Source(ctx, "d1", "missing")
			if err != nil {
				t.Fatal(err)
			}
			defer empty.Close()
			if !empty.IsEmpty() {
				t.Error("absent field should give an empty source")
			}
		})
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.CountDocuments(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountDocuments: %v, %d", err, n)
	}
	_ = store.PutDocument(ctx, multiDoc("x"))
	n, _ = store.CountDocuments(ctx)
	if n != 1 {
		t.Errorf("expected 1 document, got %d", n)
	}
	n, _ = store.CountFields(ctx)
	if n != 4 {
		t.Errorf("expected 4 fields, got %d", n)
	}
}
