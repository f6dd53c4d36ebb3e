// Package indexer stores documents and keeps the keyword index in step with storage.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/hikari/internal/extract"
	"github.com/hyperjump/hikari/internal/fragment"
	"github.com/hyperjump/hikari/internal/keyword"
	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/storage"
)

// Field names used for indexed files.
const (
	FieldTitle   = "title"
	FieldContent = models.DefaultField
)

// Invalidator drops cached field text for a document.
type Invalidator interface {
	Invalidate(docID string)
}

// Indexer writes documents to storage and the keyword index.
type Indexer struct {
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	extractor    *extract.Extractor
	invalidators []Invalidator
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithInvalidator registers a cache to invalidate whenever a document changes.
func WithInvalidator(inv Invalidator) IndexerOption {
	return func(idx *Indexer) {
		if inv != nil {
			idx.invalidators = append(idx.invalidators, inv)
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; when nil, a default Extractor is used.
func NewIndexer(
	storage storage.Storage,
	keywordIndex keyword.KeywordIndex,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		storage:      storage,
		keywordIndex: keywordIndex,
		extractor:    extractor,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument stores a document, replacing any existing one with the same ID,
// and indexes it for keyword search. An empty ID is assigned a UUID, written
// back to input.ID.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) error {
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	if err := input.Validate(); err != nil {
		return fmt.Errorf("%w: %v", fragment.ErrInvalidArgument, err)
	}
	doc := input.Document()
	if err := idx.storage.PutDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	idx.invalidate(doc.ID)
	if err := idx.keywordIndex.Index(ctx, keywordDocument(doc)); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	idx.logger.Debug("indexer document indexed",
		zap.String("doc_id", doc.ID),
		zap.Int("fields", len(doc.Fields)))
	return nil
}

// keywordDocument returns the copy of doc sent to the keyword index. Title
// underscores become spaces so "company_profile_2021.pptx" matches "company
// profile"; the replacement keeps byte offsets aligned with stored text.
func keywordDocument(doc *models.Document) *models.Document {
	out := *doc
	out.Fields = make([]models.StoredField, len(doc.Fields))
	for i, f := range doc.Fields {
		if f.Name == FieldTitle {
			f.Value = strings.ReplaceAll(f.Value, "_", " ")
		}
		out.Fields[i] = f
	}
	return &out
}

func (idx *Indexer) invalidate(docID string) {
	for _, inv := range idx.invalidators {
		inv.Invalidate(docID)
	}
}

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// IndexFile reads a file from path and indexes it. The document ID is derived from the
// absolute path so re-indexing updates the same document. If allowedExts is non-empty,
// the file's extension must be in the list (case-insensitive). Each extracted segment
// becomes one instance of the content field; the file name is the title field.
// Skips indexing if the file is already indexed with the same mtime and size.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", absPath)
	}
	docID := FileDocID(absPath)
	if doc, ok := idx.unchanged(ctx, absPath, docID, info); ok {
		// Repopulate the keyword index in case it was recreated.
		if err := idx.keywordIndex.Index(ctx, keywordDocument(doc)); err != nil {
			return fmt.Errorf("failed to index keywords: %w", err)
		}
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return nil
	}

	segments, err := idx.extractor.Extract(absPath)
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}
	fields := make([]models.FieldInput, 0, len(segments)+1)
	fields = append(fields, models.FieldInput{Name: FieldTitle, Value: filepath.Base(absPath)})
	for _, s := range segments {
		fields = append(fields, models.FieldInput{Name: FieldContent, Value: s})
	}
	input := &models.DocumentInput{
		ID:     docID,
		Fields: fields,
		Metadata: map[string]interface{}{
			metaKeySourcePath:  absPath,
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	}
	if err := idx.IndexDocument(ctx, input); err != nil {
		return err
	}
	idx.logger.Debug("indexer file indexed",
		zap.String("path", absPath),
		zap.String("doc_id", docID),
		zap.Int("segments", len(segments)))
	return nil
}

// unchanged returns the stored document when it was indexed from absPath with the same mtime and size.
func (idx *Indexer) unchanged(ctx context.Context, absPath, docID string, info os.FileInfo) (*models.Document, bool) {
	doc, err := idx.storage.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return nil, false
	}
	if doc.Metadata[metaKeySourcePath] != absPath {
		return nil, false
	}
	// Values are stored as strings to avoid JSON float64 precision loss (UnixNano exceeds 53 bits).
	if metadataInt64(doc.Metadata, metaKeySourceMtime) != info.ModTime().UnixNano() ||
		metadataInt64(doc.Metadata, metaKeySourceSize) != info.Size() {
		return nil, false
	}
	return doc, true
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts (all files when empty). Returns the number of files indexed and
// the first error encountered, if any.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if indexErr := idx.IndexFile(ctx, path, allowedExts); indexErr != nil {
			return fmt.Errorf("%s: %w", path, indexErr)
		}
		n++
		return nil
	})
	return n, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteDocument removes a document from the keyword index and storage.
// Deleting a missing document is not an error.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if err := idx.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	idx.invalidate(id)
	idx.logger.Debug("indexer document deleted", zap.String("doc_id", id))
	return nil
}

// DeleteFile removes the document indexed from path.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return idx.DeleteDocument(ctx, FileDocID(absPath))
}
