// Package storage defines the persistence interface for documents and their stored fields.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Storage defines document persistence operations. Implementations also serve
// stored field text to the highlighter, either all at once or streamed.
type Storage interface {
	source.FieldReader
	source.FieldStreamer

	// PutDocument creates the document or replaces all of its fields.
	PutDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountFields(ctx context.Context) (int64, error)

	Close() error
}
