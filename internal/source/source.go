// Package source provides forward-only access to the text of one document field.
//
// A TextSource is scoped to exactly one (document, field) pair and is obtained
// from a Provider. Callers request substrings with non-decreasing start offsets
// and must use the returned length, which may be shorter than requested when
// the stored text ends first. Offsets are byte offsets into the field's logical
// text, which joins multivalued instances with a single space after every
// non-empty tokenized instance except the last.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/hikari/internal/models"
)

var (
	// ErrInvalidRange is returned for a negative start offset or length.
	ErrInvalidRange = errors.New("invalid text range")
	// ErrBackwardSeek is returned by sources that already discarded the requested text.
	ErrBackwardSeek = errors.New("backward seek on forward-only source")
)

// Separator is inserted between successive tokenized field instances.
const Separator = ' '

// TextSource streams the logical text of one document field.
type TextSource interface {
	// IsEmpty reports whether the field has no stored instances.
	IsEmpty() bool
	// GetText returns up to length bytes starting at start, and the number of bytes returned.
	GetText(start, length int) (string, int, error)
	// Close releases any underlying readers or buffers.
	Close() error
}

// Provider constructs a TextSource for a document field.
type Provider interface {
	Source(ctx context.Context, docID, field string) (TextSource, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, docID, field string) (TextSource, error)

// Source calls f.
func (f ProviderFunc) Source(ctx context.Context, docID, field string) (TextSource, error) {
	return f(ctx, docID, field)
}

// FieldReader loads all stored instances of a document field.
type FieldReader interface {
	StoredFields(ctx context.Context, docID, field string) ([]models.StoredField, error)
}

// FieldIterator yields stored instances of a document field one at a time.
type FieldIterator interface {
	Next() bool
	Field() models.StoredField
	Err() error
	Close() error
}

// FieldStreamer opens an iterator over the stored instances of a document field.
type FieldStreamer interface {
	StreamFields(ctx context.Context, docID, field string) (FieldIterator, error)
}

// separatorAfter reports whether a separator follows instance f when more instances remain.
func separatorAfter(f models.StoredField, hasNext bool) bool {
	return f.Tokenized && len(f.Value) > 0 && hasNext
}

// JoinOffsets returns the offset of each instance in the joined logical text,
// followed by the total length of that text.
func JoinOffsets(fields []models.StoredField) []int {
	offsets := make([]int, len(fields)+1)
	pos := 0
	for i, f := range fields {
		offsets[i] = pos
		pos += len(f.Value)
		if separatorAfter(f, i+1 < len(fields)) {
			pos++
		}
	}
	offsets[len(fields)] = pos
	return offsets
}

func checkRange(start, length int) error {
	if start < 0 || length < 0 {
		return fmt.Errorf("%w: start=%d length=%d", ErrInvalidRange, start, length)
	}
	return nil
}
