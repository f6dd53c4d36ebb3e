package source

import (
	"context"
	"strings"

	"github.com/hyperjump/hikari/internal/models"
)

// StoredProvider is the default Provider. It reads every stored instance of the
// field up front and assembles the logical text lazily into a growable buffer.
type StoredProvider struct {
	reader FieldReader
}

// NewStoredProvider returns a provider backed by reader.
func NewStoredProvider(reader FieldReader) *StoredProvider {
	return &StoredProvider{reader: reader}
}

// Source loads the field instances and returns a fresh buffered source.
func (p *StoredProvider) Source(ctx context.Context, docID, field string) (TextSource, error) {
	values, err := p.reader.StoredFields(ctx, docID, field)
	if err != nil {
		return nil, err
	}
	return NewStoredSource(values), nil
}

// StoredSource buffers stored field instances on demand. Not safe for concurrent use.
type StoredSource struct {
	values []models.StoredField
	buf    strings.Builder
	next   int
}

// NewStoredSource returns a source over values. The slice is not modified.
func NewStoredSource(values []models.StoredField) *StoredSource {
	return &StoredSource{values: values}
}

// IsEmpty reports whether there are no stored instances.
func (s *StoredSource) IsEmpty() bool {
	return len(s.values) == 0
}

// GetText appends instances until the buffer covers start+length or the
// instances run out, then returns the available part of the range.
func (s *StoredSource) GetText(start, length int) (string, int, error) {
	if err := checkRange(start, length); err != nil {
		return "", 0, err
	}
	end := start + length
	for s.buf.Len() < end && s.next < len(s.values) {
		v := s.values[s.next]
		s.buf.WriteString(v.Value)
		if separatorAfter(v, s.next+1 < len(s.values)) {
			s.buf.WriteByte(Separator)
		}
		s.next++
	}
	buffered := s.buf.Len()
	if start >= buffered {
		return "", 0, nil
	}
	n := min(length, buffered-start)
	return s.buf.String()[start : start+n], n, nil
}

// Close drops the buffer.
func (s *StoredSource) Close() error {
	s.buf.Reset()
	s.values = nil
	s.next = 0
	return nil
}
