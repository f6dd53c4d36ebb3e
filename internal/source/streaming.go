package source

import (
	"context"
	"fmt"

	"github.com/hyperjump/hikari/internal/models"
)

// StreamingProvider is a memory-bounded Provider. Its sources pull field
// instances from a FieldIterator only as far as requested and drop text that
// lies before the last requested start offset.
type StreamingProvider struct {
	streamer FieldStreamer
}

// NewStreamingProvider returns a provider backed by streamer.
func NewStreamingProvider(streamer FieldStreamer) *StreamingProvider {
	return &StreamingProvider{streamer: streamer}
}

// Source opens an iterator and primes one instance of look-ahead.
// The iterator is closed if priming fails.
func (p *StreamingProvider) Source(ctx context.Context, docID, field string) (TextSource, error) {
	it, err := p.streamer.StreamFields(ctx, docID, field)
	if err != nil {
		return nil, err
	}
	src, err := NewStreamingSource(it)
	if err != nil {
		_ = it.Close()
		return nil, err
	}
	return src, nil
}

// StreamingSource assembles text from an iterator with one instance of look-ahead,
// which is needed to decide whether a separator follows an instance.
type StreamingSource struct {
	it      FieldIterator
	pending *models.StoredField
	empty   bool
	buf     []byte
	base    int // absolute offset of buf[0]
}

// NewStreamingSource wraps it. The caller keeps ownership of it until the source is returned.
func NewStreamingSource(it FieldIterator) (*StreamingSource, error) {
	s := &StreamingSource{it: it}
	if err := s.advance(); err != nil {
		return nil, err
	}
	s.empty = s.pending == nil
	return s, nil
}

func (s *StreamingSource) advance() error {
	if s.it.Next() {
		f := s.it.Field()
		s.pending = &f
		return nil
	}
	s.pending = nil
	if err := s.it.Err(); err != nil {
		return fmt.Errorf("stream field: %w", err)
	}
	return nil
}

// IsEmpty reports whether the iterator yielded no instances.
func (s *StreamingSource) IsEmpty() bool {
	return s.empty
}

// GetText returns up to length bytes at start. Requests must not start before
// the previous request's start; such requests fail with ErrBackwardSeek.
func (s *StreamingSource) GetText(start, length int) (string, int, error) {
	if err := checkRange(start, length); err != nil {
		return "", 0, err
	}
	if start < s.base {
		return "", 0, fmt.Errorf("%w: start %d precedes buffered offset %d", ErrBackwardSeek, start, s.base)
	}
	end := start + length
	for s.base+len(s.buf) < end && s.pending != nil {
		cur := *s.pending
		if err := s.advance(); err != nil {
			return "", 0, err
		}
		s.buf = append(s.buf, cur.Value...)
		if separatorAfter(cur, s.pending != nil) {
			s.buf = append(s.buf, Separator)
		}
	}
	rel := start - s.base
	if rel >= len(s.buf) {
		s.base += len(s.buf)
		s.buf = s.buf[:0]
		return "", 0, nil
	}
	n := min(length, len(s.buf)-rel)
	text := string(s.buf[rel : rel+n])
	s.buf = append(s.buf[:0], s.buf[rel:]...)
	s.base = start
	return text, n, nil
}

// Close closes the underlying iterator.
func (s *StreamingSource) Close() error {
	s.buf = nil
	s.pending = nil
	return s.it.Close()
}

// SliceIterator iterates over an in-memory slice of field instances.
type SliceIterator struct {
	fields []models.StoredField
	pos    int
	closed bool
}

// NewSliceIterator returns an iterator over fields.
func NewSliceIterator(fields []models.StoredField) *SliceIterator {
	return &SliceIterator{fields: fields, pos: -1}
}

// Next advances to the next instance.
func (it *SliceIterator) Next() bool {
	if it.closed || it.pos+1 >= len(it.fields) {
		return false
	}
	it.pos++
	return true
}

// Field returns the current instance.
func (it *SliceIterator) Field() models.StoredField {
	return it.fields[it.pos]
}

// Err always returns nil.
func (it *SliceIterator) Err() error { return nil }

// Close marks the iterator closed.
func (it *SliceIterator) Close() error {
	it.closed = true
	return nil
}

// Closed reports whether Close was called.
func (it *SliceIterator) Closed() bool { return it.closed }
