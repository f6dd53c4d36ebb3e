// Package fragment renders highlighted text fragments from scored fragment descriptors.
//
// A Builder selects which candidate fragments to show, fetches exactly the text
// each one spans from a forward-only source.TextSource, and wraps every matched
// term in tags. Text is fetched in start-offset order; results are returned in
// the order chosen by the Selector.
package fragment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
	"go.uber.org/zap"
)

// Builder renders fragments for one document field per call. It holds no
// per-call state and is safe for concurrent use.
type Builder struct {
	provider source.Provider
	selector Selector
	tags     *TagSet
	logger   *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithSelector sets the fragment selection policy. Default is ScoreOrder.
func WithSelector(s Selector) Option {
	return func(b *Builder) {
		if s != nil {
			b.selector = s
		}
	}
}

// WithTags sets the highlight tags. Default is DefaultTags.
func WithTags(t *TagSet) Option {
	return func(b *Builder) {
		if t != nil {
			b.tags = t
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns a builder reading text through provider.
func NewBuilder(provider source.Provider, opts ...Option) (*Builder, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: text source provider is nil", ErrInvalidArgument)
	}
	b := &Builder{
		provider: provider,
		selector: ScoreOrder,
		tags:     DefaultTags(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Tags returns the builder's tag set.
func (b *Builder) Tags() *TagSet {
	return b.tags
}

// Build renders at most maxCount fragments of field in selection order.
// It returns nil when the field has no stored text.
func (b *Builder) Build(ctx context.Context, docID, field string, candidates []*models.FragmentDescriptor, maxCount int) ([]string, error) {
	rendered, err := b.BuildFragments(ctx, docID, field, candidates, maxCount)
	if err != nil || rendered == nil {
		return nil, err
	}
	texts := make([]string, len(rendered))
	for i, r := range rendered {
		texts[i] = r.Text
	}
	return texts, nil
}

// BuildOne renders the single highest-priority fragment. ok is false when the
// field has no text or there are no candidates.
func (b *Builder) BuildOne(ctx context.Context, docID, field string, candidates []*models.FragmentDescriptor) (text string, ok bool, err error) {
	texts, err := b.Build(ctx, docID, field, candidates, 1)
	if err != nil || len(texts) == 0 {
		return "", false, err
	}
	return texts[0], true, nil
}

// BuildFragments is Build returning each text paired with its descriptor.
// Source errors are returned unwrapped after the source is closed, and no
// partial result is returned.
func (b *Builder) BuildFragments(ctx context.Context, docID, field string, candidates []*models.FragmentDescriptor, maxCount int) (_ []models.RenderedFragment, err error) {
	if maxCount < 0 {
		return nil, fmt.Errorf("%w: maxCount(%d) must be non-negative", ErrInvalidArgument, maxCount)
	}

	src, err := b.provider.Source(ctx, docID, field)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if src.IsEmpty() {
		b.logger.Debug("no stored text", zap.String("doc_id", docID), zap.String("field", field))
		return nil, nil
	}

	selected := b.selector.Select(candidates)
	if len(selected) > maxCount {
		selected = selected[:maxCount]
	}
	out := make([]models.RenderedFragment, len(selected))

	// Forward-only sources need non-decreasing starts.
	order := make([]int, len(selected))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return selected[order[i]].Start < selected[order[j]].Start
	})

	for _, i := range order {
		desc := selected[i]
		text, _, err := src.GetText(desc.Start, desc.End-desc.Start)
		if err != nil {
			return nil, err
		}
		out[i] = models.RenderedFragment{Descriptor: desc, Text: Render(desc, text, b.tags)}
	}

	b.logger.Debug("fragments built",
		zap.String("doc_id", docID),
		zap.String("field", field),
		zap.Int("candidates", len(candidates)),
		zap.Int("fragments", len(out)))
	return out, nil
}

// Render wraps the terms of desc found in src, the text fetched at desc.Start.
// Offsets are converted to src coordinates and clamped to [cursor, len(src)],
// so a source that returned less text than the span, or out-of-order terms,
// truncate the output instead of slicing out of range. A term that clamps to
// nothing gets no tags.
func Render(desc *models.FragmentDescriptor, src string, tags *TagSet) string {
	var b strings.Builder
	b.Grow(len(src))
	s := desc.Start
	srcIndex := 0
	for _, sm := range desc.SubMatches {
		for _, to := range sm.Offsets {
			start := clamp(to.Start-s, srcIndex, len(src))
			end := clamp(to.End-s, start, len(src))
			if start == end {
				continue
			}
			b.WriteString(src[srcIndex:start])
			b.WriteString(tags.Pre(sm.Seq))
			b.WriteString(src[start:end])
			b.WriteString(tags.Post(sm.Seq))
			srcIndex = end
		}
	}
	b.WriteString(src[srcIndex:])
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
