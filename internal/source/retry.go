package source

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const defaultRetryBase = 10 * time.Millisecond

// RetryProvider retries source acquisition on transient failures with Fibonacci backoff.
// Errors reported as permanent are returned on the first attempt.
type RetryProvider struct {
	next      Provider
	retries   uint64
	base      time.Duration
	permanent func(error) bool
	logger    *zap.Logger
}

// RetryOption configures a RetryProvider.
type RetryOption func(*RetryProvider)

// WithPermanent adds a classifier for errors that must not be retried.
func WithPermanent(fn func(error) bool) RetryOption {
	return func(p *RetryProvider) {
		prev := p.permanent
		p.permanent = func(err error) bool { return prev(err) || fn(err) }
	}
}

// WithRetryLogger sets a logger for retry attempts.
func WithRetryLogger(l *zap.Logger) RetryOption {
	return func(p *RetryProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewRetryProvider wraps next. A non-positive base uses a 10ms backoff unit.
func NewRetryProvider(next Provider, retries uint64, base time.Duration, opts ...RetryOption) *RetryProvider {
	if base <= 0 {
		base = defaultRetryBase
	}
	p := &RetryProvider{
		next:      next,
		retries:   retries,
		base:      base,
		permanent: isPermanent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Source calls the wrapped provider until it succeeds, fails permanently, or retries run out.
func (p *RetryProvider) Source(ctx context.Context, docID, field string) (TextSource, error) {
	var src TextSource
	attempt := 0
	b := retry.WithMaxRetries(p.retries, retry.NewFibonacci(p.base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		s, err := p.next.Source(ctx, docID, field)
		if err == nil {
			src = s
			return nil
		}
		if p.permanent(err) {
			return err
		}
		p.logger.Debug("text source acquisition failed",
			zap.String("doc_id", docID),
			zap.String("field", field),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
