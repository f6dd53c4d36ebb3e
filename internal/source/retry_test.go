package source

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryProvider_RetriesTransientErrors(t *testing.T) {
	calls := 0
	flaky := ProviderFunc(func(_ context.Context, _, _ string) (TextSource, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("database is locked")
		}
		return NewStoredSource(tokenized("ok")), nil
	})
	p := NewRetryProvider(flaky, 5, time.Millisecond)
	src, err := p.Source(context.Background(), "d", "f")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryProvider_GivesUp(t *testing.T) {
	transient := errors.New("busy")
	calls := 0
	p := NewRetryProvider(ProviderFunc(func(_ context.Context, _, _ string) (TextSource, error) {
		calls++
		return nil, transient
	}), 2, time.Millisecond)
	if _, err := p.Source(context.Background(), "d", "f"); !errors.Is(err, transient) {
		t.Errorf("err = %v, want %v", err, transient)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
}

func TestRetryProvider_PermanentErrors(t *testing.T) {
	notFound := errors.New("not found")
	calls := 0
	p := NewRetryProvider(ProviderFunc(func(_ context.Context, _, _ string) (TextSource, error) {
		calls++
		return nil, notFound
	}), 5, time.Millisecond, WithPermanent(func(err error) bool { return errors.Is(err, notFound) }))
	if _, err := p.Source(context.Background(), "d", "f"); !errors.Is(err, notFound) {
		t.Errorf("err = %v, want %v", err, notFound)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
