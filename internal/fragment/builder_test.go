package fragment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
)

// recordingSource wraps a TextSource and records every request and Close.
type recordingSource struct {
	source.TextSource
	starts []int
	closed bool
	failAt int
}

func (r *recordingSource) GetText(start, length int) (string, int, error) {
	r.starts = append(r.starts, start)
	if r.failAt > 0 && len(r.starts) == r.failAt {
		return "", 0, errSourceFailure
	}
	return r.TextSource.GetText(start, length)
}

func (r *recordingSource) Close() error {
	r.closed = true
	return r.TextSource.Close()
}

var errSourceFailure = errors.New("source failure")

type fixture struct {
	mu       sync.Mutex
	values   []models.StoredField
	sources  []*recordingSource
	acquired int
	failAt   int
	openErr  error
}

func (f *fixture) Source(_ context.Context, _, _ string) (source.TextSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	if f.openErr != nil {
		return nil, f.openErr
	}
	rs := &recordingSource{TextSource: source.NewStoredSource(f.values), failAt: f.failAt}
	f.sources = append(f.sources, rs)
	return rs, nil
}

func textFixture(values ...string) *fixture {
	fields := make([]models.StoredField, len(values))
	for i, v := range values {
		fields[i] = models.StoredField{Name: "content", Value: v, Tokenized: true}
	}
	return &fixture{values: fields}
}

func newTestBuilder(t *testing.T, p source.Provider, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(p, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func frag(start, end int, weight float64, subs ...models.SubMatch) *models.FragmentDescriptor {
	return &models.FragmentDescriptor{Start: start, End: end, Weight: weight, SubMatches: subs}
}

func sub(seq int, offsets ...int) models.SubMatch {
	sm := models.SubMatch{Seq: seq}
	for i := 0; i+1 < len(offsets); i += 2 {
		sm.Offsets = append(sm.Offsets, models.TermOffset{Start: offsets[i], End: offsets[i+1]})
	}
	return sm
}

func TestBuild_QuickFox(t *testing.T) {
	f := textFixture("the quick brown fox jumps")
	b := newTestBuilder(t, f)
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{
		frag(0, 19, 1, sub(0, 4, 9)),
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "the <b>quick</b> brown" {
		t.Errorf("got %q, want [\"the <b>quick</b> brown\"]", got)
	}
	if !f.sources[0].closed {
		t.Error("source not closed")
	}
}

func TestBuild_PreservesSelectorOrder(t *testing.T) {
	text := strings.Repeat("x", 10) + "bravo" + strings.Repeat("y", 35) + "alpha" + strings.Repeat("z", 20)
	f := textFixture(text)
	b := newTestBuilder(t, f, WithSelector(SimpleOrder))

	a := frag(50, 55, 2, sub(0, 50, 55))
	bb := frag(10, 15, 1, sub(1, 10, 15))
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{a, bb}, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"<b>alpha</b>", "<b>bravo</b>"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %q, want %q", got, want)
	}
	starts := f.sources[0].starts
	if len(starts) != 2 || starts[0] != 10 || starts[1] != 50 {
		t.Errorf("fetch order = %v, want [10 50]", starts)
	}
}

func TestBuild_ScoreOrderAndTruncation(t *testing.T) {
	f := textFixture("aaaa bbbb cccc dddd")
	b := newTestBuilder(t, f)
	cands := []*models.FragmentDescriptor{
		frag(0, 4, 1), frag(5, 9, 3), frag(10, 14, 2), frag(15, 19, 0.5),
	}
	got, err := b.Build(context.Background(), "d1", "content", cands, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "bbbb" || got[1] != "cccc" {
		t.Errorf("got %q, want [bbbb cccc]", got)
	}
	if cands[0].Weight != 1 || cands[1].Start != 5 {
		t.Error("candidates were modified")
	}
}

func TestBuild_CountBound(t *testing.T) {
	f := textFixture("one two three")
	b := newTestBuilder(t, f)
	cands := []*models.FragmentDescriptor{frag(0, 3, 1), frag(4, 7, 1)}
	for _, n := range []int{0, 1, 2, 5} {
		got, err := b.Build(context.Background(), "d1", "content", cands, n)
		if err != nil {
			t.Fatal(err)
		}
		if want := min(n, len(cands)); len(got) != want {
			t.Errorf("maxCount=%d: got %d fragments, want %d", n, len(got), want)
		}
	}
}

func TestBuild_ZeroCountRendersNothing(t *testing.T) {
	f := textFixture("one two three")
	b := newTestBuilder(t, f)
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{frag(0, 3, 1)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %q, want empty", got)
	}
	if f.acquired != 1 || len(f.sources[0].starts) != 0 {
		t.Errorf("acquired=%d fetches=%v, want one source and no fetches", f.acquired, f.sources[0].starts)
	}
}

func TestBuild_NegativeCount(t *testing.T) {
	f := textFixture("text")
	b := newTestBuilder(t, f)
	for _, cands := range [][]*models.FragmentDescriptor{nil, {frag(0, 4, 1)}} {
		_, err := b.Build(context.Background(), "d1", "content", cands, -1)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	}
	if f.acquired != 0 {
		t.Errorf("source acquired %d times before argument check", f.acquired)
	}
}

func TestBuild_EmptyField(t *testing.T) {
	f := textFixture()
	calls := 0
	b := newTestBuilder(t, f, WithSelector(SelectorFunc(func(c []*models.FragmentDescriptor) []*models.FragmentDescriptor {
		calls++
		return c
	})))
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{frag(0, 4, 1)}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %q, want nil", got)
	}
	if calls != 0 {
		t.Error("selector called for empty field")
	}
	if !f.sources[0].closed {
		t.Error("source not closed on early return")
	}
}

func TestBuild_NoSubMatchesIsRawText(t *testing.T) {
	f := textFixture("plain text only")
	b := newTestBuilder(t, f)
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{frag(6, 15, 1)}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "text only" {
		t.Errorf("got %q, want \"text only\"", got[0])
	}
}

func TestBuild_DefensiveClamp(t *testing.T) {
	f := textFixture("0123456789ab") // 12 bytes
	b := newTestBuilder(t, f)
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{
		frag(0, 20, 1, sub(0, 8, 15)),
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "01234567<b>89ab</b>" {
		t.Errorf("got %q, want \"01234567<b>89ab</b>\"", got[0])
	}
}

func TestBuild_SourceErrorPropagates(t *testing.T) {
	f := textFixture("alpha beta gamma")
	f.failAt = 2
	b := newTestBuilder(t, f)
	got, err := b.Build(context.Background(), "d1", "content", []*models.FragmentDescriptor{
		frag(0, 5, 1), frag(6, 10, 1),
	}, 2)
	if err != errSourceFailure {
		t.Errorf("err = %v, want unwrapped source failure", err)
	}
	if got != nil {
		t.Errorf("got partial output %q", got)
	}
	if !f.sources[0].closed {
		t.Error("source not closed after failure")
	}
}

func TestBuild_ProviderErrorPropagates(t *testing.T) {
	f := textFixture("x")
	f.openErr = errors.New("index closed")
	b := newTestBuilder(t, f)
	if _, err := b.Build(context.Background(), "d1", "content", nil, 1); err != f.openErr {
		t.Errorf("err = %v, want %v", err, f.openErr)
	}
}

func TestBuild_Concurrent(t *testing.T) {
	f := textFixture("the quick brown fox jumps")
	b := newTestBuilder(t, f)
	cands := []*models.FragmentDescriptor{frag(0, 19, 1, sub(0, 4, 9)), frag(20, 25, 2, sub(1, 20, 25))}
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := b.Build(context.Background(), "d1", "content", cands, 2)
			if err != nil {
				errs <- err
				return
			}
			if got[0] != "<b>jumps</b>" || got[1] != "the <b>quick</b> brown" {
				errs <- errors.New("unexpected output: " + strings.Join(got, "|"))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if f.acquired != 16 {
		t.Errorf("acquired %d sources, want 16", f.acquired)
	}
}

func TestBuildOne(t *testing.T) {
	f := textFixture("alpha beta")
	b := newTestBuilder(t, f)
	text, ok, err := b.BuildOne(context.Background(), "d1", "content", []*models.FragmentDescriptor{
		frag(0, 5, 1), frag(6, 10, 2, sub(0, 6, 10)),
	})
	if err != nil || !ok {
		t.Fatalf("BuildOne: ok=%v err=%v", ok, err)
	}
	if text != "<b>beta</b>" {
		t.Errorf("got %q", text)
	}
	_, ok, err = b.BuildOne(context.Background(), "d1", "content", nil)
	if err != nil || ok {
		t.Errorf("no candidates: ok=%v err=%v, want false nil", ok, err)
	}
}

func TestNewBuilder_NilProvider(t *testing.T) {
	if _, err := NewBuilder(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRender(t *testing.T) {
	tags := DefaultTags()
	tests := []struct {
		name string
		desc *models.FragmentDescriptor
		src  string
		want string
	}{
		{"offset fragment", frag(10, 19, 1, sub(0, 14, 19)), "the quick", "the <b>quick</b>"},
		{"adjacent terms", frag(0, 6, 1, sub(0, 0, 3), sub(1, 3, 6)), "abcdef", "<b>abc</b><b>def</b>"},
		{"several offsets in one sub", frag(0, 11, 1, sub(0, 0, 1, 4, 5, 10, 11)), "a b c d e f", "<b>a</b> b <b>c</b> d e <b>f</b>"},
		{"term beyond text", frag(0, 20, 1, sub(0, 14, 18)), "short text", "short text"},
		{"overlapping terms", frag(0, 9, 1, sub(0, 0, 5), sub(1, 3, 9)), "abcdefghi", "<b>abcde</b><b>fghi</b>"},
		{"empty source", frag(0, 5, 1, sub(0, 1, 3)), "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.desc, tt.src, tags); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
