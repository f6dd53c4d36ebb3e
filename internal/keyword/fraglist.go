package keyword

import (
	"fmt"
	"sort"

	"github.com/hyperjump/hikari/internal/models"
)

// Default fragment list sizing.
const (
	DefaultFragmentSize = 100
	DefaultMargin       = 6
)

// Occurrence is one matched term at absolute offsets in a field's logical text.
type Occurrence struct {
	Term  string
	Start int
	End   int
}

// Absolute converts instance-relative term locations to offsets in the joined
// logical text. bases holds the start of every instance followed by the total
// length, as returned by source.JoinOffsets. Locations that do not fit their
// instance are dropped.
func Absolute(locations []TermLocation, bases []int) []Occurrence {
	out := make([]Occurrence, 0, len(locations))
	for _, loc := range locations {
		if loc.Instance < 0 || loc.Instance+1 >= len(bases) || loc.Start >= loc.End {
			continue
		}
		start := bases[loc.Instance] + loc.Start
		end := bases[loc.Instance] + loc.End
		if end > bases[loc.Instance+1] {
			continue
		}
		out = append(out, Occurrence{Term: loc.Term, Start: start, End: end})
	}
	return out
}

// FragListBuilder groups term occurrences into non-overlapping candidate
// fragments of roughly FragmentSize bytes, each starting Margin bytes before
// its first term.
type FragListBuilder struct {
	fragmentSize int
	margin       int
}

// NewFragListBuilder returns a builder for the given fragment size and margin.
func NewFragListBuilder(fragmentSize, margin int) (*FragListBuilder, error) {
	if fragmentSize <= 0 {
		return nil, fmt.Errorf("fragment size must be positive, got %d", fragmentSize)
	}
	if margin < 0 || margin >= fragmentSize {
		return nil, fmt.Errorf("margin must be in [0, %d), got %d", fragmentSize, margin)
	}
	return &FragListBuilder{fragmentSize: fragmentSize, margin: margin}, nil
}

// Build returns candidate descriptors in start order. Each occurrence becomes
// its own SubMatch whose Seq is the rank of its term among the distinct matched
// terms, so one term always gets the same tag. Weight is the number of
// occurrences in the fragment. A term crossing a fragment's end extends it.
// Overlapping occurrences keep the earliest.
func (b *FragListBuilder) Build(occurrences []Occurrence) []*models.FragmentDescriptor {
	if len(occurrences) == 0 {
		return nil
	}
	occs := make([]Occurrence, len(occurrences))
	copy(occs, occurrences)
	sort.SliceStable(occs, func(i, j int) bool {
		if occs[i].Start != occs[j].Start {
			return occs[i].Start < occs[j].Start
		}
		return occs[i].End < occs[j].End
	})

	seqs := termSeqs(occs)

	var out []*models.FragmentDescriptor
	prevEnd := 0
	lastTermEnd := 0
	var cur *models.FragmentDescriptor
	for _, o := range occs {
		if o.Start < lastTermEnd {
			continue
		}
		if cur != nil && o.Start < cur.End {
			if o.End > cur.End {
				cur.End = o.End
			}
			cur.SubMatches = append(cur.SubMatches, models.SubMatch{
				Seq:     seqs[o.Term],
				Offsets: []models.TermOffset{{Start: o.Start, End: o.End}},
			})
			cur.Weight++
			lastTermEnd = o.End
			continue
		}
		if cur != nil {
			prevEnd = cur.End
		}
		start := o.Start - b.margin
		if start < prevEnd {
			start = prevEnd
		}
		end := start + b.fragmentSize
		if end < o.End {
			end = o.End
		}
		cur = &models.FragmentDescriptor{
			Start:  start,
			End:    end,
			Weight: 1,
			SubMatches: []models.SubMatch{{
				Seq:     seqs[o.Term],
				Offsets: []models.TermOffset{{Start: o.Start, End: o.End}},
			}},
		}
		out = append(out, cur)
		lastTermEnd = o.End
	}
	return out
}

func termSeqs(occs []Occurrence) map[string]int {
	seen := make(map[string]struct{})
	var terms []string
	for _, o := range occs {
		if _, ok := seen[o.Term]; !ok {
			seen[o.Term] = struct{}{}
			terms = append(terms, o.Term)
		}
	}
	sort.Strings(terms)
	seqs := make(map[string]int, len(terms))
	for i, t := range terms {
		seqs[t] = i
	}
	return seqs
}
