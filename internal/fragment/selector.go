package fragment

import (
	"fmt"
	"sort"

	"github.com/hyperjump/hikari/internal/models"
)

// Selector names accepted by SelectorByName.
const (
	SelectorScore  = "score"
	SelectorSimple = "simple"
)

// Selector chooses which candidate fragments are rendered and in what priority
// order. Implementations must not modify their input and may only return
// descriptors taken from it.
type Selector interface {
	Select(candidates []*models.FragmentDescriptor) []*models.FragmentDescriptor
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(candidates []*models.FragmentDescriptor) []*models.FragmentDescriptor

// Select calls f.
func (f SelectorFunc) Select(candidates []*models.FragmentDescriptor) []*models.FragmentDescriptor {
	return f(candidates)
}

// SimpleOrder keeps candidates in their given order.
var SimpleOrder Selector = SelectorFunc(func(candidates []*models.FragmentDescriptor) []*models.FragmentDescriptor {
	return append([]*models.FragmentDescriptor(nil), candidates...)
})

// ScoreOrder orders candidates by weight descending, then by start offset.
var ScoreOrder Selector = SelectorFunc(func(candidates []*models.FragmentDescriptor) []*models.FragmentDescriptor {
	out := append([]*models.FragmentDescriptor(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Start < out[j].Start
	})
	return out
})

// SelectorByName returns the selector registered under name. Empty means score order.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", SelectorScore:
		return ScoreOrder, nil
	case SelectorSimple:
		return SimpleOrder, nil
	default:
		return nil, fmt.Errorf("%w: unknown selector %q", ErrInvalidArgument, name)
	}
}
