package fragment

import (
	"errors"
	"testing"

	"github.com/hyperjump/hikari/internal/models"
)

func TestScoreOrder(t *testing.T) {
	a, b, c, d := frag(30, 40, 1), frag(0, 10, 5), frag(50, 60, 5), frag(10, 20, 2)
	in := []*models.FragmentDescriptor{a, b, c, d}
	got := ScoreOrder.Select(in)
	want := []*models.FragmentDescriptor{b, c, d, a}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got start %d, want start %d", i, got[i].Start, want[i].Start)
		}
	}
	if in[0] != a || in[1] != b {
		t.Error("input slice was reordered")
	}
}

func TestSimpleOrder(t *testing.T) {
	in := []*models.FragmentDescriptor{frag(30, 40, 1), frag(0, 10, 5)}
	got := SimpleOrder.Select(in)
	if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Error("simple order changed candidate order")
	}
	got[0] = nil
	if in[0] == nil {
		t.Error("simple order returned the input slice")
	}
}

func TestSelectorByName(t *testing.T) {
	for _, name := range []string{"", SelectorScore, SelectorSimple} {
		if _, err := SelectorByName(name); err != nil {
			t.Errorf("SelectorByName(%q): %v", name, err)
		}
	}
	if _, err := SelectorByName("random"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
