package models

import "fmt"

// TermOffset is the absolute byte span of one matched term in a field's text.
type TermOffset struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SubMatch groups the offsets of one matched query term inside a fragment.
// Seq identifies the distinct query term and picks the highlight tag variant.
type SubMatch struct {
	Seq     int          `json:"seq"`
	Offsets []TermOffset `json:"offsets"`
}

// FragmentDescriptor describes a candidate fragment produced by the scoring stage.
// Offsets are absolute byte offsets into the field's logical text. SubMatch offsets
// lie within [Start, End) and are ordered and disjoint within and across SubMatches.
type FragmentDescriptor struct {
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Weight     float64    `json:"weight"`
	SubMatches []SubMatch `json:"sub_matches,omitempty"`
}

// Len returns the nominal length of the fragment span.
func (f *FragmentDescriptor) Len() int {
	return f.End - f.Start
}

// Validate checks the structural invariants of the descriptor.
// Ordering of term offsets is not checked; renderers clamp instead.
func (f *FragmentDescriptor) Validate() error {
	if f.Start < 0 {
		return fmt.Errorf("fragment start %d is negative", f.Start)
	}
	if f.Start > f.End {
		return fmt.Errorf("fragment start %d is after end %d", f.Start, f.End)
	}
	for _, sm := range f.SubMatches {
		if sm.Seq < 0 {
			return fmt.Errorf("sub match seq %d is negative", sm.Seq)
		}
		for _, to := range sm.Offsets {
			if to.Start >= to.End {
				return fmt.Errorf("term offset [%d,%d) is empty or inverted", to.Start, to.End)
			}
		}
	}
	return nil
}

// RenderedFragment pairs a descriptor with its highlighted text.
type RenderedFragment struct {
	Descriptor *FragmentDescriptor `json:"fragment"`
	Text       string              `json:"text"`
}
