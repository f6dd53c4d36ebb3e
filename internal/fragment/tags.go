package fragment

import (
	"fmt"
	"strings"
)

// Palette names accepted by TagsFromConfig.
const (
	PaletteDefault = "default"
	PaletteColored = "colored"
)

// ColoredPreTags is a rotating palette of background colours.
var ColoredPreTags = []string{
	`<b style="background:yellow">`, `<b style="background:lawngreen">`, `<b style="background:aquamarine">`,
	`<b style="background:magenta">`, `<b style="background:palegreen">`, `<b style="background:coral">`,
	`<b style="background:wheat">`, `<b style="background:khaki">`, `<b style="background:lime">`,
	`<b style="background:deepskyblue">`, `<b style="background:deeppink">`, `<b style="background:salmon">`,
	`<b style="background:peachpuff">`, `<b style="background:violet">`, `<b style="background:mediumpurple">`,
	`<b style="background:palegoldenrod">`, `<b style="background:darkkhaki">`, `<b style="background:springgreen">`,
	`<b style="background:turquoise">`, `<b style="background:powderblue">`,
}

// ColoredPostTags closes every ColoredPreTags entry.
var ColoredPostTags = []string{"</b>"}

// TagSet holds open and close markers. A sub match with sequence number n uses
// pre[n mod len(pre)] and post[n mod len(post)], so a small palette covers any
// number of distinct terms.
type TagSet struct {
	pre  []string
	post []string
}

// NewTagSet copies pre and post. Both must be non-empty.
func NewTagSet(pre, post []string) (*TagSet, error) {
	if len(pre) == 0 || len(post) == 0 {
		return nil, fmt.Errorf("%w: tag lists must be non-empty (pre=%d, post=%d)", ErrInvalidArgument, len(pre), len(post))
	}
	return &TagSet{
		pre:  append([]string(nil), pre...),
		post: append([]string(nil), post...),
	}, nil
}

// DefaultTags returns the <b>...</b> tag set.
func DefaultTags() *TagSet {
	return &TagSet{pre: []string{"<b>"}, post: []string{"</b>"}}
}

// ColoredTags returns the rotating colour palette.
func ColoredTags() *TagSet {
	t, _ := NewTagSet(ColoredPreTags, ColoredPostTags)
	return t
}

// TagsFromConfig resolves a palette name, overridden by explicit tags when both lists are given.
func TagsFromConfig(palette string, pre, post []string) (*TagSet, error) {
	if len(pre) > 0 || len(post) > 0 {
		return NewTagSet(pre, post)
	}
	switch strings.ToLower(palette) {
	case "", PaletteDefault:
		return DefaultTags(), nil
	case PaletteColored:
		return ColoredTags(), nil
	default:
		return nil, fmt.Errorf("%w: unknown palette %q", ErrInvalidArgument, palette)
	}
}

// Pre returns the open tag for sequence number seq.
func (t *TagSet) Pre(seq int) string {
	return t.pre[mod(seq, len(t.pre))]
}

// Post returns the close tag for sequence number seq.
func (t *TagSet) Post(seq int) string {
	return t.post[mod(seq, len(t.post))]
}

// mod keeps the index in range for negative sequence numbers.
func mod(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}
