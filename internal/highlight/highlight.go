// Package highlight splits raw header lines into coloured spans that agree
// with the verdicts already computed by the checks package.
package highlight

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/raysh454/hdrscan/internal/checks"
)

// Type is the colour of a span.
type Type int

const (
	None Type = iota
	Red
	Yellow
	Green
)

// Priority orders colours when spans overlap: Green > Yellow > Red > None.
func (t Type) Priority() int {
	switch t {
	case Green:
		return 3
	case Yellow:
		return 2
	case Red:
		return 1
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	}
	return "none"
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*t = None
	case "red":
		*t = Red
	case "yellow":
		*t = Yellow
	case "green":
		*t = Green
	default:
		return fmt.Errorf("highlight: unknown type %q", b)
	}
	return nil
}

// ForStatus maps a verdict to its colour. An invalid status is uncoloured.
func ForStatus(s checks.Status) Type {
	switch s {
	case checks.StatusOK:
		return Green
	case checks.StatusWarn:
		return Yellow
	case checks.StatusFail:
		return Red
	}
	return None
}

// Segment is a coloured half-open range [Start, End) of rune offsets into a
// header line.
type Segment struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Type  Type `json:"type"`
}

func (s Segment) overlaps(start, end int) bool {
	return start < s.End && end > s.Start
}

// Segments returns the spans check c contributes to line given its result r.
// Only the pattern list matching r's status is searched. The returned slice
// is in placement order, not sorted.
func Segments(line string, c checks.Check, r checks.Result) []Segment {
	lower := lowerRunes(line)
	if !c.MatchesHeaderLine(string(lower)) {
		return nil
	}
	p := c.Patterns()
	if p.Empty() {
		return nil
	}

	typ := ForStatus(r.Status())
	var segs []Segment
	for _, pattern := range p.For(r.Status()) {
		segs = addMatches(segs, lower, pattern, typ)
	}
	return segs
}

// addMatches places every non-overlapping occurrence of pattern, scanning left
// to right and resuming at the end of each match.
func addMatches(segs []Segment, lower []rune, pattern string, typ Type) []Segment {
	needle := lowerRunes(strings.TrimSpace(pattern))
	if len(needle) == 0 {
		return segs
	}
	for i := 0; i+len(needle) <= len(lower); {
		if !hasPrefixAt(lower, needle, i) {
			i++
			continue
		}
		segs = Place(segs, Segment{Start: i, End: i + len(needle), Type: typ})
		i += len(needle)
	}
	return segs
}

// Place inserts candidate into segs. The candidate is dropped if it overlaps
// a segment of strictly higher priority; otherwise every overlapping segment
// of equal or lower priority is evicted and the candidate appended. segs's
// backing array is reused.
func Place(segs []Segment, candidate Segment) []Segment {
	prio := candidate.Type.Priority()
	for _, s := range segs {
		if s.Type.Priority() > prio && s.overlaps(candidate.Start, candidate.End) {
			return segs
		}
	}
	kept := segs[:0]
	for _, s := range segs {
		if s.overlaps(candidate.Start, candidate.End) {
			continue
		}
		kept = append(kept, s)
	}
	return append(kept, candidate)
}

func hasPrefixAt(s, prefix []rune, at int) bool {
	for j, r := range prefix {
		if s[at+j] != r {
			return false
		}
	}
	return true
}

// lowerRunes lowercases rune by rune so offsets in the result line up with
// offsets in the input.
func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}
