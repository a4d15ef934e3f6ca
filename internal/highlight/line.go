package highlight

import (
	"strings"

	"github.com/raysh454/hdrscan/internal/checks"
)

// Line collects the segments of every registry check that owns line.
// Each check places its own candidates; segments from different checks are
// concatenated without cross-check eviction.
func Line(line string, reg *checks.Registry, rs *checks.Results) []Segment {
	lower := strings.ToLower(line)
	var all []Segment
	for _, c := range reg.Checks() {
		if !c.MatchesHeaderLine(lower) {
			continue
		}
		r, _ := rs.Get(c.Name())
		all = append(all, Segments(line, c, r)...)
	}
	return all
}

// LineType is the whole-line colour check c gives line: None if c does not
// own the line, otherwise the colour of r's status. Checks implementing
// checks.WholeLineColorer may opt individual lines out.
func LineType(line string, c checks.Check, r checks.Result) Type {
	lower := strings.ToLower(line)
	if !c.MatchesHeaderLine(lower) {
		return None
	}
	if wl, ok := c.(checks.WholeLineColorer); ok && !wl.WholeLineColored(lower) {
		return None
	}
	return ForStatus(r.Status())
}

// Fallback colours a line that produced no segments with the verdict colour
// of the first owning check that gives one. Set-Cookie lines not claimed by
// any check are green when they mention secure.
func Fallback(line string, reg *checks.Registry, rs *checks.Results) Type {
	for _, c := range reg.Checks() {
		r, _ := rs.Get(c.Name())
		if t := LineType(line, c, r); t != None {
			return t
		}
	}

	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "set-cookie:") {
		if strings.Contains(lower, "secure") {
			return Green
		}
		return Red
	}
	return None
}
