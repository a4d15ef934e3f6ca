package highlight

import (
	"io"
	"sort"
	"strings"

	"github.com/raysh454/hdrscan/internal/checks"
)

// Run is a maximal piece of a line drawn in one colour.
type Run struct {
	Text string `json:"text"`
	Type Type   `json:"type"`
}

// Runs turns segments into an ordered list of runs covering the whole line.
// Segments are sorted by start; out-of-range ones are dropped, as are ones
// starting before the end of the previous painted segment. Gaps are None.
func Runs(line string, segs []Segment) []Run {
	rs := []rune(line)
	sorted := append([]Segment(nil), segs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Run
	pos := 0
	for _, s := range sorted {
		if s.Start < 0 || s.End > len(rs) || s.Start > s.End {
			continue
		}
		if s.Start < pos {
			continue
		}
		if s.Start > pos {
			out = append(out, Run{Text: string(rs[pos:s.Start]), Type: None})
		}
		if s.End > s.Start {
			out = append(out, Run{Text: string(rs[s.Start:s.End]), Type: s.Type})
		}
		pos = s.End
	}
	if pos < len(rs) {
		out = append(out, Run{Text: string(rs[pos:]), Type: None})
	}
	return out
}

// Paint renders one header line: segment runs when any check produced
// segments, otherwise the whole line in its fallback colour.
func Paint(line string, reg *checks.Registry, rs *checks.Results) []Run {
	if segs := Line(line, reg, rs); len(segs) > 0 {
		return Runs(line, segs)
	}
	return []Run{{Text: line, Type: Fallback(line, reg, rs)}}
}

var ansi = map[Type]string{
	Red:    "\x1b[31m",
	Yellow: "\x1b[33m",
	Green:  "\x1b[32m",
}

const ansiReset = "\x1b[0m"

// WriteANSI writes runs followed by a newline using terminal colour codes.
func WriteANSI(w io.Writer, runs []Run) error {
	var b strings.Builder
	for _, r := range runs {
		if code, ok := ansi[r.Type]; ok {
			b.WriteString(code + r.Text + ansiReset)
			continue
		}
		b.WriteString(r.Text)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// PlainText joins runs back into the original line.
func PlainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}
