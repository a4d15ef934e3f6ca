package results

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/hdrscan/internal/checks"
)

// DiffChunk is one changed header line.
type DiffChunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// StatusChange records a check whose verdict differs between two entries.
type StatusChange struct {
	Check string        `json:"check"`
	Base  checks.Status `json:"base"`
	Head  checks.Status `json:"head"`
}

// HeaderDiff compares the stored response headers of two endpoints.
type HeaderDiff struct {
	BaseKey  string         `json:"base_key"`
	HeadKey  string         `json:"head_key"`
	Chunks   []DiffChunk    `json:"chunks"`
	Statuses []StatusChange `json:"statuses"`
}

// DiffHeaders computes a line-level diff of the header blocks and lists the
// checks whose status changed. Checks missing on one side are reported with
// a zero status on that side.
func DiffHeaders(base, head *Entry) *HeaderDiff {
	d := &HeaderDiff{BaseKey: base.Key, HeadKey: head.Key, Chunks: []DiffChunk{}, Statuses: []StatusChange{}}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(joinLines(base.HeaderLines), joinLines(head.HeaderLines))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, diff := range diffs {
		var typ string
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			typ = "added"
		case diffmatchpatch.DiffDelete:
			typ = "removed"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(diff.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			d.Chunks = append(d.Chunks, DiffChunk{Type: typ, Content: line})
		}
	}

	seen := make(map[string]bool)
	for _, e := range base.Results.Entries() {
		seen[e.Check] = true
		hr, _ := head.Results.Get(e.Check)
		if hr.Status() != e.Result.Status() {
			d.Statuses = append(d.Statuses, StatusChange{Check: e.Check, Base: e.Result.Status(), Head: hr.Status()})
		}
	}
	for _, e := range head.Results.Entries() {
		if !seen[e.Check] {
			d.Statuses = append(d.Statuses, StatusChange{Check: e.Check, Head: e.Result.Status()})
		}
	}
	return d
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
