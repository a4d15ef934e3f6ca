package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/results"
)

// FixedColumns precede the per-check columns in every row.
var FixedColumns = []string{"Method", "URL", "Code"}

// Row is the tabular view of one stored entry.
type Row struct {
	Key       string        `json:"key"`
	Method    string        `json:"method"`
	URL       string        `json:"url"`
	Status    string        `json:"status"`
	Cells     []string      `json:"cells"`
	Overall   checks.Status `json:"overall"`
	HasIssues bool          `json:"has_issues"`
}

// Columns returns the header for rows built against reg.
func Columns(reg *checks.Registry) []string {
	return append(append([]string(nil), FixedColumns...), reg.Columns()...)
}

// BuildRow lays out e in registry order. A check without a result yields an
// empty cell.
func BuildRow(reg *checks.Registry, e *results.Entry) Row {
	row := Row{
		Key:    e.Key,
		Method: e.Method,
		URL:    e.URL,
		Status: strconv.Itoa(e.StatusCode),
	}
	cs := reg.Checks()
	row.Cells = make([]string, len(cs))
	if e.Results == nil {
		return row
	}
	for i, c := range cs {
		if r, ok := e.Results.Get(c.Name()); ok {
			row.Cells[i] = r.Display()
		}
	}
	row.Overall = checks.Overall(reg, e.Results)
	row.HasIssues = checks.HasIssues(e.Results)
	return row
}

// Values returns every cell of the row, fixed columns first.
func (r Row) Values() []string {
	return append([]string{r.Method, r.URL, r.Status}, r.Cells...)
}

// Filter selects rows. Methods and StatusClasses are OR groups; Text is a
// case-insensitive literal matched against any cell. Groups are ANDed and an
// empty group matches everything.
type Filter struct {
	Methods       []string `json:"methods,omitempty"`
	StatusClasses []int    `json:"status_classes,omitempty"`
	Text          string   `json:"text,omitempty"`
}

func (f Filter) Match(r Row) bool {
	if len(f.Methods) > 0 && !f.matchMethod(r.Method) {
		return false
	}
	if len(f.StatusClasses) > 0 && !f.matchStatus(r.Status) {
		return false
	}
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return true
	}
	needle := strings.ToLower(text)
	for _, v := range r.Values() {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func (f Filter) matchMethod(m string) bool {
	for _, want := range f.Methods {
		if want == m {
			return true
		}
	}
	return false
}

// matchStatus accepts three digit codes whose first digit is a selected class.
func (f Filter) matchStatus(s string) bool {
	if len(s) != 3 {
		return false
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	for _, class := range f.StatusClasses {
		if code/100 == class {
			return true
		}
	}
	return false
}

// Apply returns the rows that match, in order.
func (f Filter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseStatusClass accepts "2xx".."5xx" (case-insensitive) or a bare digit.
func ParseStatusClass(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "xx")
	if len(s) == 1 && s[0] >= '2' && s[0] <= '5' {
		return int(s[0] - '0'), nil
	}
	return 0, fmt.Errorf("analyzer: unknown status class %q", s)
}
