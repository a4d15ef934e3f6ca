package checks

import (
	"fmt"
	"io"
	"strings"
)

// Issue is one line item of the per-endpoint report.
type Issue struct {
	Check   string `json:"check"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Current string `json:"current"`
}

// Issues lists the results in registry order with their explanation.
// OK results carry no message.
func Issues(reg *Registry, rs *Results) []Issue {
	var out []Issue
	for _, c := range reg.checks {
		r, ok := rs.Get(c.Name())
		if !ok {
			continue
		}
		is := Issue{Check: c.Name(), Status: r.Status(), Current: r.Display()}
		if !r.IsOK() {
			is.Message = MessageFor(c, r)
		}
		out = append(out, is)
	}
	return out
}

// WriteReport renders the plain-text report:
//
//	CSP: FAIL
//	  <message>
//	  Current: <display>
func WriteReport(w io.Writer, reg *Registry, rs *Results) error {
	var b strings.Builder
	b.WriteString("Security Check Results\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	for _, is := range Issues(reg, rs) {
		switch is.Status {
		case StatusOK:
			fmt.Fprintf(&b, "%s: OK\n  %s\n\n", is.Check, is.Current)
		case StatusWarn:
			fmt.Fprintf(&b, "%s: WARNING\n  %s\n  Current: %s\n\n", is.Check, is.Message, is.Current)
		default:
			fmt.Fprintf(&b, "%s: FAIL\n  %s\n  Current: %s\n\n", is.Check, is.Message, is.Current)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
