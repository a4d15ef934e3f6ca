package model

import (
	"net/http"
	"sort"
	"strings"
)

// Header is one parsed HTTP header block. It keeps the lines exactly as they
// were transmitted so display code can highlight them, and offers
// case-insensitive lookups for policy code.
type Header struct {
	lines  []string
	fields []headerField
}

type headerField struct {
	name  string
	value string
}

// NewHeader builds a Header from raw "Name: value" lines. Lines without a
// colon are kept for display but never match a lookup. A line starting with
// a space or tab continues the previous field.
func NewHeader(lines ...string) *Header {
	h := &Header{}
	for _, line := range lines {
		h.addLine(line)
	}
	return h
}

// FromHTTPHeader converts a net/http header map. Map order is lost on the
// wire side of net/http, so fields are emitted sorted by canonical name.
func FromHTTPHeader(hdr http.Header) *Header {
	names := make([]string, 0, len(hdr))
	for k := range hdr {
		names = append(names, k)
	}
	sort.Strings(names)

	h := &Header{}
	for _, k := range names {
		for _, v := range hdr[k] {
			h.addLine(k + ": " + v)
		}
	}
	return h
}

func (h *Header) addLine(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	if (line[0] == ' ' || line[0] == '\t') && len(h.fields) > 0 && len(h.lines) > 0 {
		last := &h.fields[len(h.fields)-1]
		last.value = strings.TrimSpace(last.value + " " + strings.TrimSpace(line))
		h.lines[len(h.lines)-1] += " " + strings.TrimSpace(line)
		return
	}
	h.lines = append(h.lines, line)

	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	h.fields = append(h.fields, headerField{name: name, value: strings.TrimSpace(value)})
}

// Value returns the first value of the named header, case-insensitively.
func (h *Header) Value(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value, true
		}
	}
	return "", false
}

// Values returns every value of the named header in transmission order.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			out = append(out, f.value)
		}
	}
	return out
}

// Lines returns a copy of the raw header lines.
func (h *Header) Lines() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.lines...)
}

// Len reports the number of parsed fields.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}
