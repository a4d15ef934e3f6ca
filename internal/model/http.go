package model

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyMessage     = errors.New("empty http message")
	ErrBadRequestLine   = errors.New("malformed request line")
	ErrBadStatusLine    = errors.New("malformed status line")
	ErrIncompleteRecord = errors.New("record lacks method, host, path or status")
)

// Request is the head of one captured HTTP request.
type Request struct {
	Method string  `json:"method"`
	Target string  `json:"target"`
	Proto  string  `json:"proto"`
	Header *Header `json:"-"`
	Body   []byte  `json:"-"`
}

// Response is the head of one captured HTTP response.
type Response struct {
	Proto      string  `json:"proto"`
	StatusCode int     `json:"status_code"`
	Reason     string  `json:"reason"`
	Header     *Header `json:"-"`
	Body       []byte  `json:"-"`
}

// StatusLine rebuilds the first line of the response.
func (r *Response) StatusLine() string {
	line := fmt.Sprintf("%s %d", r.Proto, r.StatusCode)
	if r.Reason != "" {
		line += " " + r.Reason
	}
	return line
}

// splitMessage separates the start line, header lines and body of a raw
// message. Both CRLF and bare LF line endings are accepted.
func splitMessage(raw []byte) (string, []string, []byte, error) {
	raw = bytes.TrimLeft(raw, "\r\n")
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil, nil, ErrEmptyMessage
	}

	head, body := raw, []byte(nil)
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		head, body = raw[:i], raw[i+4:]
	} else if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		head, body = raw[:i], raw[i+2:]
	}

	lines := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	return strings.TrimSpace(lines[0]), lines[1:], body, nil
}

// ParseRequest parses a raw request such as "GET /path HTTP/1.1\r\nHost: ...".
func ParseRequest(raw []byte) (*Request, error) {
	start, lines, body, err := splitMessage(raw)
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(start)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrBadRequestLine, start)
	}
	req := &Request{
		Method: strings.ToUpper(parts[0]),
		Target: parts[1],
		Header: NewHeader(lines...),
		Body:   body,
	}
	if len(parts) > 2 {
		req.Proto = parts[2]
	}
	return req, nil
}

// ParseResponse parses a raw response such as "HTTP/1.1 200 OK\r\n...".
func ParseResponse(raw []byte) (*Response, error) {
	start, lines, body, err := splitMessage(raw)
	if err != nil {
		return nil, err
	}
	proto, rest, ok := strings.Cut(start, " ")
	if !ok || !strings.HasPrefix(strings.ToUpper(proto), "HTTP/") {
		return nil, fmt.Errorf("%w: %q", ErrBadStatusLine, start)
	}
	codeStr, reason, _ := strings.Cut(strings.TrimSpace(rest), " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 999 {
		return nil, fmt.Errorf("%w: %q", ErrBadStatusLine, start)
	}
	return &Response{
		Proto:      proto,
		StatusCode: code,
		Reason:     strings.TrimSpace(reason),
		Header:     NewHeader(lines...),
		Body:       body,
	}, nil
}
