package model

import (
	"fmt"
	"strings"
)

// Record is one paired request/response as handed over by a traffic source.
type Record struct {
	RequestHeader  *Header
	ResponseHeader *Header
	Method         string
	URL            string
	StatusCode     int
	StatusLine     string
}

// EndpointKey identifies an endpoint for result bookkeeping:
// "<METHOD> <URL> <STATUS>".
func (r *Record) EndpointKey() string {
	return EndpointKey(r.Method, r.URL, r.StatusCode)
}

// EndpointKey formats the key used to index analysis results.
func EndpointKey(method, url string, status int) string {
	return fmt.Sprintf("%s %s %d", method, url, status)
}

// NewRecord pairs a parsed request and response. The URL is built from the
// request Host header (falling back to serverName) and the request target.
// It returns false when method, host, path or status cannot be determined.
func NewRecord(req *Request, resp *Response, useTLS bool, serverName string) (*Record, bool) {
	if req == nil || resp == nil {
		return nil, false
	}
	host, ok := req.Header.Value("Host")
	if !ok || host == "" {
		host = serverName
	}
	path := req.Target
	// absolute-form targets carry their own scheme and host
	if i := strings.Index(path, "://"); i >= 0 {
		rest := path[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			path = rest[j:]
		} else {
			path = "/"
		}
	}
	if req.Method == "" || host == "" || path == "" || resp.StatusCode == 0 {
		return nil, false
	}

	scheme := "http://"
	if useTLS {
		scheme = "https://"
	}
	return &Record{
		RequestHeader:  req.Header,
		ResponseHeader: resp.Header,
		Method:         req.Method,
		URL:            scheme + host + path,
		StatusCode:     resp.StatusCode,
		StatusLine:     resp.StatusLine(),
	}, true
}

// ParseRecord parses raw request and response bytes into a Record.
func ParseRecord(rawReq, rawResp []byte, useTLS bool, serverName string) (*Record, error) {
	req, err := ParseRequest(rawReq)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	resp, err := ParseResponse(rawResp)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	rec, ok := NewRecord(req, resp, useTLS, serverName)
	if !ok {
		return nil, ErrIncompleteRecord
	}
	return rec, nil
}
