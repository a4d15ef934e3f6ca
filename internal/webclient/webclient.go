// Package webclient fetches live responses for header analysis.
package webclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/raysh454/hdrscan/internal/model"
)

type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Get(ctx context.Context, url string) (*Response, error)
	Close() error
}

// Config controls the net/http backed client.
type Config struct {
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent       string        `json:"user_agent" yaml:"user_agent"`
	FollowRedirects bool          `json:"follow_redirects" yaml:"follow_redirects"`
	// MaxBodyBytes caps how much of a body is kept; 0 means unlimited.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		UserAgent:    "hdrscan/1.0",
		MaxBodyBytes: 4 << 20,
	}
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Proto      string
	StatusCode int
	Reason     string
	Headers    http.Header
	Body       []byte
	FetchedAt  time.Time
}

// Record converts the exchange into a traffic record. The request header
// block includes Host so the endpoint URL matches a captured exchange.
func (r *Response) Record() (*model.Record, error) {
	if r == nil || r.Request == nil {
		return nil, fmt.Errorf("webclient: response without request")
	}
	u, err := url.Parse(r.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}

	reqHeaders := r.Request.Headers.Clone()
	if reqHeaders == nil {
		reqHeaders = http.Header{}
	}
	reqHeaders.Set("Host", u.Host)

	req := &model.Request{
		Method: r.Request.Method,
		Target: u.RequestURI(),
		Proto:  "HTTP/1.1",
		Header: model.FromHTTPHeader(reqHeaders),
	}
	resp := &model.Response{
		Proto:      r.Proto,
		StatusCode: r.StatusCode,
		Reason:     r.Reason,
		Header:     model.FromHTTPHeader(r.Headers),
		Body:       r.Body,
	}
	rec, ok := model.NewRecord(req, resp, u.Scheme == "https", u.Host)
	if !ok {
		return nil, model.ErrIncompleteRecord
	}
	return rec, nil
}
