package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/hdrscan/internal/logging"
)

// NetHTTPClient is the WebClient used for live scans.
type NetHTTPClient struct {
	client *http.Client
	cfg    Config
	logger logging.Logger
}

// NewNetHTTPClient builds a client from cfg. A non-nil httpClient is used as
// is, apart from the redirect policy.
func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) (*NetHTTPClient, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "nethttp"})

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultConfig().Timeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if !cfg.FollowRedirects {
		// a redirect is an endpoint of its own and gets analysed as such
		httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	componentLogger.Debug("webclient ready",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()},
		logging.Field{Key: "follow_redirects", Value: cfg.FollowRedirects})

	return &NetHTTPClient{
		client: httpClient,
		cfg:    cfg,
		logger: componentLogger,
	}, nil
}

// Do sends req and reads the response, including at most MaxBodyBytes of body.
// Redirects come back as responses unless FollowRedirects is set.
func (nhc *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	httpReq, err := nhc.build(ctx, req)
	if err != nil {
		return nil, err
	}
	log := nhc.logger.With(
		logging.Field{Key: "method", Value: httpReq.Method},
		logging.Field{Key: "url", Value: req.URL})
	log.Debug("fetching")

	resp, err := nhc.client.Do(httpReq)
	if err != nil {
		log.Warn("fetch failed", logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	data, err := nhc.readBody(resp.Body)
	if err != nil {
		log.Warn("reading body failed", logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("read body: %w", err)
	}
	log.Debug("fetched", logging.Field{Key: "status", Value: resp.StatusCode})

	sent := *req
	sent.Method = httpReq.Method
	sent.Headers = httpReq.Header.Clone()
	return &Response{
		Request:    &sent,
		Proto:      resp.Proto,
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp.Status),
		Headers:    resp.Header,
		Body:       data,
		FetchedAt:  time.Now(),
	}, nil
}

func (nhc *NetHTTPClient) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && nhc.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", nhc.cfg.UserAgent)
	}
	return httpReq, nil
}

func (nhc *NetHTTPClient) readBody(r io.Reader) ([]byte, error) {
	if nhc.cfg.MaxBodyBytes > 0 {
		r = io.LimitReader(r, nhc.cfg.MaxBodyBytes)
	}
	return io.ReadAll(r)
}

// Get fetches url with GET.
func (nhc *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (nhc *NetHTTPClient) Close() error {
	nhc.client.CloseIdleConnections()
	return nil
}

// reasonPhrase strips the code from an http.Response Status such as
// "404 Not Found".
func reasonPhrase(status string) string {
	if _, reason, ok := strings.Cut(status, " "); ok {
		return reason
	}
	return ""
}
