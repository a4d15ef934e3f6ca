package webclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/hdrscan/internal/testutil"
	"github.com/raysh454/hdrscan/internal/webclient"
)

func newClient(t *testing.T, cfg webclient.Config, httpClient *http.Client) *webclient.NetHTTPClient {
	t.Helper()
	client, err := webclient.NewNetHTTPClient(cfg, &testutil.DummyLogger{}, httpClient)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNetHTTPClient_Do_ReturnsHeadersAndBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=60")
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2; Secure")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	client := newClient(t, webclient.DefaultConfig(), ts.Client())
	resp, err := client.Do(context.Background(), &webclient.Request{Method: "get", URL: ts.URL + "/test"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if resp.StatusCode != 200 || resp.Reason != "OK" || resp.Proto != "HTTP/1.1" {
		t.Errorf("unexpected status %d %q %q", resp.StatusCode, resp.Reason, resp.Proto)
	}
	if string(resp.Body) != "response body" {
		t.Errorf("expected 'response body', got %q", resp.Body)
	}
	if got := resp.Headers.Values("Set-Cookie"); len(got) != 2 {
		t.Errorf("expected both cookies, got %v", got)
	}
	if resp.Request.Method != "GET" {
		t.Errorf("method should be normalised, got %q", resp.Request.Method)
	}
}

func TestNetHTTPClient_Do_SendsUserAgentAndHeaders(t *testing.T) {
	t.Parallel()
	var gotUA, gotOrigin string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotOrigin = r.Header.Get("Origin")
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{UserAgent: "hdrscan-test"}, ts.Client())
	hdrs := http.Header{}
	hdrs.Set("Origin", "https://evil.test")
	if _, err := client.Do(context.Background(), &webclient.Request{URL: ts.URL, Headers: hdrs}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	if gotUA != "hdrscan-test" || gotOrigin != "https://evil.test" {
		t.Errorf("user agent %q, origin %q", gotUA, gotOrigin)
	}
}

func TestNetHTTPClient_Do_DoesNotFollowRedirectsByDefault(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	resp, err := client.Get(context.Background(), ts.URL+"/old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}

	follow := newClient(t, webclient.Config{FollowRedirects: true}, &http.Client{})
	resp, err = follow.Get(context.Background(), ts.URL+"/old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected redirect to be followed, got %d", resp.StatusCode)
	}
}

func TestNetHTTPClient_Do_LimitsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("X", 1<<16))
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{MaxBodyBytes: 100}, ts.Client())
	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("expected body capped at 100 bytes, got %d", len(resp.Body))
	}
}

func TestNetHTTPClient_Do_Errors(t *testing.T) {
	t.Parallel()
	client := newClient(t, webclient.Config{Timeout: time.Second}, nil)

	if _, err := client.Do(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
	if _, err := client.Get(context.Background(), "http://127.0.0.1:1"); err == nil {
		t.Error("expected error for connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Get(ctx, "http://127.0.0.1:1"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestResponse_Record(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "https://evil.test")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	hdrs := http.Header{}
	hdrs.Set("Origin", "https://evil.test")
	resp, err := client.Do(context.Background(), &webclient.Request{Method: "GET", URL: ts.URL + "/missing?q=1", Headers: hdrs})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	rec, err := resp.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	host := strings.TrimPrefix(ts.URL, "http://")
	if rec.URL != "http://"+host+"/missing?q=1" {
		t.Errorf("record url = %q", rec.URL)
	}
	if rec.EndpointKey() != "GET http://"+host+"/missing?q=1 404" {
		t.Errorf("endpoint key = %q", rec.EndpointKey())
	}
	if origin, _ := rec.RequestHeader.Value("origin"); origin != "https://evil.test" {
		t.Errorf("request origin = %q", origin)
	}
	if v, _ := rec.ResponseHeader.Value("access-control-allow-origin"); v != "https://evil.test" {
		t.Errorf("response header = %q", v)
	}
	if rec.StatusLine != "HTTP/1.1 404 Not Found" {
		t.Errorf("status line = %q", rec.StatusLine)
	}
}
