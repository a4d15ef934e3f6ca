package enumerator_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/raysh454/hdrscan/internal/enumerator"
	"github.com/raysh454/hdrscan/internal/testutil"
	"github.com/raysh454/hdrscan/internal/webclient"
)

func page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	// depth 0
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page(`<a href=/example>example</a>
			<a href="/blog#top">blog</a>
			<a href="mailto:x@y.test">mail</a>
			<a href="https://elsewhere.test/">external</a>`)(w, r)
	})
	// depth 1
	mux.HandleFunc("/example", page(`<a href=/example/a>a</a>
		<form action="/example/b" method="post"></form>
		<a href=/example>self</a>`))
	mux.HandleFunc("/blog", page(`blog`))
	// depth 2
	mux.HandleFunc("/example/a", page(`<script src="/example/a/1"></script><a href=/blog>blog</a>`))
	mux.HandleFunc("/example/b", page(`<base href="/nested/"><a href="deep">deep</a>`))
	// depth 3
	mux.HandleFunc("/example/a/1", page(`<a href=/never>never</a>`))
	mux.HandleFunc("/nested/deep", page(`done`))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func enumerate(t *testing.T, ts *httptest.Server, cfg enumerator.Config) []string {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer wc.Close()

	got, err := enumerator.NewSpider(cfg, wc, &testutil.DummyLogger{}).Enumerate(context.Background(), ts.URL, nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	return got
}

func TestSpider_Depths(t *testing.T) {
	t.Parallel()
	ts := newSite(t)
	root := ts.URL + "/"

	cases := []struct {
		depth int
		want  []string
	}{
		{0, []string{root, ts.URL + "/example", ts.URL + "/blog"}},
		{1, []string{root, ts.URL + "/example", ts.URL + "/blog", ts.URL + "/example/a", ts.URL + "/example/b"}},
		{2, []string{root, ts.URL + "/example", ts.URL + "/blog", ts.URL + "/example/a", ts.URL + "/example/b", ts.URL + "/example/a/1", ts.URL + "/nested/deep"}},
	}
	for _, tc := range cases {
		got := enumerate(t, ts, enumerator.Config{MaxDepth: tc.depth})
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("depth %d:\n got  %v\n want %v", tc.depth, got, tc.want)
		}
	}
}

func TestSpider_MaxPages(t *testing.T) {
	t.Parallel()
	ts := newSite(t)

	got := enumerate(t, ts, enumerator.Config{MaxDepth: 5, MaxPages: 2})
	if len(got) != 2 {
		t.Errorf("expected 2 pages, got %v", got)
	}
}

func TestSpider_ReportsProgressAndHonoursContext(t *testing.T) {
	t.Parallel()
	ts := newSite(t)
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, nil, ts.Client())
	spider := enumerator.NewSpider(enumerator.Config{MaxDepth: 1}, wc, nil)

	var calls int
	if _, err := spider.Enumerate(context.Background(), ts.URL, func(done, total int) {
		calls++
		if done > total {
			t.Errorf("done %d > total %d", done, total)
		}
	}); err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if calls == 0 {
		t.Error("expected progress callbacks")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := spider.Enumerate(ctx, ts.URL, nil); err == nil {
		t.Error("expected context error")
	}
	if _, err := spider.Enumerate(context.Background(), "ftp://x", nil); err == nil {
		t.Error("expected error for bad target")
	}
}
