package demoserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/demoserver"
	"github.com/raysh454/hdrscan/internal/results"
	"github.com/raysh454/hdrscan/internal/testutil"
	"github.com/raysh454/hdrscan/internal/webclient"
)

func newDemo(t *testing.T, profile string) *httptest.Server {
	t.Helper()
	cfg := demoserver.DefaultConfig()
	cfg.InitialProfile = profile
	ts := httptest.NewServer(demoserver.NewDemoServer(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestPages_HaveEveryProfile(t *testing.T) {
	t.Parallel()
	for _, p := range demoserver.GetAllPages() {
		for _, name := range demoserver.Profiles {
			if _, ok := p.Profiles[name]; !ok {
				t.Errorf("page %s lacks profile %s", p.Path, name)
			}
		}
	}
}

// scanAll analyzes every demo page and returns the entries keyed by path.
func scanAll(t *testing.T, ts *httptest.Server) map[string]*results.Entry {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.DefaultConfig(), nil, ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	store := results.NewMemoryStore()
	a, err := analyzer.New(analyzer.DefaultConfig(), checks.DefaultRegistry(), store, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}

	var urls []string
	for _, p := range demoserver.GetAllPages() {
		urls = append(urls, ts.URL+p.Path)
	}
	src := analyzer.LiveSource{Client: wc, URLs: urls, Origin: "https://evil.test"}
	if _, err := a.Run(context.Background(), src, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, _ := store.List(context.Background())
	out := make(map[string]*results.Entry, len(entries))
	for _, e := range entries {
		out[strings.TrimPrefix(e.URL, ts.URL)] = e
	}
	return out
}

func TestProfiles_DriveCheckOutcomes(t *testing.T) {
	t.Parallel()

	insecure := scanAll(t, newDemo(t, demoserver.ProfileInsecure))
	if r, _ := insecure["/api/data"].Results.Get("CORS"); !r.IsFail() {
		t.Errorf("insecure CORS = %v, want FAIL", r.Status())
	}
	if r, _ := insecure["/login"].Results.Get("Cookies"); !r.IsFail() {
		t.Errorf("insecure cookie = %v, want FAIL", r.Status())
	}
	if insecure["/legacy"].StatusCode != http.StatusFound {
		t.Errorf("legacy status = %d, want 302", insecure["/legacy"].StatusCode)
	}

	partial := scanAll(t, newDemo(t, demoserver.ProfilePartial))
	if r, _ := partial["/api/data"].Results.Get("CORS"); !r.IsWarn() {
		t.Errorf("partial CORS = %v, want reflected-origin WARN", r.Status())
	}

	reg := checks.DefaultRegistry()
	secure := scanAll(t, newDemo(t, demoserver.ProfileSecure))
	for path, e := range secure {
		if path == "/legacy" {
			continue
		}
		if got := checks.Overall(reg, e.Results); got != checks.StatusOK {
			t.Errorf("secure %s overall = %v", path, got)
			for _, is := range checks.Issues(reg, e.Results) {
				if is.Status != checks.StatusOK {
					t.Logf("  %s: %v %s", is.Check, is.Status, is.Current)
				}
			}
		}
	}
}

func TestControlEndpoints(t *testing.T) {
	t.Parallel()
	ts := newDemo(t, demoserver.ProfileInsecure)
	client := ts.Client()

	resp, err := client.PostForm(ts.URL+"/demo/set-profile", url.Values{"path": {"/api/data"}, "profile": {"secure"}})
	if err != nil {
		t.Fatalf("set-profile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-profile status = %d", resp.StatusCode)
	}

	resp, err = client.Get(ts.URL + "/api/data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Errorf("ACAO after switch = %q", got)
	}

	for _, tc := range []struct {
		path   string
		form   url.Values
		status int
	}{
		{"/demo/set-profile", url.Values{"path": {"/nope"}, "profile": {"secure"}}, http.StatusNotFound},
		{"/demo/set-profile", url.Values{"path": {"/"}, "profile": {"v2"}}, http.StatusBadRequest},
		{"/demo/set-all", url.Values{"profile": {"partial"}}, http.StatusOK},
	} {
		resp, err := client.PostForm(ts.URL+tc.path, tc.form)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Errorf("%s %v = %d, want %d", tc.path, tc.form, resp.StatusCode, tc.status)
		}
	}

	resp, err = client.Get(ts.URL + "/unknown")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown page = %d", resp.StatusCode)
	}

	resp, err = client.Get(ts.URL + "/demo/control")
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("control panel = %d", resp.StatusCode)
	}
}

func TestConfigAddr(t *testing.T) {
	t.Parallel()
	if got := demoserver.DefaultConfig().Addr(); got != "localhost:9999" {
		t.Errorf("default Addr = %q", got)
	}
	if got := (demoserver.Config{Port: 80}).Addr(); got != ":80" {
		t.Errorf("Addr without host = %q", got)
	}
}
