package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/raysh454/hdrscan/internal/demoserver"
)

func TestParseArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		args    []string
		want    func(*CLIArgs) bool
		wantErr bool
	}{
		{
			name: "scan with flags",
			args: []string{"scan", "-crawl", "-origin", "https://evil.test", "-method", "get,post", "-status", "2xx", "https://a.test"},
			want: func(a *CLIArgs) bool {
				return a.Crawl && a.Origin == "https://evil.test" &&
					reflect.DeepEqual(a.Methods, []string{"GET", "POST"}) &&
					reflect.DeepEqual(a.Status, []string{"2xx"}) &&
					reflect.DeepEqual(a.Targets, []string{"https://a.test"})
			},
		},
		{name: "scan without targets", args: []string{"scan"}, wantErr: true},
		{
			name: "analyze pair",
			args: []string{"analyze", "-request", "req.txt", "-response", "resp.txt", "-tls"},
			want: func(a *CLIArgs) bool { return a.RequestFile == "req.txt" && a.ResponseFile == "resp.txt" && a.UseTLS },
		},
		{name: "analyze pairs file", args: []string{"analyze", "-pairs", "p.yaml"}, want: func(a *CLIArgs) bool { return a.PairsFile == "p.yaml" }},
		{name: "analyze half pair", args: []string{"analyze", "-request", "req.txt"}, wantErr: true},
		{name: "analyze both modes", args: []string{"analyze", "-request", "a", "-response", "b", "-pairs", "p"}, wantErr: true},
		{name: "analyze nothing", args: []string{"analyze"}, wantErr: true},
		{name: "serve listen", args: []string{"serve", "-listen", ":9000"}, want: func(a *CLIArgs) bool { return a.ListenAddr == ":9000" }},
		{name: "unknown command", args: []string{"fly"}, wantErr: true},
		{name: "no args", args: nil, wantErr: true},
		{name: "unknown flag", args: []string{"serve", "-crawl"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseArgs(%v) succeeded, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs(%v): %v", tt.args, err)
			}
			if !tt.want(got) {
				t.Errorf("ParseArgs(%v) = %+v", tt.args, got)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_AnalyzePair(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	req := writeFile(t, dir, "req.txt", "GET /cart HTTP/1.1\r\nHost: shop.test\r\n\r\n")
	resp := writeFile(t, dir, "resp.txt", "HTTP/1.1 200 OK\r\nAccess-Control-Allow-Origin: *\r\n\r\n")

	code, out, errOut := run(t, "analyze", "-no-color", "-tls", "-request", req, "-response", resp)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr %q)", code, errOut)
	}
	for _, want := range []string{
		"GET https://shop.test/cart [200] FAIL",
		"  Access-Control-Allow-Origin: *\n",
		"Security Check Results",
		"CORS: FAIL",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("-no-color output contains escape codes")
	}
}

func TestRun_AnalyzePairsFileJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	pairs := writeFile(t, dir, "pairs.yaml", `
- request: "GET /a HTTP/1.1\r\nHost: shop.test\r\n\r\n"
  response: "HTTP/1.1 200 OK\r\n\r\n"
  use_tls: true
- request: "POST /b HTTP/1.1\r\nHost: shop.test\r\n\r\n"
  response: "HTTP/1.1 500 Internal Server Error\r\n\r\n"
  use_tls: true
`)
	code, out, errOut := run(t, "analyze", "-json", "-pairs", pairs)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr %q)", code, errOut)
	}
	var got []map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(got) != 2 {
		t.Fatalf("analyses = %d, want 2", len(got))
	}

	code, out, _ = run(t, "analyze", "-json", "-status", "5xx", "-pairs", pairs)
	if code != 1 {
		t.Fatalf("filtered exit code = %d, want 1", code)
	}
	got = nil
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("filtered analyses = %d, want 1", len(got))
	}

	code, out, _ = run(t, "analyze", "-json", "-method", "put", "-pairs", pairs)
	if code != 0 || strings.TrimSpace(out) != "[]" {
		t.Fatalf("empty filter: code %d, out %q", code, out)
	}
}

func TestRun_ScanSecureDemo(t *testing.T) {
	t.Parallel()
	cfg := demoserver.DefaultConfig()
	cfg.InitialProfile = demoserver.ProfileSecure
	ts := httptest.NewServer(demoserver.NewDemoServer(cfg).Handler())
	t.Cleanup(ts.Close)

	code, out, errOut := run(t, "scan", "-no-color", ts.URL+"/")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0\nstdout %s\nstderr %s", code, out, errOut)
	}
	if !strings.Contains(out, "[200] OK") {
		t.Errorf("output missing OK row:\n%s", out)
	}
	if !strings.Contains(errOut, "scanned 1 urls: 1 analyzed") {
		t.Errorf("stderr missing summary: %q", errOut)
	}
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "store:\n  kind: tape\n")

	cases := [][]string{
		{"nope"},
		{"scan", "-config", bad, "https://a.test"},
		{"analyze", "-request", filepath.Join(dir, "missing"), "-response", filepath.Join(dir, "missing")},
		{"analyze", "-status", "9xx", "-pairs", writeFile(t, dir, "empty.yaml", "[]")},
	}
	for _, args := range cases {
		if code, _, _ := run(t, args...); code != 2 {
			t.Errorf("Run(%v) = %d, want 2", args, code)
		}
	}
}
