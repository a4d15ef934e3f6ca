package checks_test

import (
	"strings"
	"testing"

	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/model"
)

type checkCase struct {
	name        string
	lines       []string
	ctx         *checks.EvalContext
	wantStatus  checks.Status
	wantDisplay string
}

func runCases(t *testing.T, c checks.Check, cases []checkCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := tc.ctx
			if ctx == nil {
				ctx = checks.NewEvalContext()
			}
			got := c.Evaluate(model.NewHeader(tc.lines...), ctx)
			if got.Status() != tc.wantStatus {
				t.Errorf("status = %v, want %v (display %q)", got.Status(), tc.wantStatus, got.Display())
			}
			if got.Display() != tc.wantDisplay {
				t.Errorf("display = %q, want %q", got.Display(), tc.wantDisplay)
			}
		})
	}
}

func TestCSPCheck(t *testing.T) {
	t.Parallel()
	runCases(t, checks.NewCSPCheck(), []checkCase{
		{"frame-ancestors none", []string{"Content-Security-Policy: default-src 'self'; frame-ancestors 'none'"}, nil, checks.StatusOK, "frame-ancestors 'none'"},
		{"frame-ancestors self", []string{"Content-Security-Policy: frame-ancestors 'self'"}, nil, checks.StatusOK, "frame-ancestors 'self'"},
		{"none wins over self", []string{"Content-Security-Policy: frame-ancestors 'self'; frame-ancestors 'none'"}, nil, checks.StatusOK, "frame-ancestors 'none'"},
		{"xfo fallback", []string{"Content-Security-Policy: default-src *", "X-Frame-Options: DENY"}, nil, checks.StatusOK, "X-Frame-Options:DENY"},
		{"xfo only", []string{"X-Frame-Options: SAMEORIGIN"}, nil, checks.StatusOK, "X-Frame-Options:SAMEORIGIN"},
		{"nothing", nil, nil, checks.StatusFail, "(none)"},
		{"csp without frame-ancestors", []string{"Content-Security-Policy: default-src 'self'"}, nil, checks.StatusFail, "default-src 'self'"},
		{"other frame-ancestors source", []string{"Content-Security-Policy: frame-ancestors https://a.test"}, nil, checks.StatusFail, "frame-ancestors https://a.test"},
	})
}

func TestCSPCheck_StoresCSPInContext(t *testing.T) {
	t.Parallel()
	c := checks.NewCSPCheck()

	ctx := checks.NewEvalContext()
	c.Evaluate(model.NewHeader(), ctx)
	if v, ok := ctx.String(checks.ContextKeyCSP); !ok || v != "" {
		t.Errorf("expected empty CSP stored even when absent, got %q, %v", v, ok)
	}

	ctx = checks.NewEvalContext()
	c.Evaluate(model.NewHeader("Content-Security-Policy: default-src 'none'", "X-Frame-Options: DENY"), ctx)
	if v, _ := ctx.String(checks.ContextKeyCSP); v != "default-src 'none'" {
		t.Errorf("expected raw CSP stored, got %q", v)
	}
}

func TestHSTSCheck(t *testing.T) {
	t.Parallel()
	runCases(t, checks.NewHSTSCheck(), []checkCase{
		{"present", []string{"Strict-Transport-Security: max-age=31536000"}, nil, checks.StatusOK, "Strict-Transport-Security: max-age=31536000"},
		{"max-age zero still passes", []string{"Strict-Transport-Security: max-age=0"}, nil, checks.StatusOK, "Strict-Transport-Security: max-age=0"},
		{"absent", nil, nil, checks.StatusFail, "(none)"},
		{"whitespace only", []string{"Strict-Transport-Security:    "}, nil, checks.StatusFail, "(none)"},
	})
}

func TestCookieCheck(t *testing.T) {
	t.Parallel()
	runCases(t, checks.NewCookieCheck(), []checkCase{
		{"no cookies", nil, nil, checks.StatusOK, "No cookies"},
		{"secure", []string{"Set-Cookie: sid=1; Path=/; Secure"}, nil, checks.StatusOK, "sid=1; Path=/; Secure"},
		{"secure any case", []string{"Set-Cookie: sid=1; SECURE; HttpOnly"}, nil, checks.StatusOK, "sid=1; SECURE; HttpOnly"},
		{"missing secure", []string{"Set-Cookie: sid=1; HttpOnly"}, nil, checks.StatusFail, "sid=1; HttpOnly"},
		{"secure inside value", []string{"Set-Cookie: mode=insecure; HttpOnly"}, nil, checks.StatusFail, "mode=insecure; HttpOnly"},
		{"secure at start", []string{"Set-Cookie: Secure"}, nil, checks.StatusFail, "Secure"},
		{"one of two insecure", []string{"Set-Cookie: a=1; Secure", "Set-Cookie: b=2"}, nil, checks.StatusFail, "a=1; Secure; b=2"},
	})
}

func TestCookieCheck_TruncatesDisplayNotRaw(t *testing.T) {
	t.Parallel()
	long := "token=" + strings.Repeat("x", 150) + "; Secure"
	ctx := checks.NewEvalContext()

	got := checks.NewCookieCheck().Evaluate(model.NewHeader("Set-Cookie: "+long, "Set-Cookie: b=2; secure"), ctx)

	if !got.IsOK() {
		t.Fatalf("expected OK, got %v", got.Status())
	}
	wantDisplay := long[:100] + "...; b=2; secure"
	if got.Display() != wantDisplay {
		t.Errorf("display = %q, want %q", got.Display(), wantDisplay)
	}
	if got.Raw() != long+"; b=2; secure" {
		t.Errorf("raw should be untruncated, got %q", got.Raw())
	}
	if v, ok := ctx.Strings(checks.ContextKeyCookies); !ok || len(v) != 2 {
		t.Errorf("expected cookie list in context, got %v, %v", v, ok)
	}
}

func TestCORSCheck(t *testing.T) {
	t.Parallel()
	runCases(t, checks.NewCORSCheck(), []checkCase{
		{"absent", nil, nil, checks.StatusOK, "No CORS"},
		{"wildcard", []string{"Access-Control-Allow-Origin: *"}, nil, checks.StatusFail, "*"},
		{"wildcard with origin", []string{"Access-Control-Allow-Origin: *"}, checks.WithRequestOrigin("*"), checks.StatusFail, "*"},
		{"reflected", []string{"Access-Control-Allow-Origin: https://a.test"}, checks.WithRequestOrigin("https://a.test"), checks.StatusWarn, "https://a.test"},
		{"different origin", []string{"Access-Control-Allow-Origin: https://a.test"}, checks.WithRequestOrigin("https://b.test"), checks.StatusOK, "https://a.test"},
		{"no origin seeded", []string{"Access-Control-Allow-Origin: https://a.test"}, nil, checks.StatusOK, "https://a.test"},
		{"empty origin seeded", []string{"Access-Control-Allow-Origin: https://a.test"}, checks.WithRequestOrigin(""), checks.StatusOK, "https://a.test"},
	})
}

// The message used to live on the check instance; it now rides on the
// result. These tests pin the texts callers see.
func TestCORSCheck_MessageTravelsWithResult(t *testing.T) {
	t.Parallel()
	c := checks.NewCORSCheck()

	if !strings.Contains(c.MissingMessage(), "wildcard") {
		t.Errorf("default message should describe wildcard, got %q", c.MissingMessage())
	}

	reflected := c.Evaluate(model.NewHeader("Access-Control-Allow-Origin: https://a.test"), checks.WithRequestOrigin("https://a.test"))
	wildcard := c.Evaluate(model.NewHeader("Access-Control-Allow-Origin: *"), checks.NewEvalContext())

	if !strings.Contains(checks.MessageFor(c, reflected), "reflecting the Origin") {
		t.Errorf("reflection message = %q", checks.MessageFor(c, reflected))
	}
	if !strings.Contains(checks.MessageFor(c, wildcard), "wildcard") {
		t.Errorf("wildcard message = %q", checks.MessageFor(c, wildcard))
	}
	// an earlier evaluation must not change what a later result reports
	if !strings.Contains(checks.MessageFor(c, reflected), "reflecting the Origin") {
		t.Error("reflection message changed after another evaluation")
	}
}

func TestContentTypeCheck(t *testing.T) {
	t.Parallel()
	runCases(t, checks.NewContentTypeCheck(), []checkCase{
		{"html with charset", []string{"Content-Type: text/html; charset=utf-8"}, nil, checks.StatusOK, "text/html; charset=utf-8"},
		{"html uppercase", []string{"Content-Type: TEXT/HTML; CHARSET=UTF-8"}, nil, checks.StatusOK, "TEXT/HTML; CHARSET=UTF-8"},
		{"html without charset", []string{"Content-Type: text/html"}, nil, checks.StatusFail, "No charset"},
		{"htmlx substring", []string{"Content-Type: text/htmlx"}, nil, checks.StatusFail, "No charset"},
		{"charset inside other param", []string{"Content-Type: text/html; xcharset=1"}, nil, checks.StatusOK, "text/html; xcharset=1"},
		{"json", []string{"Content-Type: application/json"}, nil, checks.StatusOK, "application/json"},
		{"absent", nil, nil, checks.StatusOK, ""},
	})
}

func TestXSSProtectionCheck(t *testing.T) {
	t.Parallel()
	runCases(t, checks.NewXSSProtectionCheck(), []checkCase{
		{"nosniff", []string{"X-Content-Type-Options: nosniff"}, nil, checks.StatusOK, "nosniff"},
		{"nosniff uppercase", []string{"X-Content-Type-Options: NOSNIFF"}, nil, checks.StatusOK, "nosniff"},
		{"nosniff with suffix", []string{"X-Content-Type-Options: nosniff, other"}, nil, checks.StatusFail, "(none)"},
		{"absent", nil, nil, checks.StatusFail, "(none)"},
	})
}

// CSP in the context does not currently stand in for nosniff.
func TestXSSProtectionCheck_IgnoresCSPInContext(t *testing.T) {
	t.Parallel()
	ctx := checks.NewEvalContext()
	ctx.Set(checks.ContextKeyCSP, "default-src 'self'")

	got := checks.NewXSSProtectionCheck().Evaluate(model.NewHeader(), ctx)
	if !got.IsFail() {
		t.Errorf("expected FAIL even with CSP present, got %v", got.Status())
	}
}

func TestCacheControlCheck(t *testing.T) {
	t.Parallel()
	full := "Cache-Control: private, no-store, no-cache, must-revalidate"
	runCases(t, checks.NewCacheControlCheck(), []checkCase{
		{"all directives and pragma", []string{full, "Pragma: no-cache"}, nil, checks.StatusOK, "private, no-store, no-cache, must-revalidate"},
		{"both absent", nil, nil, checks.StatusOK, "No Cache-Control or Pragma"},
		{"missing pragma", []string{full}, nil, checks.StatusWarn, "private, no-store, no-cache, must-revalidate"},
		{"subset", []string{"Cache-Control: no-store", "Pragma: no-cache"}, nil, checks.StatusWarn, "no-store"},
		{"pragma only", []string{"Pragma: no-cache"}, nil, checks.StatusWarn, ""},
		{"misspelt directive", []string{"Cache-Control: private, no-stor, no-cache, must-revalidate", "Pragma: no-cache"}, nil, checks.StatusWarn, "private, no-stor, no-cache, must-revalidate"},
	})
}

func TestCacheControlCheck_DoesNotAffectOverall(t *testing.T) {
	t.Parallel()
	if checks.NewCacheControlCheck().AffectsOverallStatus() {
		t.Error("cache control should be advisory")
	}
	if !checks.NewCSPCheck().AffectsOverallStatus() {
		t.Error("csp should affect overall status by default")
	}
}

func TestMatchesHeaderLine(t *testing.T) {
	t.Parallel()
	cases := []struct {
		check checks.Check
		line  string
		want  bool
	}{
		{checks.NewCSPCheck(), "content-security-policy: default-src 'self'", true},
		{checks.NewCSPCheck(), "x-frame-options: deny", true},
		{checks.NewCSPCheck(), "content-security-policy-report-only: x", false},
		{checks.NewHSTSCheck(), "strict-transport-security: max-age=1", true},
		{checks.NewCookieCheck(), "set-cookie: a=1", true},
		{checks.NewCookieCheck(), "cookie: a=1", false},
		{checks.NewCORSCheck(), "access-control-allow-origin: *", true},
		{checks.NewCORSCheck(), "access-control-allow-methods: get", false},
		{checks.NewContentTypeCheck(), "content-type: text/html", true},
		{checks.NewXSSProtectionCheck(), "x-content-type-options: nosniff", true},
		{checks.NewCacheControlCheck(), "cache-control: no-store", true},
		{checks.NewCacheControlCheck(), "pragma: no-cache", false},
	}
	for _, tc := range cases {
		if got := tc.check.MatchesHeaderLine(tc.line); got != tc.want {
			t.Errorf("%s.MatchesHeaderLine(%q) = %v, want %v", tc.check.Name(), tc.line, got, tc.want)
		}
	}
}
