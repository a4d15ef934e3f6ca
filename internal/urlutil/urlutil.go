// Package urlutil normalises URLs for live scans and crawling.
package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL    = errors.New("urlutil: empty url")
	ErrMissingHost = errors.New("urlutil: missing host")
	ErrBadScheme   = errors.New("urlutil: scheme must be http or https")
)

// Canonicalize returns a deterministic form of raw: lowercase scheme and
// punycode host, default ports and credentials dropped, path cleaned,
// fragment removed and query parameters sorted. Schemeless input gets
// defaultScheme when one is given.
func Canonicalize(raw, defaultScheme string) (string, error) {
	u, err := Parse(raw, defaultScheme)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Parse is Canonicalize returning the parsed URL.
func Parse(raw, defaultScheme string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if defaultScheme != "" && !strings.Contains(raw, "://") {
		raw = defaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrBadScheme, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingHost, raw)
	}

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	switch port := u.Port(); {
	case port == "", u.Scheme == "http" && port == "80", u.Scheme == "https" && port == "443":
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}

	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
	} else {
		clean := path.Clean(u.Path)
		if strings.HasSuffix(u.Path, "/") && clean != "/" {
			clean += "/"
		}
		u.Path = clean
	}
	u.RawPath = ""

	// Encode sorts by key
	q := u.Query()
	u.RawQuery = q.Encode()
	return u, nil
}

// Resolve resolves ref against base and canonicalises the result.
func Resolve(base *url.URL, ref string) (string, error) {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return Canonicalize(base.ResolveReference(r).String(), "")
}

// SameHost reports whether two URLs share a hostname.
func SameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Hostname(), b.Hostname())
}
