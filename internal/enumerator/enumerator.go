// Package enumerator discovers same-host URLs to feed live scans.
package enumerator

import "context"

// ProgressCallback reports crawled pages against pages discovered so far.
type ProgressCallback func(done, total int)

type Enumerator interface {
	Enumerate(ctx context.Context, target string, cb ProgressCallback) ([]string, error)
}

// Config bounds a crawl.
type Config struct {
	// MaxDepth is how many link hops from the target are followed. Pages one
	// hop beyond it are listed but not fetched.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	// MaxPages caps the number of URLs returned; 0 means no cap.
	MaxPages int `json:"max_pages" yaml:"max_pages"`
}

func DefaultConfig() Config {
	return Config{MaxDepth: 1, MaxPages: 200}
}
