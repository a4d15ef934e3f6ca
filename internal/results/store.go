// Package results keeps the latest analysis of every endpoint.
package results

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/hdrscan/internal/checks"
)

var ErrNotFound = errors.New("results: entry not found")

// Entry is the analysis of one endpoint. Key is the endpoint key
// "<METHOD> <URL> <STATUS>".
type Entry struct {
	Key         string          `json:"key"`
	Method      string          `json:"method"`
	URL         string          `json:"url"`
	StatusCode  int             `json:"status_code"`
	StatusLine  string          `json:"status_line,omitempty"`
	Results     *checks.Results `json:"results"`
	HeaderLines []string        `json:"header_lines"`
	AnalyzedAt  time.Time       `json:"analyzed_at"`
}

// Store holds one entry per endpoint key. Put replaces any previous entry for
// the same key as a single step, so concurrent writers resolve last writer
// wins. List returns entries in the order their keys were first stored.
type Store interface {
	Put(ctx context.Context, e *Entry) error
	Get(ctx context.Context, key string) (*Entry, error)
	List(ctx context.Context) ([]*Entry, error)
	Clear(ctx context.Context) error
	Close() error
}

func cloneEntry(e *Entry) *Entry {
	cp := *e
	cp.HeaderLines = append([]string(nil), e.HeaderLines...)
	return &cp
}
