package app

import (
	"context"
	"fmt"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/highlight"
	"github.com/raysh454/hdrscan/internal/results"
)

// HighlightedLine is one response header line with its colouring.
type HighlightedLine struct {
	Text     string              `json:"text"`
	Segments []highlight.Segment `json:"segments"`
	Runs     []highlight.Run     `json:"runs"`
}

// Analysis is everything the UI shows for a single endpoint.
type Analysis struct {
	Entry    *results.Entry    `json:"entry"`
	Columns  []string          `json:"columns"`
	Row      analyzer.Row      `json:"row"`
	Issues   []checks.Issue    `json:"issues"`
	Lines    []HighlightedLine `json:"lines"`
	Excluded bool              `json:"excluded"`
}

// Describe builds the detail view of a stored or fresh entry.
func (a *Application) Describe(e *results.Entry) *Analysis {
	an := &Analysis{
		Entry:   e,
		Columns: analyzer.Columns(a.Registry),
		Row:     analyzer.BuildRow(a.Registry, e),
		Lines:   make([]HighlightedLine, 0, len(e.HeaderLines)),
	}
	if e.Results != nil {
		an.Issues = checks.Issues(a.Registry, e.Results)
	}
	for _, line := range e.HeaderLines {
		segs := highlight.Line(line, a.Registry, e.Results)
		if segs == nil {
			segs = []highlight.Segment{}
		}
		an.Lines = append(an.Lines, HighlightedLine{
			Text:     line,
			Segments: segs,
			Runs:     highlight.Paint(line, a.Registry, e.Results),
		})
	}
	return an
}

// AnalyzeRaw evaluates one captured pair and stores the result unless the
// endpoint is excluded.
func (a *Application) AnalyzeRaw(ctx context.Context, p analyzer.RawPair) (*Analysis, error) {
	rec, err := p.Record()
	if err != nil {
		return nil, fmt.Errorf("parse pair: %w", err)
	}
	e, excluded, err := a.Analyzer.AnalyzeOne(ctx, rec)
	if err != nil {
		return nil, err
	}
	an := a.Describe(e)
	an.Excluded = excluded
	return an, nil
}

// Entry loads the detail view of a stored endpoint.
func (a *Application) Entry(ctx context.Context, key string) (*Analysis, error) {
	e, err := a.Results.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.Describe(e), nil
}

// Rows lists stored endpoints as table rows, filtered by f.
func (a *Application) Rows(ctx context.Context, f analyzer.Filter) ([]analyzer.Row, error) {
	entries, err := a.Results.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	rows := make([]analyzer.Row, 0, len(entries))
	for _, e := range entries {
		if r := analyzer.BuildRow(a.Registry, e); f.Match(r) {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Diff compares the stored header blocks of two endpoints.
func (a *Application) Diff(ctx context.Context, baseKey, headKey string) (*results.HeaderDiff, error) {
	base, err := a.Results.Get(ctx, baseKey)
	if err != nil {
		return nil, fmt.Errorf("base %q: %w", baseKey, err)
	}
	head, err := a.Results.Get(ctx, headKey)
	if err != nil {
		return nil, fmt.Errorf("head %q: %w", headKey, err)
	}
	return results.DiffHeaders(base, head), nil
}
