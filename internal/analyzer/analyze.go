// Package analyzer runs the check registry over captured traffic and keeps
// the results store current.
package analyzer

import (
	"time"

	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/model"
	"github.com/raysh454/hdrscan/internal/results"
)

// Analyze evaluates one record with a fresh context seeded with the
// request's Origin header. The returned entry is not stored.
func Analyze(reg *checks.Registry, rec *model.Record) *results.Entry {
	origin := ""
	if rec.RequestHeader != nil {
		origin, _ = rec.RequestHeader.Value("Origin")
	}

	var hdr checks.Header = model.NewHeader()
	var lines []string
	if rec.ResponseHeader != nil {
		hdr = rec.ResponseHeader
		lines = rec.ResponseHeader.Lines()
	}

	return &results.Entry{
		Key:         rec.EndpointKey(),
		Method:      rec.Method,
		URL:         rec.URL,
		StatusCode:  rec.StatusCode,
		StatusLine:  rec.StatusLine,
		Results:     reg.Evaluate(hdr, checks.WithRequestOrigin(origin)),
		HeaderLines: lines,
		AnalyzedAt:  time.Now().UTC(),
	}
}
