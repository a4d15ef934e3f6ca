package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/logging"
	"github.com/raysh454/hdrscan/internal/urlutil"
)

var ErrNoTargets = errors.New("scan: no targets")

// ScanRequest describes a live scan.
type ScanRequest struct {
	Targets []string `json:"targets"`
	// Crawl follows same-host links from each target using the spider.
	Crawl  bool   `json:"crawl"`
	Method string `json:"method,omitempty"`
	// Origin overrides Config.Origin for this scan.
	Origin string `json:"origin,omitempty"`
}

// ScanResult reports what a live scan looked at.
type ScanResult struct {
	URLs    []string         `json:"urls"`
	Summary analyzer.Summary `json:"summary"`
}

// ScanHooks receive progress from the two stages of a scan. Either may be nil.
type ScanHooks struct {
	Enumerated func(done, total int)
	Analyzed   analyzer.ProgressFunc
}

// Scan canonicalizes the targets, optionally crawls them, fetches every URL
// and runs batch analysis over the responses.
func (a *Application) Scan(ctx context.Context, req ScanRequest, hooks ScanHooks) (*ScanResult, error) {
	urls, err := a.scanURLs(ctx, req, hooks.Enumerated)
	if err != nil {
		return nil, err
	}

	origin := req.Origin
	if origin == "" {
		origin = a.Config.Origin
	}
	src := analyzer.LiveSource{
		Client: a.WebClient,
		URLs:   urls,
		Method: req.Method,
		Origin: origin,
	}
	sum, err := a.Analyzer.Run(ctx, src, hooks.Analyzed)
	if err != nil {
		return nil, err
	}
	return &ScanResult{URLs: urls, Summary: sum}, nil
}

func (a *Application) scanURLs(ctx context.Context, req ScanRequest, cb func(done, total int)) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, raw := range req.Targets {
		target, err := urlutil.Canonicalize(raw, "https")
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", raw, err)
		}
		if !req.Crawl {
			add(target)
			continue
		}
		found, err := a.Spider.Enumerate(ctx, target, cb)
		if err != nil {
			return nil, fmt.Errorf("crawl %s: %w", target, err)
		}
		a.Logger.Info("crawl finished",
			logging.Field{Key: "target", Value: target},
			logging.Field{Key: "urls", Value: len(found)})
		for _, u := range found {
			add(u)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoTargets
	}
	return urls, nil
}
