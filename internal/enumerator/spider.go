package enumerator

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/hdrscan/internal/logging"
	"github.com/raysh454/hdrscan/internal/urlutil"
	"github.com/raysh454/hdrscan/internal/webclient"
)

// linkSelectors lists the elements and attributes whose values are treated
// as links.
var linkSelectors = []struct{ selector, attr string }{
	{"a[href]", "href"},
	{"link[href]", "href"},
	{"area[href]", "href"},
	{"form[action]", "action"},
	{"iframe[src]", "src"},
	{"script[src]", "src"},
}

// Spider is a breadth-first, same-host crawler.
type Spider struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

func NewSpider(cfg Config, wc webclient.WebClient, logger logging.Logger) *Spider {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Spider{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "spider"}),
	}
}

type crawl struct {
	spider  *Spider
	root    *url.URL
	depth   map[string]int
	results []string
}

// Enumerate crawls from target and returns the discovered URLs in discovery
// order, starting with the canonical target. Fetch failures are logged and
// skipped.
func (s *Spider) Enumerate(ctx context.Context, target string, cb ProgressCallback) ([]string, error) {
	root, err := urlutil.Parse(target, "https")
	if err != nil {
		return nil, fmt.Errorf("spider target: %w", err)
	}
	c := &crawl{
		spider:  s,
		root:    root,
		depth:   map[string]int{root.String(): 0},
		results: []string{root.String()},
	}

	for i := 0; i < len(c.results); i++ {
		if err := ctx.Err(); err != nil {
			return c.results, err
		}
		page := c.results[i]
		d := c.depth[page]
		if d > s.cfg.MaxDepth {
			break
		}

		links, err := c.fetchLinks(ctx, page)
		if err != nil {
			s.logger.Warn("error while crawling page",
				logging.Field{Key: "url", Value: page},
				logging.Field{Key: "error", Value: err.Error()})
		}
		c.add(links, d+1)
		if cb != nil {
			cb(i+1, len(c.results))
		}
	}
	return c.results, nil
}

func (c *crawl) full() bool {
	return c.spider.cfg.MaxPages > 0 && len(c.results) >= c.spider.cfg.MaxPages
}

func (c *crawl) add(links []string, depth int) {
	for _, link := range links {
		if c.full() {
			return
		}
		u, err := url.Parse(link)
		if err != nil || !urlutil.SameHost(c.root, u) {
			continue
		}
		if _, seen := c.depth[link]; seen {
			continue
		}
		c.depth[link] = depth
		c.results = append(c.results, link)
	}
}

func (c *crawl) fetchLinks(ctx context.Context, page string) ([]string, error) {
	resp, err := c.spider.wc.Get(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("received %d from target", resp.StatusCode)
	}
	if !strings.HasPrefix(strings.ToLower(resp.Headers.Get("Content-Type")), "text/html") {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page, err)
	}

	base, _ := url.Parse(page)
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(href); err == nil {
			base = b
		}
	}

	var links []string
	for _, ls := range linkSelectors {
		doc.Find(ls.selector).Each(func(_ int, sel *goquery.Selection) {
			raw, _ := sel.Attr(ls.attr)
			raw = strings.TrimSpace(raw)
			if raw == "" || strings.HasPrefix(raw, "#") || hasNonHTTPScheme(raw) {
				return
			}
			resolved, err := urlutil.Resolve(base, raw)
			if err != nil {
				c.spider.logger.Debug("couldn't resolve link",
					logging.Field{Key: "url", Value: raw},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			links = append(links, resolved)
		})
	}
	return links, nil
}

func hasNonHTTPScheme(raw string) bool {
	lower := strings.ToLower(raw)
	for _, p := range []string{"mailto:", "javascript:", "tel:", "data:"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
