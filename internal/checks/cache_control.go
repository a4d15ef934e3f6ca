package checks

import "strings"

var cacheDirectives = []string{"private", "no-store", "no-cache", "must-revalidate"}

// CacheControlCheck is advisory: partial cache protection is a WARN, never a
// FAIL, and it does not count toward the overall verdict.
type CacheControlCheck struct{ base }

func NewCacheControlCheck() *CacheControlCheck {
	return &CacheControlCheck{base{
		name:    "Cache-Control",
		column:  "Cache-Control",
		missing: "Cache-Control is not configured for sensitive data protection",
	}}
}

func (c *CacheControlCheck) Evaluate(h Header, _ *EvalContext) Result {
	cache := headerValue(h, "Cache-Control")
	pragma := headerValue(h, "Pragma")

	secure := strings.Contains(pragma, "no-cache")
	for _, d := range cacheDirectives {
		secure = secure && strings.Contains(cache, d)
	}

	switch {
	case secure:
		return OK(cache, cache)
	case cache == "" && pragma == "":
		return OK("No Cache-Control or Pragma", "")
	default:
		return Warn(cache, cache)
	}
}

func (c *CacheControlCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "cache-control:")
}

func (c *CacheControlCheck) AffectsOverallStatus() bool { return false }

func (c *CacheControlCheck) Patterns() Patterns {
	return Patterns{Yellow: []string{"cache-control:"}}
}
