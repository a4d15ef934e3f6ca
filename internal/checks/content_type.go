package checks

import "strings"

// ContentTypeCheck requires HTML responses to declare a charset.
// Both tests are plain substring matches on the lowercased value.
type ContentTypeCheck struct{ base }

func NewContentTypeCheck() *ContentTypeCheck {
	return &ContentTypeCheck{base{
		name:    "Content-Type",
		column:  "Content-Type",
		missing: "Content-Type for text/html does not declare a charset",
	}}
}

func (c *ContentTypeCheck) Evaluate(h Header, _ *EvalContext) Result {
	ct := headerValue(h, "Content-Type")
	lower := strings.ToLower(ct)
	if strings.Contains(lower, "text/html") && !strings.Contains(lower, "charset=") {
		return Fail("No charset", ct)
	}
	return OK(ct, ct)
}

func (c *ContentTypeCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "content-type:")
}

func (c *ContentTypeCheck) Patterns() Patterns {
	return Patterns{
		Red:   []string{"text/html"},
		Green: []string{"charset="},
	}
}
