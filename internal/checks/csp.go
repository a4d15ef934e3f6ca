package checks

import "strings"

const (
	frameAncestorsNone = "frame-ancestors 'none'"
	frameAncestorsSelf = "frame-ancestors 'self'"
)

// CSPCheck requires clickjacking protection through CSP frame-ancestors or
// X-Frame-Options. It publishes the raw CSP under ContextKeyCSP.
type CSPCheck struct{ base }

func NewCSPCheck() *CSPCheck {
	return &CSPCheck{base{
		name:    "Content-Security-Policy",
		column:  "CSP",
		missing: "Content-Security-Policy with frame-ancestors or X-Frame-Options is missing",
	}}
}

func (c *CSPCheck) Evaluate(h Header, ctx *EvalContext) Result {
	csp := headerValue(h, "Content-Security-Policy")
	xfo := headerValue(h, "X-Frame-Options")

	if ctx != nil {
		ctx.Set(ContextKeyCSP, csp)
	}

	switch {
	case strings.Contains(csp, frameAncestorsNone):
		return OK(frameAncestorsNone, csp)
	case strings.Contains(csp, frameAncestorsSelf):
		return OK(frameAncestorsSelf, csp)
	case xfo != "":
		return OK("X-Frame-Options:"+xfo, "X-Frame-Options: "+xfo)
	case csp == "":
		return Fail("(none)", "")
	default:
		return Fail(csp, csp)
	}
}

func (c *CSPCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "content-security-policy:") ||
		strings.HasPrefix(lowerLine, "x-frame-options:")
}

// WholeLineColored keeps CSP lines to segment highlighting only;
// X-Frame-Options lines take the verdict colour.
func (c *CSPCheck) WholeLineColored(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "x-frame-options:")
}

func (c *CSPCheck) Patterns() Patterns {
	return Patterns{
		Red:   []string{"content-security-policy:"},
		Green: []string{frameAncestorsNone, frameAncestorsSelf},
	}
}
