package checks

import "strings"

// XSSProtectionCheck requires X-Content-Type-Options: nosniff.
//
// The CSP value published by CSPCheck is available in the context but does
// not substitute for nosniff here.
type XSSProtectionCheck struct{ base }

func NewXSSProtectionCheck() *XSSProtectionCheck {
	return &XSSProtectionCheck{base{
		name:    "XSS Protection",
		column:  "XSS",
		missing: "X-Content-Type-Options: nosniff is missing",
	}}
}

func (c *XSSProtectionCheck) Evaluate(h Header, _ *EvalContext) Result {
	v := strings.TrimSpace(headerValue(h, "X-Content-Type-Options"))
	if strings.EqualFold(v, "nosniff") {
		return OK("nosniff", v)
	}
	return Fail("(none)", v)
}

func (c *XSSProtectionCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "x-content-type-options:")
}
