package checks

import "strings"

// HSTSCheck requires a Strict-Transport-Security header. The directives
// themselves are not validated.
type HSTSCheck struct{ base }

func NewHSTSCheck() *HSTSCheck {
	return &HSTSCheck{base{
		name:    "HSTS",
		column:  "HSTS",
		missing: "Strict-Transport-Security header is missing",
	}}
}

func (c *HSTSCheck) Evaluate(h Header, _ *EvalContext) Result {
	hsts := strings.TrimSpace(headerValue(h, "Strict-Transport-Security"))
	if hsts == "" {
		return Fail("(none)", "")
	}
	return OK("Strict-Transport-Security: "+hsts, hsts)
}

func (c *HSTSCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "strict-transport-security:")
}
