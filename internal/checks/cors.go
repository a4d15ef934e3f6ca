package checks

import "strings"

const (
	corsWildcardMessage   = "Access-Control-Allow-Origin is set to '*' (wildcard)"
	corsReflectionMessage = "Access-Control-Allow-Origin may be reflecting the Origin header (potential misconfiguration)"
)

// CORSCheck flags wildcard and reflected Access-Control-Allow-Origin values.
// Reflection is detected by exact equality with the request Origin seeded
// under ContextKeyRequestOrigin.
//
// The outcome-specific message travels on the Result (see MessageFor), so one
// instance can be shared by concurrent evaluations.
type CORSCheck struct{ base }

func NewCORSCheck() *CORSCheck {
	return &CORSCheck{base{
		name:    "CORS",
		column:  "CORS",
		missing: corsWildcardMessage,
	}}
}

func (c *CORSCheck) Evaluate(h Header, ctx *EvalContext) Result {
	acao := headerValue(h, "Access-Control-Allow-Origin")
	if acao == "" {
		return OK("No CORS", "")
	}
	if acao == "*" {
		return MustResult(StatusFail, WithDisplay(acao), WithRaw(acao), WithMessage(corsWildcardMessage))
	}
	if origin, ok := ctx.String(ContextKeyRequestOrigin); ok && origin != "" && origin == acao {
		return MustResult(StatusWarn, WithDisplay(acao), WithRaw(acao), WithMessage(corsReflectionMessage))
	}
	return OK(acao, acao)
}

func (c *CORSCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "access-control-allow-origin:")
}

func (c *CORSCheck) Patterns() Patterns {
	return Patterns{
		Red:    []string{"access-control-allow-origin: *"},
		Yellow: []string{"access-control-allow-origin"},
		Green:  []string{"access-control-allow-origin"},
	}
}
