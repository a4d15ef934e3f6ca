package checks

import "strings"

const cookieDisplayLimit = 100

// CookieCheck requires every Set-Cookie to carry the Secure attribute. The
// cookie list is published under ContextKeyCookies.
type CookieCheck struct{ base }

func NewCookieCheck() *CookieCheck {
	return &CookieCheck{base{
		name:    "Cookies",
		column:  "Cookies",
		missing: "Set-Cookie is missing 'Secure' flag",
	}}
}

func (c *CookieCheck) Evaluate(h Header, ctx *EvalContext) Result {
	var cookies []string
	if h != nil {
		cookies = h.Values("Set-Cookie")
	}
	if ctx != nil {
		ctx.Set(ContextKeyCookies, append([]string(nil), cookies...))
	}

	if len(cookies) == 0 {
		return OK("No cookies", "")
	}

	allSecure := true
	shown := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		if !HasSecureAttribute(cookie) {
			allSecure = false
		}
		shown = append(shown, truncate(cookie, cookieDisplayLimit))
	}

	display := strings.Join(shown, "; ")
	raw := strings.Join(cookies, "; ")
	if allSecure {
		return OK(display, raw)
	}
	return Fail(display, raw)
}

func (c *CookieCheck) MatchesHeaderLine(lowerLine string) bool {
	return strings.HasPrefix(lowerLine, "set-cookie:")
}

func (c *CookieCheck) Patterns() Patterns {
	return Patterns{Green: []string{"set-cookie:", "secure"}}
}

// HasSecureAttribute reports whether a Set-Cookie value contains " secure"
// (case-insensitive). A bare "secure" without a preceding space, e.g. at the
// very start or glued to a value, does not count.
func HasSecureAttribute(cookie string) bool {
	return strings.Contains(strings.ToLower(cookie), " secure")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
