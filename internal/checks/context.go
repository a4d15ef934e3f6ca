package checks

// Well-known EvalContext keys.
const (
	// ContextKeyCSP holds the raw Content-Security-Policy value ("" if absent).
	ContextKeyCSP = "csp"
	// ContextKeyCookies holds the []string of Set-Cookie values.
	ContextKeyCookies = "cookies"
	// ContextKeyRequestOrigin holds the paired request's Origin header.
	ContextKeyRequestOrigin = "requestOrigin"
)

// EvalContext is the scratch space shared by all checks during one
// evaluation pass. Create one per response; never reuse across responses.
type EvalContext struct {
	values map[string]any
}

// NewEvalContext returns an empty context.
func NewEvalContext() *EvalContext {
	return &EvalContext{values: make(map[string]any)}
}

// WithRequestOrigin returns a fresh context pre-seeded with the request's
// Origin header value.
func WithRequestOrigin(origin string) *EvalContext {
	c := NewEvalContext()
	c.Set(ContextKeyRequestOrigin, origin)
	return c
}

func (c *EvalContext) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

func (c *EvalContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// String returns the value under key if it is a string.
func (c *EvalContext) String(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Strings returns the value under key if it is a []string.
func (c *EvalContext) Strings(key string) ([]string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := v.([]string)
	return s, ok
}

// Len reports the number of stored keys.
func (c *EvalContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.values)
}
